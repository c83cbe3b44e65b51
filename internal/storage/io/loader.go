package io

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/tasksync/internal/model"
)

// SettingsYAMLRepository loads client settings from YAML files.
type SettingsYAMLRepository struct {
	fs fs.FS
}

// NewSettingsYAMLRepository creates a new YAML settings repository.
func NewSettingsYAMLRepository(filesystem fs.FS) *SettingsYAMLRepository {
	return &SettingsYAMLRepository{fs: filesystem}
}

// GetSettings loads the client settings from a YAML file and returns a validated domain model.
func (r *SettingsYAMLRepository) GetSettings(ctx context.Context, path string) (model.Settings, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Settings{}, fmt.Errorf("reading settings file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Settings{}, ctx.Err()
	}

	var cfg SettingsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.Settings{}, fmt.Errorf("parsing YAML: %w", err)
	}

	s, err := cfg.toModel()
	if err != nil {
		return model.Settings{}, fmt.Errorf("invalid settings: %w", err)
	}

	return s, nil
}

// SettingsConfig represents the YAML structure of the client settings.
//
//	api_url: https://app.example.com/api
//	token: s3cr3t
//	db_path: /var/lib/tasksync/tasksync.db
//	connectivity:
//	  offline_flag_file: /run/tasksync/offline
//	  platform: true
//	sync:
//	  request_timeout: 10s
//	  replay_rate: 5
//	  max_attempts: 5
type SettingsConfig struct {
	APIURL       string             `yaml:"api_url"`
	Token        string             `yaml:"token"`
	DBPath       string             `yaml:"db_path"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Sync         SyncConfig         `yaml:"sync"`
}

// ConnectivityConfig represents the YAML structure for connectivity configuration.
type ConnectivityConfig struct {
	OfflineFlagFile string `yaml:"offline_flag_file"`
	Platform        bool   `yaml:"platform"`
}

// SyncConfig represents the YAML structure for sync configuration.
type SyncConfig struct {
	RequestTimeout string  `yaml:"request_timeout"`
	ReplayRate     float64 `yaml:"replay_rate"`
	MaxAttempts    int     `yaml:"max_attempts"`
}

func (c SettingsConfig) toModel() (model.Settings, error) {
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return model.Settings{}, fmt.Errorf("api_url must be an http or https URL, got: %q", c.APIURL)
		}
	}

	var timeout time.Duration
	if c.Sync.RequestTimeout != "" {
		d, err := time.ParseDuration(c.Sync.RequestTimeout)
		if err != nil {
			return model.Settings{}, fmt.Errorf("sync.request_timeout: %w", err)
		}
		if d <= 0 {
			return model.Settings{}, fmt.Errorf("sync.request_timeout must be positive, got: %s", d)
		}
		timeout = d
	}
	if c.Sync.ReplayRate < 0 {
		return model.Settings{}, fmt.Errorf("sync.replay_rate can't be negative, got: %v", c.Sync.ReplayRate)
	}
	if c.Sync.MaxAttempts < 0 {
		return model.Settings{}, fmt.Errorf("sync.max_attempts can't be negative, got: %d", c.Sync.MaxAttempts)
	}

	return model.Settings{
		APIURL:               c.APIURL,
		Token:                c.Token,
		DBPath:               c.DBPath,
		OfflineFlagFile:      c.Connectivity.OfflineFlagFile,
		PlatformConnectivity: c.Connectivity.Platform,
		RequestTimeout:       timeout,
		ReplayRate:           c.Sync.ReplayRate,
		MaxAttempts:          c.Sync.MaxAttempts,
	}, nil
}
