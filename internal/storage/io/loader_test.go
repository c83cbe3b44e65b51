package io

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasksync/internal/model"
)

func TestSettingsYAMLRepository_GetSettings(t *testing.T) {
	tests := map[string]struct {
		fs     fstest.MapFS
		path   string
		expCfg model.Settings
		expErr bool
		errMsg string
	}{
		"A complete settings file should load successfully": {
			fs: fstest.MapFS{
				"tasksync.yaml": &fstest.MapFile{
					Data: []byte(`api_url: https://app.example.com/api
token: s3cr3t
db_path: /tmp/tasksync.db
connectivity:
  offline_flag_file: /run/tasksync/offline
  platform: true
sync:
  request_timeout: 3s
  replay_rate: 2.5
  max_attempts: 7
`),
				},
			},
			path: "tasksync.yaml",
			expCfg: model.Settings{
				APIURL:               "https://app.example.com/api",
				Token:                "s3cr3t",
				DBPath:               "/tmp/tasksync.db",
				OfflineFlagFile:      "/run/tasksync/offline",
				PlatformConnectivity: true,
				RequestTimeout:       3 * time.Second,
				ReplayRate:           2.5,
				MaxAttempts:          7,
			},
		},
		"Empty settings should load successfully": {
			fs: fstest.MapFS{
				"empty.yaml": &fstest.MapFile{
					Data: []byte(`---
`),
				},
			},
			path:   "empty.yaml",
			expCfg: model.Settings{},
		},
		"Missing file should return error": {
			fs:     fstest.MapFS{},
			path:   "nonexistent.yaml",
			expErr: true,
			errMsg: "reading settings file",
		},
		"Invalid YAML should return error": {
			fs: fstest.MapFS{
				"invalid.yaml": &fstest.MapFile{
					Data: []byte(`invalid: yaml: content: {}`),
				},
			},
			path:   "invalid.yaml",
			expErr: true,
			errMsg: "parsing YAML",
		},
		"A non HTTP API URL should return error": {
			fs: fstest.MapFS{
				"s.yaml": &fstest.MapFile{Data: []byte(`api_url: ftp://example.com`)},
			},
			path:   "s.yaml",
			expErr: true,
			errMsg: "api_url must be an http or https URL",
		},
		"An invalid timeout should return error": {
			fs: fstest.MapFS{
				"s.yaml": &fstest.MapFile{Data: []byte("sync:\n  request_timeout: soon\n")},
			},
			path:   "s.yaml",
			expErr: true,
			errMsg: "sync.request_timeout",
		},
		"Negative attempts should return error": {
			fs: fstest.MapFS{
				"s.yaml": &fstest.MapFile{Data: []byte("sync:\n  max_attempts: -1\n")},
			},
			path:   "s.yaml",
			expErr: true,
			errMsg: "sync.max_attempts can't be negative",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			repo := NewSettingsYAMLRepository(tc.fs)
			cfg, err := repo.GetSettings(context.Background(), tc.path)

			if tc.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expCfg, cfg)
		})
	}
}

func TestSettingsYAMLRepository_GetSettings_ContextCancellation(t *testing.T) {
	fs := fstest.MapFS{
		"test.yaml": &fstest.MapFile{
			Data: []byte(`api_url: http://127.0.0.1:8080
`),
		},
	}

	repo := NewSettingsYAMLRepository(fs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetSettings(ctx, "test.yaml")
	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}
