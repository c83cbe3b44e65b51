package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/slok/tasksync/internal/app/mutate"
	"github.com/slok/tasksync/internal/app/refresh"
	"github.com/slok/tasksync/internal/app/replay"
	"github.com/slok/tasksync/internal/connectivity"
	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/remote/httpapi"
	"github.com/slok/tasksync/internal/state"
	"github.com/slok/tasksync/internal/storage"
	"github.com/slok/tasksync/internal/storage/memory"
	"github.com/slok/tasksync/internal/storage/sqlite"
)

const (
	defaultDataDir = ".tasksync"
	defaultDBFile  = "tasksync.db"
)

// Config configures the SDK client.
//
// Only APIURL is required. An otherwise empty Config uses ~/.tasksync/tasksync.db
// as local store and considers the network always reachable.
type Config struct {
	// APIURL is the remote Task API root (required).
	APIURL string

	// Token is sent as bearer token to the remote API. Optional, session
	// cookies set by the API are always kept and sent back.
	Token string

	// RequestTimeout bounds every remote API request.
	// Default: 10s.
	RequestTimeout time.Duration

	// Storage selects the local store implementation.
	// Default: [StorageSQLite].
	Storage StorageType

	// DBPath is the SQLite database path, only used with [StorageSQLite].
	// Default: ~/.tasksync/tasksync.db.
	DBPath string

	// DataDir is the base directory for tasksync data.
	// Default: ~/.tasksync.
	DataDir string

	// StorageQuotaBytes limits the memory store size, only used with
	// [StorageMemory]. 0 means unlimited.
	StorageQuotaBytes int

	// Offline starts the client offline. The connectivity can be changed
	// later with [Client.SetOnline].
	Offline bool

	// OfflineFlagFile makes the client offline while the file exists.
	OfflineFlagFile string

	// PlatformConnectivity follows the host network links state (linux only,
	// other platforms are always online).
	PlatformConnectivity bool

	// ReplayRate is the number of pending operations per second sent to the
	// remote API when syncing.
	// Default: 5.
	ReplayRate float64

	// MaxAttempts is the number of rejections before a pending operation is
	// marked as failed.
	// Default: 5.
	MaxAttempts int

	// SyncInterval retries the pending operations periodically while
	// [Client.Run] is running. 0 disables it.
	SyncInterval time.Duration

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.APIURL == "" {
		return fmt.Errorf("api URL is required")
	}

	if c.Storage == "" {
		c.Storage = StorageSQLite
	}

	switch c.Storage {
	case StorageSQLite:
		if c.DataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("could not get user home dir: %w", err)
			}
			c.DataDir = filepath.Join(home, defaultDataDir)
		}
		if c.DBPath == "" {
			c.DBPath = filepath.Join(c.DataDir, defaultDBFile)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage type %q: %w", c.Storage, ErrNotValid)
	}

	if c.Offline && (c.OfflineFlagFile != "" || c.PlatformConnectivity) {
		return fmt.Errorf("offline can't be combined with other connectivity sources: %w", ErrNotValid)
	}
	if c.OfflineFlagFile != "" && c.PlatformConnectivity {
		return fmt.Errorf("only one connectivity source can be used: %w", ErrNotValid)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the SDK entry point to work with tasks.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	store   *state.Store
	monitor *connectivity.Monitor
	manual  *connectivity.ManualSource
	ops     storage.OperationRepository
	refresh *refresh.Service
	mutate  *mutate.Service
	replay  *replay.Service
	logger  log.Logger
	closeFn func() error
}

// New creates a new SDK client.
//
// The caller must call [Client.Close] when done to release the local store.
// The client doesn't load any data until [Client.FetchData] is called.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var (
		kv      storage.KV
		ops     storage.OperationRepository
		closeFn = func() error { return nil }
	)
	switch cfg.Storage {
	case StorageMemory:
		repo, err := memory.NewRepository(memory.RepositoryConfig{
			QuotaBytes: cfg.StorageQuotaBytes,
			Logger:     cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create memory repository: %w", err)
		}
		kv, ops = repo, repo
	default:
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: cfg.DBPath,
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		opRepo, err := sqlite.NewOperationRepository(sqlite.OperationRepositoryConfig{
			DB:     repo.DB(),
			Logger: cfg.Logger,
		})
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("could not create operation repository: %w", err)
		}
		kv, ops, closeFn = repo, opRepo, repo.Close
	}

	c, err := newClient(cfg, kv, ops)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	c.closeFn = closeFn

	return c, nil
}

func newClient(cfg Config, kv storage.KV, ops storage.OperationRepository) (*Client, error) {
	adapter, err := storage.NewAdapter(storage.AdapterConfig{KV: kv, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create adapter: %w", err)
	}

	api, err := httpapi.NewClient(httpapi.ClientConfig{
		BaseURL: cfg.APIURL,
		Token:   cfg.Token,
		Timeout: cfg.RequestTimeout,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create API client: %w", err))
	}

	source, manual, err := newConnectivitySource(cfg)
	if err != nil {
		return nil, err
	}
	monitor, err := connectivity.NewMonitor(connectivity.MonitorConfig{Source: source, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create connectivity monitor: %w", err)
	}

	store := state.NewStore()
	store.SetOnline(monitor.Online())

	refreshSvc, err := refresh.NewService(refresh.ServiceConfig{
		API:          api,
		Adapter:      adapter,
		Store:        store,
		Connectivity: monitor,
		Operations:   ops,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create refresh service: %w", err)
	}

	mutateSvc, err := mutate.NewService(mutate.ServiceConfig{
		API:          api,
		Adapter:      adapter,
		Refresher:    refreshSvc,
		Store:        store,
		Connectivity: monitor,
		Operations:   ops,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create mutate service: %w", err)
	}

	replaySvc, err := replay.NewService(replay.ServiceConfig{
		API:           api,
		Operations:    ops,
		Refresher:     refreshSvc,
		Store:         store,
		Connectivity:  monitor,
		Rate:          cfg.ReplayRate,
		MaxAttempts:   cfg.MaxAttempts,
		RetryInterval: cfg.SyncInterval,
		Logger:        cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create replay service: %w", err)
	}

	return &Client{
		store:   store,
		monitor: monitor,
		manual:  manual,
		ops:     ops,
		refresh: refreshSvc,
		mutate:  mutateSvc,
		replay:  replaySvc,
		logger:  cfg.Logger,
	}, nil
}

func newConnectivitySource(cfg Config) (connectivity.Source, *connectivity.ManualSource, error) {
	switch {
	case cfg.OfflineFlagFile != "":
		s, err := connectivity.NewFileSource(connectivity.FileSourceConfig{
			FlagPath: cfg.OfflineFlagFile,
			Logger:   cfg.Logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("could not create flag file connectivity source: %w", err)
		}
		return s, nil, nil
	case cfg.PlatformConnectivity:
		s, err := connectivity.NewPlatformSource(cfg.Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("could not create platform connectivity source: %w", err)
		}
		return s, nil, nil
	}

	s := connectivity.NewManualSource(!cfg.Offline)
	return s, s, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}
