package connectivity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/slok/tasksync/internal/log"
)

// FileSourceConfig is the configuration for the flag file source.
type FileSourceConfig struct {
	// FlagPath is the file that, while present, marks the host as offline.
	FlagPath string
	Logger   log.Logger
}

func (c *FileSourceConfig) defaults() error {
	if c.FlagPath == "" {
		return fmt.Errorf("flag path is required")
	}
	c.FlagPath = filepath.Clean(c.FlagPath)
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "connectivity.FileSource"})
	return nil
}

// FileSource reports offline while a flag file exists. Operators can force a
// client offline with a `touch` and bring it back removing the file.
type FileSource struct {
	path   string
	logger log.Logger
}

// NewFileSource returns a new flag file source.
func NewFileSource(cfg FileSourceConfig) (*FileSource, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &FileSource{
		path:   cfg.FlagPath,
		logger: cfg.Logger,
	}, nil
}

// Online returns true when the flag file doesn't exist.
func (s *FileSource) Online() bool {
	_, err := os.Stat(s.path)
	return errors.Is(err, fs.ErrNotExist)
}

// Watch watches the flag file directory and reports the transitions.
func (s *FileSource) Watch(ctx context.Context, changes chan<- bool) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create flag directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// The file can be missing, watch the directory instead.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("could not watch %s: %w", dir, err)
	}

	last := s.Online()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}

			online := s.Online()
			if online == last {
				continue
			}
			last = online
			s.logger.Debugf("Flag file %s changed (%s), online: %t", s.path, event.Op, online)

			select {
			case changes <- online:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warningf("Flag file watcher error: %s", err)
		}
	}
}
