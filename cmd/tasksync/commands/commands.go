package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/printer"
	storageio "github.com/slok/tasksync/internal/storage/io"
	tasksync "github.com/slok/tasksync/pkg/lib"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug                bool
	NoLog                bool
	NoColor              bool
	LoggerType           string
	LogFile              string
	ConfigFile           string
	DBPath               string
	APIURL               string
	Token                string
	Timeout              time.Duration
	Offline              bool
	OfflineFlagFile      string
	PlatformConnectivity bool

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("log-file", "Write logs to a rotated file instead of stderr.").StringVar(&c.LogFile)
	app.Flag("config", "Path to a YAML settings file, flags take precedence over it.").Short('c').StringVar(&c.ConfigFile)
	app.Flag("db-path", "Path to the SQLite database file (default: ~/.tasksync/tasksync.db).").StringVar(&c.DBPath)
	app.Flag("api-url", "Remote Task API root URL.").StringVar(&c.APIURL)
	app.Flag("token", "Bearer token for the remote Task API.").StringVar(&c.Token)
	app.Flag("timeout", "Remote API request timeout.").DurationVar(&c.Timeout)
	app.Flag("offline", "Work offline, changes are kept as pending operations.").BoolVar(&c.Offline)
	app.Flag("offline-flag-file", "Be offline while this file exists.").StringVar(&c.OfflineFlagFile)
	app.Flag("platform-connectivity", "Follow the host network links to know the connectivity.").BoolVar(&c.PlatformConnectivity)

	return c
}

// Printer returns the printer for the output format.
func (r RootCommand) Printer(format string) printer.Printer {
	return printer.New(format, r.Stdout)
}

// NewClient returns a tasksync client configured from the global flags and
// the settings file.
func (r RootCommand) NewClient(ctx context.Context) (*tasksync.Client, error) {
	cfg, err := r.clientConfig(ctx)
	if err != nil {
		return nil, err
	}

	client, err := tasksync.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create tasksync client: %w", err)
	}

	return client, nil
}

func (r RootCommand) clientConfig(ctx context.Context) (tasksync.Config, error) {
	var settings model.Settings
	if r.ConfigFile != "" {
		s, err := loadSettings(ctx, r.ConfigFile)
		if err != nil {
			return tasksync.Config{}, fmt.Errorf("could not load settings: %w", err)
		}
		settings = s
	}

	cfg := tasksync.Config{
		APIURL:               firstNonZero(r.APIURL, settings.APIURL),
		Token:                firstNonZero(r.Token, settings.Token),
		DBPath:               firstNonZero(r.DBPath, settings.DBPath),
		RequestTimeout:       firstNonZero(r.Timeout, settings.RequestTimeout),
		Offline:              r.Offline,
		OfflineFlagFile:      firstNonZero(r.OfflineFlagFile, settings.OfflineFlagFile),
		PlatformConnectivity: r.PlatformConnectivity || settings.PlatformConnectivity,
		ReplayRate:           settings.ReplayRate,
		MaxAttempts:          settings.MaxAttempts,
		Logger:               r.Logger,
	}

	// The --offline flag wins over any connectivity source of the settings file.
	if cfg.Offline {
		cfg.OfflineFlagFile = r.OfflineFlagFile
		cfg.PlatformConnectivity = r.PlatformConnectivity
	}

	if cfg.APIURL == "" {
		return tasksync.Config{}, fmt.Errorf("api URL is required, use --api-url or the settings file")
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(homedir.HomeDir(), ".tasksync", "tasksync.db")
	}

	return cfg, nil
}

func loadSettings(ctx context.Context, path string) (model.Settings, error) {
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return model.Settings{}, fmt.Errorf("could not resolve settings path: %w", err)
		}
		path = absPath
	}

	repo := storageio.NewSettingsYAMLRepository(os.DirFS("/"))
	return repo.GetSettings(ctx, path[1:])
}

func firstNonZero[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// findTask returns the task identified by id, either its local or its server ID.
func findTask(tasks []tasksync.Task, id string) (tasksync.Task, error) {
	for _, t := range tasks {
		if t.ID == id || (t.ServerID != "" && t.ServerID == id) {
			return t, nil
		}
	}
	return tasksync.Task{}, fmt.Errorf("task %q: %w", id, tasksync.ErrNotFound)
}

// findProject returns the project matching an ID or a name.
func findProject(projects []tasksync.Project, idOrName string) (tasksync.ProjectRef, error) {
	for _, p := range projects {
		if p.ID == idOrName || (p.ServerID != "" && p.ServerID == idOrName) || p.Name == idOrName {
			id := p.ServerID
			if id == "" {
				id = p.ID
			}
			return tasksync.ProjectRef{ID: id, Name: p.Name}, nil
		}
	}
	return tasksync.ProjectRef{}, fmt.Errorf("project %q: %w", idOrName, tasksync.ErrNotFound)
}

// submit sends the mutation and prints its outcome, failed mutations are
// returned as errors.
func submit(ctx context.Context, rootCmd *RootCommand, client *tasksync.Client, m tasksync.Mutation, format string) error {
	n := client.SubmitMutation(ctx, m)
	if err := rootCmd.Printer(format).PrintNotification(n); err != nil {
		return fmt.Errorf("could not print notification: %w", err)
	}

	if n.Failed() {
		if n.Err != nil {
			return fmt.Errorf("%s: %w", n.Message, n.Err)
		}
		return fmt.Errorf("%s", n.Message)
	}

	return nil
}
