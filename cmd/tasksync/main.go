package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/slok/tasksync/cmd/tasksync/commands"
	"github.com/slok/tasksync/internal/log"
	loglogrus "github.com/slok/tasksync/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("tasksync", "Local-first task client that keeps working offline.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	listCmd := commands.NewListCommand(rootCmd, app)
	projectsCmd := commands.NewProjectsCommand(rootCmd, app)
	createCmd := commands.NewCreateCommand(rootCmd, app)
	updateCmd := commands.NewUpdateCommand(rootCmd, app)
	statusCmd := commands.NewStatusCommand(rootCmd, app)
	removeCmd := commands.NewRemoveCommand(rootCmd, app)
	pendingCmd := commands.NewPendingCommand(rootCmd, app)
	syncCmd := commands.NewSyncCommand(rootCmd, app)
	watchCmd := commands.NewWatchCommand(rootCmd, app)
	fakeAPICmd := commands.NewFakeAPICommand(rootCmd, app)

	cmds := map[string]commands.Command{
		listCmd.Name():     listCmd,
		projectsCmd.Name(): projectsCmd,
		createCmd.Name():   createCmd,
		updateCmd.Name():   updateCmd,
		statusCmd.Name():   statusCmd,
		removeCmd.Name():   removeCmd,
		pendingCmd.Name():  pendingCmd,
		syncCmd.Name():     syncCmd,
		watchCmd.Name():    watchCmd,
		fakeAPICmd.Name():  fakeAPICmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Commands printing tables or JSON don't log unless debugging, the
	// output would be mixed on the terminal.
	printerCommands := map[string]bool{
		"list":     true,
		"projects": true,
		"pending":  true,
	}
	if printerCommands[cmdName] && !rootCmd.Debug && rootCmd.LogFile == "" {
		rootCmd.NoLog = true
	}

	// Set logger.
	logger, closeLogger := getLogger(*rootCmd)
	defer closeLogger()
	rootCmd.Logger = logger

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger and a function to release its output.
func getLogger(config commands.RootCommand) (log.Logger, func()) {
	if config.NoLog {
		return log.Noop, func() {}
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	closeOut := func() {}
	if config.LogFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    10, // MB.
			MaxBackups: 3,
			MaxAge:     28, // Days.
		}
		logrusLog.Out = rotated
		closeOut = func() { _ = rotated.Close() }
	}
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		noColor := config.NoColor || config.LogFile != ""
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			DisableColors: noColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger, closeOut
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
