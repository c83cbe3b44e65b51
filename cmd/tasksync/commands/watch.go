package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/slok/tasksync/internal/printer"
	tasksync "github.com/slok/tasksync/pkg/lib"
)

type WatchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	interval time.Duration
	format   string
}

// NewWatchCommand returns the watch command.
func NewWatchCommand(rootCmd *RootCommand, app *kingpin.Application) *WatchCommand {
	c := &WatchCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("watch", "Keep running and sync the pending changes every time the connectivity returns.")
	c.Cmd.Flag("retry-interval", "Retry the pending changes periodically, 0 disables it.").Default("1m").DurationVar(&c.interval)
	c.Cmd.Flag("format", "Output format (table, json).").Default(printer.FormatTable).EnumVar(&c.format, printer.FormatTable, printer.FormatJSON)

	return c
}

func (c WatchCommand) Name() string { return c.Cmd.FullCommand() }

func (c WatchCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.clientConfig(ctx)
	if err != nil {
		return err
	}
	cfg.SyncInterval = c.interval

	client, err := tasksync.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("could not create tasksync client: %w", err)
	}
	defer client.Close()

	updates, unsubscribe := client.Subscribe()
	defer unsubscribe()

	p := c.rootCmd.Printer(c.format)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group

	// Sync loop.
	{
		g.Add(
			func() error {
				return client.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// State changes.
	{
		g.Add(
			func() error {
				var lastNotification tasksync.Notification
				online := client.Online()
				logger.Infof("Watching, online: %t", online)

				for {
					select {
					case <-ctx.Done():
						return nil
					case st, ok := <-updates:
						if !ok {
							return nil
						}
						if st.Online != online {
							online = st.Online
							logger.Infof("Connectivity changed, online: %t", online)
						}
						if st.Notification == nil || sameNotification(*st.Notification, lastNotification) {
							continue
						}
						lastNotification = *st.Notification
						if err := p.PrintNotification(lastNotification); err != nil {
							return fmt.Errorf("could not print notification: %w", err)
						}
					}
				}
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

func sameNotification(a, b tasksync.Notification) bool {
	return a.Kind == b.Kind && a.Message == b.Message
}
