package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasksync/internal/printer"
)

type PendingCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewPendingCommand returns the pending command.
func NewPendingCommand(rootCmd *RootCommand, app *kingpin.Application) *PendingCommand {
	c := &PendingCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("pending", "List the local changes not synced with the remote API yet.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(printer.FormatTable).EnumVar(&c.format, printer.FormatTable, printer.FormatJSON)

	return c
}

func (c PendingCommand) Name() string { return c.Cmd.FullCommand() }

func (c PendingCommand) Run(ctx context.Context) error {
	client, err := c.rootCmd.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	ops, err := client.PendingOperations(ctx)
	if err != nil {
		return fmt.Errorf("could not list pending operations: %w", err)
	}

	if err := c.rootCmd.Printer(c.format).PrintOperations(ops); err != nil {
		return fmt.Errorf("could not print pending operations: %w", err)
	}

	return nil
}
