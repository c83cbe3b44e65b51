package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasksync/internal/printer"
	tasksync "github.com/slok/tasksync/pkg/lib"
)

type RemoveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	format string
}

// NewRemoveCommand returns the remove command.
func NewRemoveCommand(rootCmd *RootCommand, app *kingpin.Application) *RemoveCommand {
	c := &RemoveCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rm", "Delete a task.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)
	c.Cmd.Flag("format", "Output format (table, json).").Default(printer.FormatTable).EnumVar(&c.format, printer.FormatTable, printer.FormatJSON)

	return c
}

func (c RemoveCommand) Name() string { return c.Cmd.FullCommand() }

func (c RemoveCommand) Run(ctx context.Context) error {
	client, err := c.rootCmd.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	task, err := findTask(client.FetchData(ctx).Tasks, c.id)
	if err != nil {
		return err
	}

	return submit(ctx, c.rootCmd, client, tasksync.Mutation{Kind: tasksync.MutationDelete, Task: task}, c.format)
}
