package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasksync/internal/printer"
	tasksync "github.com/slok/tasksync/pkg/lib"
)

type StatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	status string
	format string
}

// NewStatusCommand returns the status command.
func NewStatusCommand(rootCmd *RootCommand, app *kingpin.Application) *StatusCommand {
	c := &StatusCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("status", "Change the status of a task.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)
	c.Cmd.Arg("status", "New status (todo, in_progress, in_review, completed, blocked).").Required().StringVar(&c.status)
	c.Cmd.Flag("format", "Output format (table, json).").Default(printer.FormatTable).EnumVar(&c.format, printer.FormatTable, printer.FormatJSON)

	return c
}

func (c StatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c StatusCommand) Run(ctx context.Context) error {
	status := tasksync.TaskStatus(strings.ToLower(c.status))
	if !validStatus(status) {
		return fmt.Errorf("invalid status: %s", c.status)
	}

	client, err := c.rootCmd.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	task, err := findTask(client.FetchData(ctx).Tasks, c.id)
	if err != nil {
		return err
	}
	task.Status = status

	return submit(ctx, c.rootCmd, client, tasksync.Mutation{Kind: tasksync.MutationStatusChange, Task: task}, c.format)
}
