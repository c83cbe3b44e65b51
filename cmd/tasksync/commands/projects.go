package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasksync/internal/printer"
)

type ProjectsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewProjectsCommand returns the projects command.
func NewProjectsCommand(rootCmd *RootCommand, app *kingpin.Application) *ProjectsCommand {
	c := &ProjectsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("projects", "List projects.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(printer.FormatTable).EnumVar(&c.format, printer.FormatTable, printer.FormatJSON)

	return c
}

func (c ProjectsCommand) Name() string { return c.Cmd.FullCommand() }

func (c ProjectsCommand) Run(ctx context.Context) error {
	client, err := c.rootCmd.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	state := client.FetchData(ctx)
	if state.Notification != nil {
		fmt.Fprintf(c.rootCmd.Stderr, "Warning: %s\n", state.Notification.Message)
	}

	if err := c.rootCmd.Printer(c.format).PrintProjects(state.Projects); err != nil {
		return fmt.Errorf("could not print projects: %w", err)
	}

	return nil
}
