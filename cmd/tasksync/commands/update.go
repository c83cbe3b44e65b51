package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasksync/internal/printer"
	tasksync "github.com/slok/tasksync/pkg/lib"
)

type UpdateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id          string
	title       *string
	description *string
	priority    *string
	project     *string
	assignee    *string
	estimate    *float64
	actual      *float64
	due         *string
	format      string
}

// NewUpdateCommand returns the update command.
func NewUpdateCommand(rootCmd *RootCommand, app *kingpin.Application) *UpdateCommand {
	c := &UpdateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("update", "Update task fields, only the set flags are changed.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)
	c.title = c.Cmd.Flag("title", "Task title.").String()
	c.description = c.Cmd.Flag("description", "Task description.").Short('d').String()
	c.priority = c.Cmd.Flag("priority", "Task priority (low, medium, high, urgent).").Short('p').String()
	c.project = c.Cmd.Flag("project", "Project ID or name.").String()
	c.assignee = c.Cmd.Flag("assignee", "Task assignee.").String()
	c.estimate = c.Cmd.Flag("estimate", "Estimated hours.").Float64()
	c.actual = c.Cmd.Flag("actual", "Actual hours spent.").Float64()
	c.due = c.Cmd.Flag("due", `Due date, e.g. "2026-05-01" or "next friday".`).String()
	c.Cmd.Flag("format", "Output format (table, json).").Default(printer.FormatTable).EnumVar(&c.format, printer.FormatTable, printer.FormatJSON)

	return c
}

func (c UpdateCommand) Name() string { return c.Cmd.FullCommand() }

func (c UpdateCommand) Run(ctx context.Context) error {
	client, err := c.rootCmd.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	state := client.FetchData(ctx)
	task, err := findTask(state.Tasks, c.id)
	if err != nil {
		return err
	}

	if *c.title != "" {
		task.Title = *c.title
	}
	if *c.description != "" {
		task.Description = *c.description
	}
	if *c.priority != "" {
		task.Priority = tasksync.TaskPriority(strings.ToLower(*c.priority))
		if !validPriority(task.Priority) {
			return fmt.Errorf("invalid priority: %s", *c.priority)
		}
	}
	if *c.project != "" {
		project, err := findProject(state.Projects, *c.project)
		if err != nil {
			return err
		}
		task.Project = project
	}
	if *c.assignee != "" {
		task.Assignee = *c.assignee
	}
	if *c.estimate != 0 {
		task.EstimatedHours = *c.estimate
	}
	if *c.actual != 0 {
		task.ActualHours = *c.actual
	}
	if *c.due != "" {
		due, err := parseDue(*c.due, time.Now())
		if err != nil {
			return err
		}
		task.DueDate = due
	}

	return submit(ctx, c.rootCmd, client, tasksync.Mutation{Kind: tasksync.MutationUpdate, Task: task}, c.format)
}
