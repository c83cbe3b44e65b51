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

type CreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	title       string
	description string
	status      string
	priority    string
	project     string
	assignee    string
	estimate    float64
	due         string
	format      string
}

// NewCreateCommand returns the create command.
func NewCreateCommand(rootCmd *RootCommand, app *kingpin.Application) *CreateCommand {
	c := &CreateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("create", "Create a task, saved locally when the remote API can't be reached.")
	c.Cmd.Arg("title", "Task title.").Required().StringVar(&c.title)
	c.Cmd.Flag("description", "Task description.").Short('d').StringVar(&c.description)
	c.Cmd.Flag("status", "Task status.").Default(string(tasksync.TaskStatusTodo)).StringVar(&c.status)
	c.Cmd.Flag("priority", "Task priority (low, medium, high, urgent).").Short('p').Default(string(tasksync.TaskPriorityMedium)).StringVar(&c.priority)
	c.Cmd.Flag("project", "Project ID or name.").StringVar(&c.project)
	c.Cmd.Flag("assignee", "Task assignee.").StringVar(&c.assignee)
	c.Cmd.Flag("estimate", "Estimated hours.").Float64Var(&c.estimate)
	c.Cmd.Flag("due", `Due date, e.g. "2026-05-01", "tomorrow 5pm" or "next friday".`).StringVar(&c.due)
	c.Cmd.Flag("format", "Output format (table, json).").Default(printer.FormatTable).EnumVar(&c.format, printer.FormatTable, printer.FormatJSON)

	return c
}

func (c CreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c CreateCommand) Run(ctx context.Context) error {
	task := tasksync.Task{
		Title:          c.title,
		Description:    c.description,
		Status:         tasksync.TaskStatus(strings.ToLower(c.status)),
		Priority:       tasksync.TaskPriority(strings.ToLower(c.priority)),
		Assignee:       c.assignee,
		EstimatedHours: c.estimate,
	}
	if !validStatus(task.Status) {
		return fmt.Errorf("invalid status: %s", c.status)
	}
	if !validPriority(task.Priority) {
		return fmt.Errorf("invalid priority: %s", c.priority)
	}

	due, err := parseDue(c.due, time.Now())
	if err != nil {
		return err
	}
	task.DueDate = due

	client, err := c.rootCmd.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if c.project != "" {
		state := client.FetchData(ctx)
		project, err := findProject(state.Projects, c.project)
		if err != nil {
			return err
		}
		task.Project = project
	}

	return submit(ctx, c.rootCmd, client, tasksync.Mutation{Kind: tasksync.MutationCreate, Task: task}, c.format)
}
