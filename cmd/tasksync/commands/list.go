package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasksync/internal/printer"
	tasksync "github.com/slok/tasksync/pkg/lib"
)

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	statusFilter string
	project      string
	format       string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List tasks, from the remote API when online or from the local cache otherwise.")
	c.Cmd.Alias("ls")
	c.Cmd.Flag("status", "Filter by status (todo, in_progress, in_review, completed, blocked).").StringVar(&c.statusFilter)
	c.Cmd.Flag("project", "Filter by project ID or name.").StringVar(&c.project)
	c.Cmd.Flag("format", "Output format (table, json).").Default(printer.FormatTable).EnumVar(&c.format, printer.FormatTable, printer.FormatJSON)

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	var statusFilter tasksync.TaskStatus
	if c.statusFilter != "" {
		statusFilter = tasksync.TaskStatus(strings.ToLower(c.statusFilter))
		if !validStatus(statusFilter) {
			return fmt.Errorf("invalid status filter: %s", c.statusFilter)
		}
	}

	client, err := c.rootCmd.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	state := client.FetchData(ctx)
	if state.Notification != nil {
		fmt.Fprintf(c.rootCmd.Stderr, "Warning: %s\n", state.Notification.Message)
	}

	tasks := state.Tasks
	if statusFilter != "" || c.project != "" {
		tasks = filterTasks(tasks, statusFilter, c.project)
	}

	if err := c.rootCmd.Printer(c.format).PrintTasks(tasks); err != nil {
		return fmt.Errorf("could not print tasks: %w", err)
	}

	return nil
}

func filterTasks(tasks []tasksync.Task, status tasksync.TaskStatus, project string) []tasksync.Task {
	filtered := []tasksync.Task{}
	for _, t := range tasks {
		if status != "" && t.Status != status {
			continue
		}
		if project != "" && t.Project.ID != project && t.Project.Name != project {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

func validStatus(s tasksync.TaskStatus) bool {
	switch s {
	case tasksync.TaskStatusTodo, tasksync.TaskStatusInProgress, tasksync.TaskStatusInReview,
		tasksync.TaskStatusCompleted, tasksync.TaskStatusBlocked:
		return true
	}
	return false
}

func validPriority(p tasksync.TaskPriority) bool {
	switch p {
	case tasksync.TaskPriorityLow, tasksync.TaskPriorityMedium, tasksync.TaskPriorityHigh, tasksync.TaskPriorityUrgent:
		return true
	}
	return false
}
