package printer

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	tasksync "github.com/slok/tasksync/pkg/lib"
)

// TablePrinter prints information in a table format.
type TablePrinter struct {
	writer io.Writer
	now    func() time.Time
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w, now: time.Now}
}

func (t *TablePrinter) tab() *tabwriter.Writer {
	return tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
}

// PrintTasks prints tasks in a table format.
func (t *TablePrinter) PrintTasks(tasks []tasksync.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	now := t.now()
	tw := t.tab()
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tPROJECT\tDUE\tSYNC")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			task.Key(),
			task.Title,
			task.Status,
			task.Priority,
			orDash(task.Project.Name),
			Due(task.DueDate, now),
			syncLabel(task),
		)
	}

	return tw.Flush()
}

// PrintProjects prints projects in a table format.
func (t *TablePrinter) PrintProjects(projects []tasksync.Project) error {
	if len(projects) == 0 {
		return nil
	}

	tw := t.tab()
	fmt.Fprintln(tw, "ID\tNAME")
	for _, p := range projects {
		id := p.ServerID
		if id == "" {
			id = p.ID
		}
		fmt.Fprintf(tw, "%s\t%s\n", id, p.Name)
	}

	return tw.Flush()
}

// PrintOperations prints pending operations in a table format.
func (t *TablePrinter) PrintOperations(ops []tasksync.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	now := t.now()
	tw := t.tab()
	fmt.Fprintln(tw, "SEQ\tKIND\tTASK\tSTATUS\tATTEMPTS\tQUEUED\tERROR")
	for _, op := range ops {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			op.Sequence,
			op.Kind,
			op.TaskID,
			op.Status,
			op.Attempts,
			Ago(op.CreatedAt, now),
			orDash(op.Error),
		)
	}

	return tw.Flush()
}

// PrintNotification prints a mutation or sync outcome.
func (t *TablePrinter) PrintNotification(n tasksync.Notification) error {
	if n.Err != nil {
		_, err := fmt.Fprintf(t.writer, "[%s] %s: %s\n", n.Kind, n.Message, n.Err)
		return err
	}
	_, err := fmt.Fprintf(t.writer, "[%s] %s\n", n.Kind, n.Message)
	return err
}

// PrintSyncResult prints the summary of a replay pass.
func (t *TablePrinter) PrintSyncResult(r tasksync.SyncResult) error {
	fmt.Fprintf(t.writer, "Synced:   %d\n", r.Synced)
	fmt.Fprintf(t.writer, "Dropped:  %d\n", r.Dropped)
	fmt.Fprintf(t.writer, "Failed:   %d\n", r.Failed)
	fmt.Fprintf(t.writer, "Pending:  %d\n", r.Pending)
	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}

func syncLabel(t tasksync.Task) string {
	switch {
	case t.IsLocal:
		return "local"
	case !t.IsSynced:
		return "modified"
	default:
		return "synced"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
