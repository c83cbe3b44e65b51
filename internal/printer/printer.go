package printer

import (
	"io"

	tasksync "github.com/slok/tasksync/pkg/lib"
)

const (
	// FormatTable prints aligned columns for humans.
	FormatTable = "table"
	// FormatJSON prints indented JSON.
	FormatJSON = "json"
)

// Printer knows how to print task sync information in different formats.
type Printer interface {
	PrintTasks(tasks []tasksync.Task) error
	PrintProjects(projects []tasksync.Project) error
	PrintOperations(ops []tasksync.Operation) error
	PrintNotification(n tasksync.Notification) error
	PrintSyncResult(r tasksync.SyncResult) error
	PrintMessage(msg string) error
}

// New returns the printer for a format, unknown formats print tables.
func New(format string, w io.Writer) Printer {
	if format == FormatJSON {
		return NewJSONPrinter(w)
	}
	return NewTablePrinter(w)
}
