package printer

import (
	"encoding/json"
	"io"
	"time"

	tasksync "github.com/slok/tasksync/pkg/lib"
)

// JSONPrinter prints information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type taskOutput struct {
	ID             string     `json:"id"`
	ServerID       string     `json:"server_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ProjectID      string     `json:"project_id,omitempty"`
	ProjectName    string     `json:"project_name,omitempty"`
	Assignee       string     `json:"assignee,omitempty"`
	EstimatedHours float64    `json:"estimated_hours,omitempty"`
	ActualHours    float64    `json:"actual_hours,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	Synced         bool       `json:"synced"`
	Local          bool       `json:"local"`
}

type projectOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type operationOutput struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	Kind      string    `json:"kind"`
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type notificationOutput struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type syncResultOutput struct {
	Synced  int `json:"synced"`
	Dropped int `json:"dropped"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

type messageOutput struct {
	Message string `json:"message"`
}

// PrintTasks prints tasks in JSON format.
func (j *JSONPrinter) PrintTasks(tasks []tasksync.Task) error {
	items := make([]taskOutput, 0, len(tasks))
	for _, t := range tasks {
		item := taskOutput{
			ID:             t.ID,
			ServerID:       t.ServerID,
			Title:          t.Title,
			Description:    t.Description,
			Status:         string(t.Status),
			Priority:       string(t.Priority),
			ProjectID:      t.Project.ID,
			ProjectName:    t.Project.Name,
			Assignee:       t.Assignee,
			EstimatedHours: t.EstimatedHours,
			ActualHours:    t.ActualHours,
			Synced:         t.IsSynced,
			Local:          t.IsLocal,
		}
		if t.DueDate != nil {
			due := t.DueDate.UTC()
			item.DueDate = &due
		}
		if !t.CreatedAt.IsZero() {
			created := t.CreatedAt.UTC()
			item.CreatedAt = &created
		}
		items = append(items, item)
	}

	return j.encode(items)
}

// PrintProjects prints projects in JSON format.
func (j *JSONPrinter) PrintProjects(projects []tasksync.Project) error {
	items := make([]projectOutput, 0, len(projects))
	for _, p := range projects {
		id := p.ServerID
		if id == "" {
			id = p.ID
		}
		items = append(items, projectOutput{ID: id, Name: p.Name})
	}

	return j.encode(items)
}

// PrintOperations prints pending operations in JSON format.
func (j *JSONPrinter) PrintOperations(ops []tasksync.Operation) error {
	items := make([]operationOutput, 0, len(ops))
	for _, op := range ops {
		items = append(items, operationOutput{
			ID:        op.ID,
			Sequence:  op.Sequence,
			Kind:      string(op.Kind),
			TaskID:    op.TaskID,
			Status:    string(op.Status),
			Attempts:  op.Attempts,
			Error:     op.Error,
			CreatedAt: op.CreatedAt.UTC(),
		})
	}

	return j.encode(items)
}

// PrintNotification prints a mutation or sync outcome in JSON format.
func (j *JSONPrinter) PrintNotification(n tasksync.Notification) error {
	out := notificationOutput{Kind: string(n.Kind), Message: n.Message}
	if n.Err != nil {
		out.Error = n.Err.Error()
	}
	return j.encode(out)
}

// PrintSyncResult prints the summary of a replay pass in JSON format.
func (j *JSONPrinter) PrintSyncResult(r tasksync.SyncResult) error {
	return j.encode(syncResultOutput{
		Synced:  r.Synced,
		Dropped: r.Dropped,
		Failed:  r.Failed,
		Pending: r.Pending,
	})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
