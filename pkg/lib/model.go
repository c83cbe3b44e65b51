package lib

import (
	"time"

	"github.com/slok/tasksync/internal/app/replay"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/state"
)

// StorageType identifies the local store implementation.
type StorageType string

const (
	// StorageSQLite persists the local store on a SQLite database file.
	StorageSQLite StorageType = "sqlite"
	// StorageMemory keeps the local store in memory, it's lost on Close.
	// Use this for unit testing.
	StorageMemory StorageType = "memory"
)

// TaskStatus represents the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusInReview   TaskStatus = "in_review"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// TaskPriority represents how urgent a task is.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// ProjectRef is the project a task belongs to.
type ProjectRef struct {
	ID   string
	Name string
}

// Task is a task as seen by the client.
//
// A task created while offline has a local ID (prefixed with `local-`) and
// IsLocal set until the remote API accepts it.
type Task struct {
	// ID is the client facing identity.
	ID string
	// ServerID is the identity assigned by the remote API, if any.
	ServerID       string
	Title          string
	Description    string
	Status         TaskStatus
	Priority       TaskPriority
	DueDate        *time.Time
	Project        ProjectRef
	Assignee       string
	EstimatedHours float64
	ActualHours    float64
	CreatedAt      time.Time
	// IsSynced is true when the task is known to match the remote state.
	IsSynced bool
	// IsLocal is true when the task has never been accepted by the remote API.
	IsLocal bool
}

// Key returns the identity to use on mutations.
func (t Task) Key() string {
	if t.ServerID != "" {
		return t.ServerID
	}
	return t.ID
}

// Project groups tasks.
type Project struct {
	ID       string
	ServerID string
	Name     string
}

// MutationKind is the kind of change requested on a task.
type MutationKind string

const (
	MutationCreate       MutationKind = "create"
	MutationUpdate       MutationKind = "update"
	MutationStatusChange MutationKind = "status_change"
	MutationDelete       MutationKind = "delete"
)

// Mutation is a change on a task.
//
// Create and update need the full task, status change only the task identity
// and the new status, delete only the task identity.
type Mutation struct {
	Kind MutationKind
	Task Task
}

// NotificationKind classifies the outcome of an operation.
type NotificationKind string

const (
	// NotificationSuccess means the remote API accepted the change.
	NotificationSuccess NotificationKind = "success"
	// NotificationSavedOffline means the change was stored locally and will be synced later.
	NotificationSavedOffline NotificationKind = "saved_offline"
	// NotificationWarning is a non fatal problem, e.g. cached data is being shown.
	NotificationWarning NotificationKind = "warning"
	// NotificationError is a real failure, nothing was stored.
	NotificationError NotificationKind = "error"
)

// Notification is the user facing outcome of an operation.
type Notification struct {
	Kind    NotificationKind
	Message string
	// Err is the underlying cause, if any. It supports [errors.Is] with the
	// package sentinel errors.
	Err error
}

// Failed returns true if the notification represents a hard failure.
func (n Notification) Failed() bool { return n.Kind == NotificationError }

// OperationStatus is the replay state of a pending operation.
type OperationStatus string

const (
	OperationStatusPending OperationStatus = "pending"
	OperationStatusDone    OperationStatus = "done"
	OperationStatusFailed  OperationStatus = "failed"
)

// Operation is a local change waiting to be sent to the remote API.
type Operation struct {
	ID        string
	Sequence  int
	Kind      MutationKind
	TaskID    string
	Payload   Task
	Status    OperationStatus
	Error     string
	Attempts  int
	CreatedAt time.Time
}

// State is a snapshot of the client state.
type State struct {
	Tasks    []Task
	Projects []Project
	Online   bool
	// Loading is true while the data is being refreshed.
	Loading bool
	// Notification is the last outcome, nil if there wasn't any.
	Notification *Notification
}

// SyncResult is the outcome of a sync.
type SyncResult struct {
	// Synced is the number of operations accepted by the remote API.
	Synced int
	// Dropped is the number of operations on tasks removed remotely.
	Dropped int
	// Failed is the number of operations rejected too many times.
	Failed int
	// Pending is the number of operations left for a later sync.
	Pending int
}

// --- Conversion functions ---

func toInternalTask(t Task) model.Task {
	return model.Task{
		ID:             t.ID,
		ServerID:       t.ServerID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         model.TaskStatus(t.Status),
		Priority:       model.TaskPriority(t.Priority),
		DueDate:        t.DueDate,
		Project:        model.ProjectRef{ID: t.Project.ID, Name: t.Project.Name},
		Assignee:       t.Assignee,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		CreatedAt:      t.CreatedAt,
		IsSynced:       t.IsSynced,
		IsLocal:        t.IsLocal,
	}
}

func fromInternalTask(t model.Task) Task {
	return Task{
		ID:             t.ID,
		ServerID:       t.ServerID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         TaskStatus(t.Status),
		Priority:       TaskPriority(t.Priority),
		DueDate:        t.DueDate,
		Project:        ProjectRef{ID: t.Project.ID, Name: t.Project.Name},
		Assignee:       t.Assignee,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		CreatedAt:      t.CreatedAt,
		IsSynced:       t.IsSynced,
		IsLocal:        t.IsLocal,
	}
}

func fromInternalTaskList(ts []model.Task) []Task {
	result := make([]Task, len(ts))
	for i, t := range ts {
		result[i] = fromInternalTask(t)
	}
	return result
}

func fromInternalProjectList(ps []model.Project) []Project {
	result := make([]Project, len(ps))
	for i, p := range ps {
		result[i] = Project{ID: p.ID, ServerID: p.ServerID, Name: p.Name}
	}
	return result
}

func toInternalMutation(m Mutation) model.Mutation {
	return model.Mutation{
		Kind: model.MutationKind(m.Kind),
		Task: toInternalTask(m.Task),
	}
}

func fromInternalNotification(n model.Notification) Notification {
	return Notification{
		Kind:    NotificationKind(n.Kind),
		Message: n.Message,
		Err:     mapError(n.Err),
	}
}

func fromInternalOperationList(ops []model.Operation) []Operation {
	result := make([]Operation, len(ops))
	for i, op := range ops {
		result[i] = Operation{
			ID:        op.ID,
			Sequence:  op.Sequence,
			Kind:      MutationKind(op.Kind),
			TaskID:    op.TaskID,
			Payload:   fromInternalTask(op.Payload),
			Status:    OperationStatus(op.Status),
			Error:     op.Error,
			Attempts:  op.Attempts,
			CreatedAt: op.CreatedAt,
		}
	}
	return result
}

func fromInternalState(s state.Snapshot) State {
	st := State{
		Tasks:    fromInternalTaskList(s.Tasks),
		Projects: fromInternalProjectList(s.Projects),
		Online:   s.Online,
		Loading:  s.Loading,
	}
	if s.Notification != nil {
		n := fromInternalNotification(*s.Notification)
		st.Notification = &n
	}
	return st
}

func fromInternalSyncResult(r replay.Result) SyncResult {
	return SyncResult{
		Synced:  r.Synced,
		Dropped: r.Dropped,
		Failed:  r.Failed,
		Pending: r.Pending,
	}
}

// --- Error mapping ---

// mapError converts internal sentinel errors to public SDK sentinel errors.
// The returned error preserves the original error message while supporting
// errors.Is() checks against public sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isInternalError(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case isInternalError(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case isInternalError(err, model.ErrQuotaExceeded):
		return joinErrors(err, ErrQuotaExceeded)
	case isInternalError(err, model.ErrRemote):
		return joinErrors(err, ErrRemote)
	default:
		return err
	}
}

// isInternalError checks if err wraps the target sentinel without using
// errors.Is (which would match public sentinels too after joining).
func isInternalError(err, target error) bool {
	for {
		if err == target {
			return true
		}
		unwrapped := unwrapSingle(err)
		if unwrapped == nil {
			return false
		}
		err = unwrapped
	}
}

func unwrapSingle(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

// joinErrors wraps the original error so errors.Is works for both the
// public sentinel and the original chain.
func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
