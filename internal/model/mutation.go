package model

import "fmt"

// MutationKind is the kind of change requested on a task.
type MutationKind string

const (
	MutationCreate       MutationKind = "create"
	MutationUpdate       MutationKind = "update"
	MutationStatusChange MutationKind = "status_change"
	MutationDelete       MutationKind = "delete"
)

// Mutation is a change requested by a consumer on a task.
//
// Create and update carry the full task. Status change and delete only need
// the task identity (status change also needs Task.Status).
type Mutation struct {
	Kind MutationKind
	Task Task
}

// Validate validates the mutation.
func (m Mutation) Validate() error {
	switch m.Kind {
	case MutationCreate:
		return m.Task.Validate()
	case MutationUpdate:
		if m.Task.Key() == "" {
			return fmt.Errorf("task id is required: %w", ErrNotValid)
		}
		return m.Task.Validate()
	case MutationStatusChange:
		if m.Task.Key() == "" {
			return fmt.Errorf("task id is required: %w", ErrNotValid)
		}
		if !m.Task.Status.Valid() {
			return fmt.Errorf("unknown status %q: %w", m.Task.Status, ErrNotValid)
		}
		return nil
	case MutationDelete:
		if m.Task.Key() == "" {
			return fmt.Errorf("task id is required: %w", ErrNotValid)
		}
		return nil
	}

	return fmt.Errorf("unknown mutation kind %q: %w", m.Kind, ErrNotValid)
}

// NotificationKind classifies the outcome shown to the user.
type NotificationKind string

const (
	// NotificationSuccess means the remote API accepted the change.
	NotificationSuccess NotificationKind = "success"
	// NotificationSavedOffline means the change was stored locally and will be synced later.
	NotificationSavedOffline NotificationKind = "saved_offline"
	// NotificationWarning is a non fatal problem, cached data is being shown.
	NotificationWarning NotificationKind = "warning"
	// NotificationError is a real failure, nothing was stored.
	NotificationError NotificationKind = "error"
)

// Notification is the user facing outcome of an operation.
type Notification struct {
	Kind    NotificationKind
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// Failed returns true if the notification represents a hard failure.
func (n Notification) Failed() bool { return n.Kind == NotificationError }
