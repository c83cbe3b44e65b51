package model

import (
	"fmt"
	"strings"
	"time"
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

// Valid returns true if the status is a known one.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusInReview, TaskStatusCompleted, TaskStatusBlocked:
		return true
	}
	return false
}

// TaskPriority represents how urgent a task is.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Valid returns true if the priority is a known one.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// LocalIDPrefix is the prefix of the identifiers generated for tasks created
// while the remote API was not reachable.
const LocalIDPrefix = "local-"

// ProjectRef is the denormalized project reference stored on a task.
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task is the unit of work tracked by the application.
//
// A task is identified by ServerID once the remote API accepted it, or by a
// locally generated ID (see LocalIDPrefix) until then. IsSynced and IsLocal
// are sync metadata and never sent to the remote API.
type Task struct {
	ID             string       `json:"id,omitempty"`
	ServerID       string       `json:"_id,omitempty"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"dueDate,omitempty"`
	Project        ProjectRef   `json:"project,omitzero"`
	Assignee       string       `json:"assignee"`
	EstimatedHours float64      `json:"estimatedHours"`
	ActualHours    float64      `json:"actualHours"`
	CreatedAt      time.Time    `json:"createdAt,omitzero"`

	IsSynced bool `json:"isSynced"`
	IsLocal  bool `json:"isLocal"`
}

// Key returns the identity of the task, the server one has preference.
func (t Task) Key() string {
	if t.ServerID != "" {
		return t.ServerID
	}
	return t.ID
}

// HasID returns true if any of the task identities matches id.
func (t Task) HasID(id string) bool {
	if id == "" {
		return false
	}
	return t.ID == id || t.ServerID == id
}

// IsLocalOnly returns true if the task has never been accepted by the remote API.
func (t Task) IsLocalOnly() bool {
	return t.ServerID == "" && strings.HasPrefix(t.ID, LocalIDPrefix)
}

// Defaults sets the default values of the optional enum fields.
func (t *Task) Defaults() {
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
}

// Validate validates the task.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required: %w", ErrNotValid)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("unknown status %q: %w", t.Status, ErrNotValid)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("unknown priority %q: %w", t.Priority, ErrNotValid)
	}
	if t.EstimatedHours < 0 {
		return fmt.Errorf("estimated hours can't be negative: %w", ErrNotValid)
	}
	if t.ActualHours < 0 {
		return fmt.Errorf("actual hours can't be negative: %w", ErrNotValid)
	}
	return nil
}

// Project groups tasks. It is read mostly and cached the same way tasks are.
type Project struct {
	ID       string `json:"id,omitempty"`
	ServerID string `json:"_id,omitempty"`
	Name     string `json:"name"`
}

// Key returns the identity of the project, the server one has preference.
func (p Project) Key() string {
	if p.ServerID != "" {
		return p.ServerID
	}
	return p.ID
}
