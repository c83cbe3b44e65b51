package storage

import (
	"context"

	"github.com/slok/tasksync/internal/model"
)

// Collection keys used by the sync core.
const (
	KeyTasks    = "tasks"
	KeyProjects = "projects"
)

// KV is a string keyed, string valued persistent store, the equivalent of a
// browser local storage. Implementations can have a size quota, writes that
// don't fit must fail with model.ErrQuotaExceeded.
type KV interface {
	// Get returns the value stored on key, ok is false when the key is missing.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set replaces the value stored on key.
	Set(ctx context.Context, key, value string) error
}

// OperationRepository is the interface for the pending operations log.
type OperationRepository interface {
	// AppendOperation adds an operation at the end of the log, ID, sequence,
	// status and creation time are set by the repository.
	AppendOperation(ctx context.Context, op model.Operation) (*model.Operation, error)
	// ListPendingOperations returns the pending operations in log order.
	ListPendingOperations(ctx context.Context) ([]model.Operation, error)
	// ListOperations returns all the operations in log order.
	ListOperations(ctx context.Context) ([]model.Operation, error)
	// UpdateOperation updates the payload, status, error and attempts of an operation.
	UpdateOperation(ctx context.Context, op model.Operation) error
	// DeleteOperation removes an operation from the log.
	DeleteOperation(ctx context.Context, id string) error
	// ClearDone removes all the operations already confirmed by the remote API.
	ClearDone(ctx context.Context) (int, error)
}
