// Package remote has the contract of the remote Task API.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/slok/tasksync/internal/model"
)

// Paths of the remote Task API resources.
const (
	PathTasks    = "/tasks"
	PathProjects = "/projects"
)

// HeaderIdempotencyKey is the HTTP header carrying the correlation ID of a
// replayed operation, the API answers a repeated create with the same key
// without creating the task again.
const HeaderIdempotencyKey = "Idempotency-Key"

type idempotencyKeyCtxKey struct{}

// WithIdempotencyKey returns a context whose API calls carry key as idempotency key.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtxKey{}, key)
}

// IdempotencyKey returns the idempotency key of the context, if any.
func IdempotencyKey(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtxKey{}).(string)
	return key
}

// API is the remote Task API. Any non 2xx answer is returned as a
// *StatusError, that wraps model.ErrRemote.
type API interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	CreateTask(ctx context.Context, t model.Task) error
	UpdateTask(ctx context.Context, t model.Task) error
	ChangeTaskStatus(ctx context.Context, id string, status model.TaskStatus) error
	DeleteTask(ctx context.Context, id string) error
}

// StripSyncMetadata returns the JSON object of a task without the fields that
// only make sense on the client side.
func StripSyncMetadata(fields map[string]any) map[string]any {
	delete(fields, "isSynced")
	delete(fields, "isLocal")
	return fields
}

// StatusError is a non 2xx answer of the remote API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote API answered %d", e.StatusCode)
	}
	return fmt.Sprintf("remote API answered %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return model.ErrRemote }

// IsNotFound returns true if the error is a 404 answer.
func IsNotFound(err error) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound
}
