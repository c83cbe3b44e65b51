// Package fake has an in-memory remote Task API with failure injection.
//
// The API can be used directly as a remote.API or served over HTTP with the
// same REST contract as the real one (see NewHandler).
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/remote"
)

// Method identifies an API operation for failure injection and call accounting.
type Method string

const (
	MethodListTasks    Method = "list_tasks"
	MethodListProjects Method = "list_projects"
	MethodCreateTask   Method = "create_task"
	MethodUpdateTask   Method = "update_task"
	MethodDeleteTask   Method = "delete_task"
)

// APIConfig is the configuration of the fake API.
type APIConfig struct {
	Tasks    []model.Task
	Projects []model.Project
	// Latency is added to every call.
	Latency time.Duration
}

// API is an in-memory remote Task API. Safe for concurrent use.
type API struct {
	mu       sync.Mutex
	tasks    []model.Task
	projects []model.Project
	failures map[Method]int
	calls    map[Method]int
	latency  time.Duration

	idempotencyKeys map[string]string
}

var _ remote.API = &API{}

// NewAPI returns a new fake API seeded with the config data.
func NewAPI(cfg APIConfig) *API {
	a := &API{
		tasks:    append([]model.Task{}, cfg.Tasks...),
		projects: append([]model.Project{}, cfg.Projects...),
		failures: map[Method]int{},
		calls:    map[Method]int{},
		latency:  cfg.Latency,

		idempotencyKeys: map[string]string{},
	}
	for i := range a.tasks {
		a.tasks[i].IsSynced = false
		a.tasks[i].IsLocal = false
	}
	return a
}

// FailWith makes every call to the method answer with the HTTP status code
// until Recover is called.
func (a *API) FailWith(m Method, statusCode int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[m] = statusCode
}

// Recover removes the injected failure of the method.
func (a *API) Recover(m Method) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.failures, m)
}

// SetLatency changes the latency added to every call.
func (a *API) SetLatency(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latency = d
}

// Calls returns the number of calls received by the method, failed ones included.
func (a *API) Calls(m Method) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[m]
}

// TotalCalls returns the number of calls received by the API.
func (a *API) TotalCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := 0
	for _, n := range a.calls {
		total += n
	}
	return total
}

// Tasks returns a copy of the stored tasks.
func (a *API) Tasks() []model.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Task{}, a.tasks...)
}

func (a *API) ListTasks(ctx context.Context) ([]model.Task, error) {
	if err := a.enter(ctx, MethodListTasks); err != nil {
		return nil, err
	}
	return a.Tasks(), nil
}

func (a *API) ListProjects(ctx context.Context) ([]model.Project, error) {
	if err := a.enter(ctx, MethodListProjects); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Project{}, a.projects...), nil
}

func (a *API) CreateTask(ctx context.Context, t model.Task) error {
	if err := a.enter(ctx, MethodCreateTask); err != nil {
		return err
	}
	_, err := a.create(t, remote.IdempotencyKey(ctx))
	return err
}

func (a *API) UpdateTask(ctx context.Context, t model.Task) error {
	if err := a.enter(ctx, MethodUpdateTask); err != nil {
		return err
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("could not marshal task: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("could not unmarshal task: %w", err)
	}
	return a.patch(t.Key(), fields)
}

func (a *API) ChangeTaskStatus(ctx context.Context, id string, status model.TaskStatus) error {
	if err := a.enter(ctx, MethodUpdateTask); err != nil {
		return err
	}

	s, _ := json.Marshal(status)
	return a.patch(id, map[string]json.RawMessage{"status": s})
}

func (a *API) DeleteTask(ctx context.Context, id string) error {
	if err := a.enter(ctx, MethodDeleteTask); err != nil {
		return err
	}
	return a.delete(id)
}

// enter accounts the call and returns the injected failure, if any.
func (a *API) enter(ctx context.Context, m Method) error {
	a.mu.Lock()
	a.calls[m]++
	code, failing := a.failures[m]
	latency := a.latency
	a.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if failing {
		return &remote.StatusError{StatusCode: code, Message: "injected failure"}
	}
	return nil
}

// create adds the task, a create repeating an idempotency key returns the
// task created the first time.
func (a *API) create(t model.Task, idempotencyKey string) (model.Task, error) {
	t.Defaults()
	if err := t.Validate(); err != nil {
		return model.Task{}, &remote.StatusError{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}

	id := ulid.Make().String()
	t.ID = id
	t.ServerID = id
	t.IsSynced = false
	t.IsLocal = false
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if idempotencyKey != "" {
		if id, ok := a.idempotencyKeys[idempotencyKey]; ok {
			for _, existing := range a.tasks {
				if existing.ServerID == id {
					return existing, nil
				}
			}
		}
		a.idempotencyKeys[idempotencyKey] = t.ServerID
	}
	a.tasks = append(a.tasks, t)
	return t, nil
}

// patch shallow merges the fields into the task identified by id.
func (a *API) patch(id string, fields map[string]json.RawMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, t := range a.tasks {
		if !t.HasID(id) {
			continue
		}

		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("could not marshal task: %w", err)
		}
		current := map[string]json.RawMessage{}
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("could not unmarshal task: %w", err)
		}
		for k, v := range fields {
			switch k {
			case "id", "_id", "isSynced", "isLocal":
				continue
			}
			current[k] = v
		}

		data, err = json.Marshal(current)
		if err != nil {
			return fmt.Errorf("could not marshal task: %w", err)
		}
		var updated model.Task
		if err := json.Unmarshal(data, &updated); err != nil {
			return &remote.StatusError{StatusCode: http.StatusBadRequest, Message: err.Error()}
		}
		if err := updated.Validate(); err != nil {
			return &remote.StatusError{StatusCode: http.StatusBadRequest, Message: err.Error()}
		}

		a.tasks[i] = updated
		return nil
	}

	return &remote.StatusError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("task %q not found", id)}
}

func (a *API) delete(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, t := range a.tasks {
		if t.HasID(id) {
			a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
			return nil
		}
	}
	return &remote.StatusError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("task %q not found", id)}
}
