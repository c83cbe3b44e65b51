// Package mutate applies task mutations, against the remote API when
// possible and against the local cache otherwise.
package mutate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/remote"
	"github.com/slok/tasksync/internal/state"
	"github.com/slok/tasksync/internal/storage"
)

// Connectivity reports the network state.
type Connectivity interface {
	Online() bool
}

// Refresher reloads the state data.
type Refresher interface {
	Refresh(ctx context.Context) error
	LoadCache(ctx context.Context)
}

// ServiceConfig is the configuration for the mutate service.
type ServiceConfig struct {
	API          remote.API
	Adapter      *storage.Adapter
	Refresher    Refresher
	Store        *state.Store
	Connectivity Connectivity
	// Operations is optional, when set every local mutation is recorded to
	// be replayed later.
	Operations storage.OperationRepository
	// NewLocalID generates the identity of tasks created locally.
	NewLocalID func() string
	TimeNow    func() time.Time
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.API == nil {
		return fmt.Errorf("api is required")
	}
	if c.Adapter == nil {
		return fmt.Errorf("adapter is required")
	}
	if c.Refresher == nil {
		return fmt.Errorf("refresher is required")
	}
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Connectivity == nil {
		return fmt.Errorf("connectivity is required")
	}
	if c.NewLocalID == nil {
		c.NewLocalID = func() string { return model.LocalIDPrefix + ulid.Make().String() }
	}
	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Mutate"})
	return nil
}

// Service handles the task mutations.
type Service struct {
	api        remote.API
	adapter    *storage.Adapter
	refresher  Refresher
	store      *state.Store
	conn       Connectivity
	ops        storage.OperationRepository
	newLocalID func() string
	timeNow    func() time.Time
	logger     log.Logger
}

// NewService creates a new mutate service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		api:        cfg.API,
		adapter:    cfg.Adapter,
		refresher:  cfg.Refresher,
		store:      cfg.Store,
		conn:       cfg.Connectivity,
		ops:        cfg.Operations,
		newLocalID: cfg.NewLocalID,
		timeNow:    cfg.TimeNow,
		logger:     cfg.Logger,
	}, nil
}

// Submit applies the mutation and returns the user facing outcome, that is
// also published on the state store.
//
// Online the remote API is tried first. When offline, or when the remote API
// fails, the mutation is applied on the local cache and reported as saved
// offline. Only a local failure is reported as an error.
func (s *Service) Submit(ctx context.Context, m model.Mutation) model.Notification {
	n := s.submit(ctx, m)
	s.store.Notify(n)
	return n
}

func (s *Service) submit(ctx context.Context, m model.Mutation) model.Notification {
	if m.Kind == model.MutationCreate {
		m.Task.Defaults()
	}
	if err := m.Validate(); err != nil {
		return model.Notification{Kind: model.NotificationError, Message: fmt.Sprintf("Invalid %s: %s", m.Kind, err), Err: err}
	}

	logger := s.logger.WithValues(log.Kv{"kind": m.Kind, "task-id": m.Task.Key()})

	if s.conn.Online() {
		err := s.applyRemote(ctx, m)
		if err == nil {
			if err := s.supersede(ctx, m); err != nil {
				logger.Warningf("Could not supersede pending operations: %s", err)
			}
			if err := s.refresher.Refresh(ctx); err != nil {
				logger.Warningf("Could not refresh after mutation: %s", err)
			}
			logger.Infof("Task mutation accepted by remote API")
			return model.Notification{Kind: model.NotificationSuccess, Message: successMessage(m.Kind)}
		}
		logger.Warningf("Remote API failed, falling back to local: %s", err)
	}

	if err := s.applyLocal(ctx, m); err != nil {
		logger.Errorf("Could not apply mutation locally: %s", err)
		return model.Notification{Kind: model.NotificationError, Message: fmt.Sprintf("Could not save task locally: %s", err), Err: err}
	}

	s.refresher.LoadCache(ctx)
	logger.Infof("Task mutation saved locally")
	return model.Notification{Kind: model.NotificationSavedOffline, Message: offlineMessage(m.Kind)}
}

func (s *Service) applyRemote(ctx context.Context, m model.Mutation) error {
	switch m.Kind {
	case model.MutationCreate:
		t := m.Task
		t.ID = ""
		t.ServerID = ""
		return s.api.CreateTask(ctx, t)
	case model.MutationUpdate:
		return s.api.UpdateTask(ctx, m.Task)
	case model.MutationStatusChange:
		return s.api.ChangeTaskStatus(ctx, m.Task.Key(), m.Task.Status)
	case model.MutationDelete:
		return s.api.DeleteTask(ctx, m.Task.Key())
	}
	return fmt.Errorf("unknown mutation kind %q: %w", m.Kind, model.ErrNotValid)
}

func (s *Service) applyLocal(ctx context.Context, m model.Mutation) error {
	switch m.Kind {
	case model.MutationCreate:
		t := m.Task
		t.ID = s.newLocalID()
		t.ServerID = ""
		t.IsLocal = true
		t.IsSynced = false
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.timeNow().UTC()
		}
		if err := s.adapter.AddItem(ctx, storage.KeyTasks, t); err != nil {
			return fmt.Errorf("could not add task: %w", err)
		}
		if err := s.record(ctx, model.Operation{Kind: m.Kind, TaskID: t.ID, Payload: t}); err != nil {
			// Without its pending create the task would never reach the remote API.
			if rerr := s.adapter.DeleteItem(ctx, storage.KeyTasks, t.ID); rerr != nil {
				s.logger.Errorf("Could not roll back local task %s: %s", t.ID, rerr)
			}
			return err
		}
		return nil

	case model.MutationUpdate:
		t := m.Task
		t.IsLocal = t.IsLocalOnly()
		t.IsSynced = false
		if err := s.adapter.UpdateItem(ctx, storage.KeyTasks, t); err != nil {
			return fmt.Errorf("could not update task: %w", err)
		}
		return s.recordChange(ctx, model.Operation{Kind: m.Kind, TaskID: t.Key(), Payload: t})

	case model.MutationStatusChange:
		patch := map[string]any{"status": m.Task.Status, "isSynced": false}
		if m.Task.ID != "" {
			patch["id"] = m.Task.ID
		} else {
			patch["_id"] = m.Task.ServerID
		}
		if err := s.adapter.UpdateItem(ctx, storage.KeyTasks, patch); err != nil {
			return fmt.Errorf("could not change task status: %w", err)
		}
		return s.recordChange(ctx, model.Operation{Kind: m.Kind, TaskID: m.Task.Key(), Payload: m.Task})

	case model.MutationDelete:
		id := m.Task.Key()
		if err := s.adapter.DeleteItem(ctx, storage.KeyTasks, id); err != nil {
			return fmt.Errorf("could not delete task: %w", err)
		}
		return s.recordDelete(ctx, id)
	}

	return fmt.Errorf("unknown mutation kind %q: %w", m.Kind, model.ErrNotValid)
}

func (s *Service) record(ctx context.Context, op model.Operation) error {
	if s.ops == nil {
		return nil
	}

	stored, err := s.ops.AppendOperation(ctx, op)
	if err != nil {
		return fmt.Errorf("could not record pending operation: %w", err)
	}
	s.logger.Debugf("Pending operation %s (%s) recorded for task %s", stored.ID, stored.Kind, stored.TaskID)
	return nil
}

// recordChange records an update or status change. Changes on tasks that
// only exist locally are folded into their pending create.
func (s *Service) recordChange(ctx context.Context, op model.Operation) error {
	if s.ops == nil {
		return nil
	}

	create, err := s.pendingCreate(ctx, op.TaskID)
	if err != nil {
		return err
	}
	if create == nil {
		return s.record(ctx, op)
	}

	switch op.Kind {
	case model.MutationUpdate:
		payload := op.Payload
		payload.ID = create.Payload.ID
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = create.Payload.CreatedAt
		}
		payload.IsLocal = true
		create.Payload = payload
	case model.MutationStatusChange:
		create.Payload.Status = op.Payload.Status
	}

	if err := s.ops.UpdateOperation(ctx, *create); err != nil {
		return fmt.Errorf("could not update pending create: %w", err)
	}
	s.logger.Debugf("Task %s change folded into pending create %s", op.TaskID, create.ID)
	return nil
}

// recordDelete records a delete. Tasks that only exist locally have their
// pending operations removed instead, the remote API never knew them.
func (s *Service) recordDelete(ctx context.Context, id string) error {
	if s.ops == nil {
		return nil
	}

	pending, err := s.ops.ListPendingOperations(ctx)
	if err != nil {
		return fmt.Errorf("could not list pending operations: %w", err)
	}

	localOnly := false
	for _, op := range pending {
		if op.TaskID != id {
			continue
		}
		if op.Kind == model.MutationCreate {
			localOnly = true
		}
		if err := s.ops.DeleteOperation(ctx, op.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("could not remove pending operation: %w", err)
		}
	}

	if localOnly {
		s.logger.Debugf("Local only task %s deleted, pending operations discarded", id)
		return nil
	}

	return s.record(ctx, model.Operation{Kind: model.MutationDelete, TaskID: id, Payload: model.Task{ID: id}})
}

// supersede drops or rewrites the pending operations of a task that the
// remote API just accepted a newer change for, so they are not replayed over it.
func (s *Service) supersede(ctx context.Context, m model.Mutation) error {
	if s.ops == nil || m.Kind == model.MutationCreate {
		return nil
	}

	pending, err := s.ops.ListPendingOperations(ctx)
	if err != nil {
		return fmt.Errorf("could not list pending operations: %w", err)
	}

	for _, op := range pending {
		if op.Kind == model.MutationCreate || !m.Task.HasID(op.TaskID) {
			continue
		}

		drop := false
		switch m.Kind {
		case model.MutationDelete:
			drop = true
		case model.MutationUpdate:
			drop = op.Kind == model.MutationUpdate || op.Kind == model.MutationStatusChange
		case model.MutationStatusChange:
			switch op.Kind {
			case model.MutationStatusChange:
				drop = true
			case model.MutationUpdate:
				op.Payload.Status = m.Task.Status
				if err := s.ops.UpdateOperation(ctx, op); err != nil {
					return fmt.Errorf("could not update pending operation %s: %w", op.ID, err)
				}
				continue
			}
		}
		if !drop {
			continue
		}

		if err := s.ops.DeleteOperation(ctx, op.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("could not remove pending operation %s: %w", op.ID, err)
		}
		s.logger.Debugf("Pending %s %s superseded by accepted %s", op.Kind, op.ID, m.Kind)
	}

	return nil
}

func (s *Service) pendingCreate(ctx context.Context, taskID string) (*model.Operation, error) {
	pending, err := s.ops.ListPendingOperations(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list pending operations: %w", err)
	}
	for _, op := range pending {
		if op.Kind == model.MutationCreate && op.TaskID == taskID {
			return &op, nil
		}
	}
	return nil, nil
}

func successMessage(k model.MutationKind) string {
	switch k {
	case model.MutationCreate:
		return "Task created"
	case model.MutationUpdate:
		return "Task updated"
	case model.MutationStatusChange:
		return "Task status updated"
	case model.MutationDelete:
		return "Task deleted"
	}
	return "Task saved"
}

func offlineMessage(k model.MutationKind) string {
	return fmt.Sprintf("%s offline, it will be synced when online", successMessage(k))
}
