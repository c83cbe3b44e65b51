package refresh

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/remote"
	"github.com/slok/tasksync/internal/state"
	"github.com/slok/tasksync/internal/storage"
)

// FetchFailedMessage is the warning shown when the remote data couldn't be
// fetched and the cached data is used instead.
const FetchFailedMessage = "failed to fetch data"

// Connectivity reports the network state.
type Connectivity interface {
	Online() bool
}

// ServiceConfig is the configuration for the refresh service.
type ServiceConfig struct {
	API          remote.API
	Adapter      *storage.Adapter
	Store        *state.Store
	Connectivity Connectivity
	// Operations is optional, when set the pending operations are applied
	// over the fetched tasks so local changes not synced yet stay visible.
	Operations storage.OperationRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.API == nil {
		return fmt.Errorf("api is required")
	}
	if c.Adapter == nil {
		return fmt.Errorf("adapter is required")
	}
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Connectivity == nil {
		return fmt.Errorf("connectivity is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Refresh"})
	return nil
}

// Service loads the task and project collections into the state, from the
// remote API when reachable and from the local cache otherwise.
type Service struct {
	api     remote.API
	adapter *storage.Adapter
	store   *state.Store
	conn    Connectivity
	ops     storage.OperationRepository
	logger  log.Logger
}

// NewService creates a new refresh service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		api:     cfg.API,
		adapter: cfg.Adapter,
		store:   cfg.Store,
		conn:    cfg.Connectivity,
		ops:     cfg.Operations,
		logger:  cfg.Logger,
	}, nil
}

// Refresh replaces the state tasks and projects.
//
// Offline the cached collections are used. Online both collections are
// fetched concurrently, tagged as synced and written through the cache. If
// any fetch fails the cached collections are used, a warning notification
// is published and the fetch error returned.
func (s *Service) Refresh(ctx context.Context) error {
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	if !s.conn.Online() {
		s.LoadCache(ctx)
		return nil
	}

	var (
		tasks    []model.Task
		projects []model.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tasks, err = s.api.ListTasks(gctx)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.api.ListProjects(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warningf("Could not fetch remote data, using cache: %s", err)
		s.LoadCache(ctx)
		s.store.Notify(model.Notification{Kind: model.NotificationWarning, Message: FetchFailedMessage, Err: err})
		return fmt.Errorf("could not fetch remote data: %w", err)
	}

	for i := range tasks {
		tasks[i].IsSynced = true
		tasks[i].IsLocal = false
	}
	tasks = s.applyPending(ctx, tasks)

	s.store.SetData(tasks, projects)

	if err := s.adapter.SetItem(ctx, storage.KeyTasks, tasks); err != nil {
		s.logger.Errorf("Could not cache tasks: %s", err)
	}
	if err := s.adapter.SetItem(ctx, storage.KeyProjects, projects); err != nil {
		s.logger.Errorf("Could not cache projects: %s", err)
	}

	s.logger.Debugf("Refreshed %d tasks and %d projects from remote", len(tasks), len(projects))
	return nil
}

// LoadCache replaces the state tasks and projects with the cached ones.
func (s *Service) LoadCache(ctx context.Context) {
	tasks := []model.Task{}
	if !s.adapter.GetItem(ctx, storage.KeyTasks, &tasks) {
		tasks = []model.Task{}
	}
	projects := []model.Project{}
	if !s.adapter.GetItem(ctx, storage.KeyProjects, &projects) {
		projects = []model.Project{}
	}

	s.store.SetData(tasks, projects)
	s.logger.Debugf("Loaded %d tasks and %d projects from cache", len(tasks), len(projects))
}

func (s *Service) applyPending(ctx context.Context, tasks []model.Task) []model.Task {
	if s.ops == nil {
		return tasks
	}

	ops, err := s.ops.ListPendingOperations(ctx)
	if err != nil {
		s.logger.Errorf("Could not list pending operations: %s", err)
		return tasks
	}

	return ApplyOperations(tasks, ops)
}

// ApplyOperations returns the tasks with the operations applied in order.
func ApplyOperations(tasks []model.Task, ops []model.Operation) []model.Task {
	for _, op := range ops {
		idx := slices.IndexFunc(tasks, func(t model.Task) bool { return t.HasID(op.TaskID) })

		switch op.Kind {
		case model.MutationCreate:
			if idx >= 0 {
				continue
			}
			t := op.Payload
			t.IsLocal = true
			t.IsSynced = false
			tasks = append(tasks, t)

		case model.MutationUpdate:
			if idx < 0 {
				continue
			}
			t := op.Payload
			t.ID = tasks[idx].ID
			t.ServerID = tasks[idx].ServerID
			t.IsLocal = tasks[idx].IsLocal
			t.IsSynced = false
			tasks[idx] = t

		case model.MutationStatusChange:
			if idx < 0 {
				continue
			}
			tasks[idx].Status = op.Payload.Status
			tasks[idx].IsSynced = false

		case model.MutationDelete:
			if idx < 0 {
				continue
			}
			tasks = slices.Delete(tasks, idx, idx+1)
		}
	}

	return tasks
}
