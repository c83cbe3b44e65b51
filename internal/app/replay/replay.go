// Package replay sends the pending operations recorded while offline to the
// remote API.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/remote"
	"github.com/slok/tasksync/internal/state"
	"github.com/slok/tasksync/internal/storage"
)

const (
	// DefaultMaxAttempts is the number of rejected attempts before an operation is marked as failed.
	DefaultMaxAttempts = 5
	// DefaultRate is the default number of operations sent per second.
	DefaultRate = 5
)

// Connectivity reports the network state.
type Connectivity interface {
	Online() bool
}

// Refresher reloads the state data.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ServiceConfig is the configuration for the replay service.
type ServiceConfig struct {
	API          remote.API
	Operations   storage.OperationRepository
	Refresher    Refresher
	Store        *state.Store
	Connectivity Connectivity
	// Rate is the number of operations per second sent to the remote API.
	Rate        float64
	MaxAttempts int
	// RetryInterval retries the pending operations periodically while
	// running, 0 disables it.
	RetryInterval time.Duration
	Logger        log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.API == nil {
		return fmt.Errorf("api is required")
	}
	if c.Operations == nil {
		return fmt.Errorf("operations repository is required")
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
	if c.Rate <= 0 {
		c.Rate = DefaultRate
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryInterval < 0 {
		return fmt.Errorf("retry interval can't be negative")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Replay"})
	return nil
}

// Service replays pending operations.
type Service struct {
	api           remote.API
	ops           storage.OperationRepository
	refresher     Refresher
	store         *state.Store
	conn          Connectivity
	limiter       *rate.Limiter
	maxAttempts   int
	retryInterval time.Duration
	logger        log.Logger

	mu sync.Mutex
}

// NewService creates a new replay service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		api:           cfg.API,
		ops:           cfg.Operations,
		refresher:     cfg.Refresher,
		store:         cfg.Store,
		conn:          cfg.Connectivity,
		limiter:       rate.NewLimiter(rate.Limit(cfg.Rate), 1),
		maxAttempts:   cfg.MaxAttempts,
		retryInterval: cfg.RetryInterval,
		logger:        cfg.Logger,
	}, nil
}

// Result is the outcome of a replay pass.
type Result struct {
	// Synced operations accepted by the remote API.
	Synced int
	// Dropped operations on tasks that don't exist remotely anymore.
	Dropped int
	// Failed operations that exceeded the maximum attempts on this pass.
	Failed int
	// Pending operations left for a later pass.
	Pending int
}

// Replay sends the pending operations to the remote API in log order.
//
// A rejected operation stops the pass so later operations are never applied
// before it, unless it reached the maximum attempts, then it's marked as
// failed and skipped. Offline the pass is skipped.
func (s *Service) Replay(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.conn.Online() {
		s.logger.Debugf("Offline, replay skipped")
		return Result{}, nil
	}

	pending, err := s.ops.ListPendingOperations(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("could not list pending operations: %w", err)
	}
	if len(pending) == 0 {
		return Result{}, nil
	}

	s.logger.Infof("Replaying %d pending operations", len(pending))

	res := Result{}
	for i, op := range pending {
		if err := s.limiter.Wait(ctx); err != nil {
			res.Pending = len(pending) - i
			return res, fmt.Errorf("replay interrupted: %w", err)
		}

		logger := s.logger.WithValues(log.Kv{"op-id": op.ID, "kind": op.Kind, "task-id": op.TaskID})

		err := s.send(ctx, op)
		switch {
		case err == nil:
			op.Status = model.OperationStatusDone
			op.Error = ""
			res.Synced++
			logger.Debugf("Operation synced")

		case op.Kind != model.MutationCreate && remote.IsNotFound(err):
			op.Status = model.OperationStatusDone
			op.Error = err.Error()
			res.Dropped++
			logger.Warningf("Task doesn't exist remotely, operation dropped")

		default:
			op.Attempts++
			op.Error = err.Error()
			if op.Attempts >= s.maxAttempts {
				op.Status = model.OperationStatusFailed
				res.Failed++
				logger.Errorf("Operation failed after %d attempts: %s", op.Attempts, err)
			} else {
				logger.Warningf("Operation rejected (attempt %d): %s", op.Attempts, err)
			}
		}

		if err := s.ops.UpdateOperation(ctx, op); err != nil {
			// Already replayed and cleared by another process sharing the log.
			if errors.Is(err, model.ErrNotFound) {
				logger.Debugf("Operation already cleared")
				continue
			}
			return res, fmt.Errorf("could not update operation %s: %w", op.ID, err)
		}

		if op.Status == model.OperationStatusPending {
			res.Pending = len(pending) - i
			break
		}
	}

	if _, err := s.ops.ClearDone(ctx); err != nil {
		s.logger.Errorf("Could not clear synced operations: %s", err)
	}

	if res.Synced+res.Dropped > 0 {
		if err := s.refresher.Refresh(ctx); err != nil {
			s.logger.Warningf("Could not refresh after replay: %s", err)
		}
	}

	s.store.Notify(notification(res))
	s.logger.Infof("Replay finished: %d synced, %d dropped, %d failed, %d pending", res.Synced, res.Dropped, res.Failed, res.Pending)

	return res, nil
}

// Run replays the pending operations every time the connectivity changes to
// online, and periodically if configured, until the context is done.
func (s *Service) Run(ctx context.Context, transitions <-chan bool) error {
	var tick <-chan time.Time
	if s.retryInterval > 0 {
		t := time.NewTicker(s.retryInterval)
		defer t.Stop()
		tick = t.C
	}

	replay := func() {
		if _, err := s.Replay(ctx); err != nil && ctx.Err() == nil {
			s.logger.Errorf("Could not replay pending operations: %s", err)
		}
	}

	// Anything left from a previous run.
	replay()

	for {
		select {
		case <-ctx.Done():
			return nil
		case online, ok := <-transitions:
			if !ok {
				return nil
			}
			if online {
				replay()
			}
		case <-tick:
			replay()
		}
	}
}

func (s *Service) send(ctx context.Context, op model.Operation) error {
	// Other processes may replay the same log concurrently (e.g. CLI sync and
	// watch), the correlation ID lets the API deduplicate creates.
	ctx = remote.WithIdempotencyKey(ctx, op.ID)

	switch op.Kind {
	case model.MutationCreate:
		t := op.Payload
		t.ID = ""
		t.ServerID = ""
		return s.api.CreateTask(ctx, t)
	case model.MutationUpdate:
		return s.api.UpdateTask(ctx, op.Payload)
	case model.MutationStatusChange:
		return s.api.ChangeTaskStatus(ctx, op.TaskID, op.Payload.Status)
	case model.MutationDelete:
		return s.api.DeleteTask(ctx, op.TaskID)
	}
	return fmt.Errorf("unknown operation kind %q: %w", op.Kind, model.ErrNotValid)
}

func notification(res Result) model.Notification {
	switch {
	case res.Failed > 0:
		return model.Notification{
			Kind:    model.NotificationWarning,
			Message: fmt.Sprintf("%d pending changes were rejected by the server", res.Failed),
		}
	case res.Pending > 0:
		return model.Notification{
			Kind:    model.NotificationWarning,
			Message: fmt.Sprintf("Synced %d changes, %d still pending", res.Synced, res.Pending),
		}
	}
	return model.Notification{
		Kind:    model.NotificationSuccess,
		Message: fmt.Sprintf("Synced %d pending changes", res.Synced+res.Dropped),
	}
}
