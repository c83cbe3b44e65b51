package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	// QuotaBytes limits the size of the KV data (keys plus values), 0 means unlimited.
	QuotaBytes int
	Logger     log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.QuotaBytes < 0 {
		return fmt.Errorf("quota can't be negative")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.KV and
// storage.OperationRepository.
type Repository struct {
	kv      map[string]string
	ops     []model.Operation
	lastSeq int
	quota   int
	mu      sync.RWMutex
	logger  log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		kv:     make(map[string]string),
		quota:  cfg.QuotaBytes,
		logger: cfg.Logger,
	}, nil
}

// Get returns the value stored on key.
func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.kv[key]
	return v, ok, nil
}

// Set replaces the value stored on key.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.quota > 0 {
		size := len(key) + len(value)
		for k, v := range r.kv {
			if k == key {
				continue
			}
			size += len(k) + len(v)
		}
		if size > r.quota {
			return fmt.Errorf("writing %d bytes on %q: %w", len(value), key, model.ErrQuotaExceeded)
		}
	}

	r.kv[key] = value
	r.logger.Debugf("Stored key %q (%d bytes)", key, len(value))

	return nil
}

// AppendOperation adds an operation at the end of the log.
func (r *Repository) AppendOperation(ctx context.Context, op model.Operation) (*model.Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if op.Kind == "" {
		return nil, fmt.Errorf("operation kind is required: %w", model.ErrNotValid)
	}

	r.lastSeq++
	op.ID = ulid.Make().String()
	op.Sequence = r.lastSeq
	op.Status = model.OperationStatusPending
	op.CreatedAt = time.Now().UTC()
	r.ops = append(r.ops, op)
	r.logger.Debugf("Appended %s operation %s for task %s", op.Kind, op.ID, op.TaskID)

	opCopy := op
	return &opCopy, nil
}

// ListPendingOperations returns the pending operations in log order.
func (r *Repository) ListPendingOperations(ctx context.Context) ([]model.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := []model.Operation{}
	for _, op := range r.ops {
		if op.Status == model.OperationStatusPending {
			ops = append(ops, op)
		}
	}

	return ops, nil
}

// ListOperations returns all the operations in log order.
func (r *Repository) ListOperations(ctx context.Context) ([]model.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]model.Operation, len(r.ops))
	copy(ops, r.ops)

	return ops, nil
}

// UpdateOperation updates an existing operation.
func (r *Repository) UpdateOperation(ctx context.Context, op model.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.ops {
		if existing.ID != op.ID {
			continue
		}

		existing.Payload = op.Payload
		existing.TaskID = op.TaskID
		existing.Status = op.Status
		existing.Error = op.Error
		existing.Attempts = op.Attempts
		r.ops[i] = existing
		r.logger.Debugf("Updated operation %s (%s)", op.ID, op.Status)

		return nil
	}

	return fmt.Errorf("operation %s: %w", op.ID, model.ErrNotFound)
}

// DeleteOperation removes an operation from the log.
func (r *Repository) DeleteOperation(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, op := range r.ops {
		if op.ID == id {
			r.ops = append(r.ops[:i], r.ops[i+1:]...)
			r.logger.Debugf("Deleted operation %s", id)
			return nil
		}
	}

	return fmt.Errorf("operation %s: %w", id, model.ErrNotFound)
}

// ClearDone removes all the done operations.
func (r *Repository) ClearDone(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.ops[:0]
	cleared := 0
	for _, op := range r.ops {
		if op.Status == model.OperationStatusDone {
			cleared++
			continue
		}
		kept = append(kept, op)
	}
	r.ops = kept

	return cleared, nil
}
