package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
)

// OperationRepositoryConfig is the configuration for the SQLite operation repository.
type OperationRepositoryConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *OperationRepositoryConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.OperationRepository"})
	return nil
}

// OperationRepository is a SQLite implementation of storage.OperationRepository.
type OperationRepository struct {
	db     *sql.DB
	logger log.Logger
}

// NewOperationRepository creates a new SQLite operation repository.
func NewOperationRepository(cfg OperationRepositoryConfig) (*OperationRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &OperationRepository{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

// AppendOperation adds an operation at the end of the log.
func (r *OperationRepository) AppendOperation(ctx context.Context, op model.Operation) (*model.Operation, error) {
	if op.Kind == "" {
		return nil, fmt.Errorf("operation kind is required: %w", model.ErrNotValid)
	}

	payload, err := json.Marshal(op.Payload)
	if err != nil {
		return nil, fmt.Errorf("could not serialize payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit

	var maxSeq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM operations`).Scan(&maxSeq); err != nil {
		return nil, fmt.Errorf("could not get max sequence: %w", err)
	}

	op.ID = ulid.Make().String()
	op.Sequence = maxSeq + 1
	op.Status = model.OperationStatusPending
	op.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO operations (id, sequence, kind, task_id, payload, status, error, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, '', ?, ?)
	`
	_, err = tx.ExecContext(ctx, query, op.ID, op.Sequence, op.Kind, op.TaskID, string(payload), op.Status, op.Attempts, op.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("could not insert operation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Appended %s operation %s for task %s", op.Kind, op.ID, op.TaskID)
	return &op, nil
}

// ListPendingOperations returns the pending operations in log order.
func (r *OperationRepository) ListPendingOperations(ctx context.Context) ([]model.Operation, error) {
	query := `
		SELECT id, sequence, kind, task_id, payload, status, error, attempts, created_at
		FROM operations
		WHERE status = ?
		ORDER BY sequence ASC
	`
	return r.list(ctx, query, model.OperationStatusPending)
}

// ListOperations returns all the operations in log order.
func (r *OperationRepository) ListOperations(ctx context.Context) ([]model.Operation, error) {
	query := `
		SELECT id, sequence, kind, task_id, payload, status, error, attempts, created_at
		FROM operations
		ORDER BY sequence ASC
	`
	return r.list(ctx, query)
}

// UpdateOperation updates an existing operation.
func (r *OperationRepository) UpdateOperation(ctx context.Context, op model.Operation) error {
	payload, err := json.Marshal(op.Payload)
	if err != nil {
		return fmt.Errorf("could not serialize payload: %w", err)
	}

	query := `UPDATE operations SET task_id = ?, payload = ?, status = ?, error = ?, attempts = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, op.TaskID, string(payload), op.Status, op.Error, op.Attempts, op.ID)
	if err != nil {
		return fmt.Errorf("could not update operation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("operation %s: %w", op.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated operation %s (%s)", op.ID, op.Status)
	return nil
}

// DeleteOperation removes an operation from the log.
func (r *OperationRepository) DeleteOperation(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM operations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete operation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("operation %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted operation %s", id)
	return nil
}

// ClearDone removes all the operations already confirmed by the remote API.
func (r *OperationRepository) ClearDone(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM operations WHERE status = ?`, model.OperationStatusDone)
	if err != nil {
		return 0, fmt.Errorf("could not delete operations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not get rows affected: %w", err)
	}

	r.logger.Debugf("Cleared %d done operations", rows)
	return int(rows), nil
}

func (r *OperationRepository) list(ctx context.Context, query string, args ...any) ([]model.Operation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query operations: %w", err)
	}
	defer rows.Close()

	ops := []model.Operation{}
	for rows.Next() {
		var op model.Operation
		var payload string
		var createdAt int64
		err := rows.Scan(
			&op.ID,
			&op.Sequence,
			&op.Kind,
			&op.TaskID,
			&payload,
			&op.Status,
			&op.Error,
			&op.Attempts,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}

		if err := json.Unmarshal([]byte(payload), &op.Payload); err != nil {
			return nil, fmt.Errorf("could not decode payload of operation %s: %w", op.ID, err)
		}
		op.CreatedAt = timeFromUnix(createdAt)
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ops, nil
}
