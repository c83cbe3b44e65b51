package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/storage/memory"
)

func TestNewRepository(t *testing.T) {
	_, err := memory.NewRepository(memory.RepositoryConfig{QuotaBytes: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota can't be negative")
}

func TestRepositoryKV(t *testing.T) {
	tests := map[string]struct {
		quota   int
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository) error
		expErr  error
	}{
		"Getting a missing key should not be found": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, ok, err := repo.Get(ctx, "tasks")
				require.NoError(t, err)
				assert.False(t, ok)
				return nil
			},
		},

		"Setting a key should be readable": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.Set(ctx, "tasks", "[]"))
				v, ok, err := repo.Get(ctx, "tasks")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, "[]", v)
				return nil
			},
		},

		"Writing over the quota should fail": {
			quota: 10,
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.Set(ctx, "tasks", "0123456789")
			},
			expErr: model.ErrQuotaExceeded,
		},

		"Replacing a key should not count its old value on the quota": {
			quota: 12,
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.Set(ctx, "tasks", "0123456"))
				return repo.Set(ctx, "tasks", "6543210")
			},
		},

		"Quota should count all the keys": {
			quota: 12,
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.Set(ctx, "a", "0123"))
				return repo.Set(ctx, "b", "0123456")
			},
			expErr: model.ErrQuotaExceeded,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{QuotaBytes: test.quota, Logger: log.Noop})
			require.NoError(t, err)

			err = test.actions(context.Background(), t, repo)
			if test.expErr != nil {
				assert.True(t, errors.Is(err, test.expErr))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRepositoryOperations(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	_, err = repo.AppendOperation(ctx, model.Operation{})
	assert.True(errors.Is(err, model.ErrNotValid))

	op1, err := repo.AppendOperation(ctx, model.Operation{Kind: model.MutationCreate, TaskID: "local-1", Payload: model.Task{ID: "local-1", Title: "A"}})
	require.NoError(err)
	op2, err := repo.AppendOperation(ctx, model.Operation{Kind: model.MutationDelete, TaskID: "srv-1"})
	require.NoError(err)

	assert.NotEmpty(op1.ID)
	assert.Equal(1, op1.Sequence)
	assert.Equal(2, op2.Sequence)
	assert.Equal(model.OperationStatusPending, op1.Status)

	op1.Status = model.OperationStatusDone
	op1.Attempts = 1
	require.NoError(repo.UpdateOperation(ctx, *op1))

	pending, err := repo.ListPendingOperations(ctx)
	require.NoError(err)
	require.Len(pending, 1)
	assert.Equal(op2.ID, pending[0].ID)

	cleared, err := repo.ClearDone(ctx)
	require.NoError(err)
	assert.Equal(1, cleared)

	all, err := repo.ListOperations(ctx)
	require.NoError(err)
	require.Len(all, 1)

	require.NoError(repo.DeleteOperation(ctx, op2.ID))
	err = repo.DeleteOperation(ctx, op2.ID)
	assert.True(errors.Is(err, model.ErrNotFound))
	err = repo.UpdateOperation(ctx, *op2)
	assert.True(errors.Is(err, model.ErrNotFound))

	// Sequence keeps growing after deletions.
	op3, err := repo.AppendOperation(ctx, model.Operation{Kind: model.MutationUpdate, TaskID: "srv-1"})
	require.NoError(err)
	assert.Equal(3, op3.Sequence)
}
