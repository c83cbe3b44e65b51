package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/storage/sqlite"
)

func newOperationRepo(t *testing.T) *sqlite.OperationRepository {
	t.Helper()

	repo := newRepo(t)
	opRepo, err := sqlite.NewOperationRepository(sqlite.OperationRepositoryConfig{DB: repo.DB(), Logger: log.Noop})
	require.NoError(t, err)

	return opRepo
}

func TestNewOperationRepository(t *testing.T) {
	_, err := sqlite.NewOperationRepository(sqlite.OperationRepositoryConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db is required")
}

func TestAppendOperation(t *testing.T) {
	tests := map[string]struct {
		ops     []model.Operation
		expSeqs []int
		expErr  bool
	}{
		"Appending a single operation should work": {
			ops: []model.Operation{
				{Kind: model.MutationCreate, TaskID: "local-1", Payload: model.Task{ID: "local-1", Title: "A", IsLocal: true}},
			},
			expSeqs: []int{1},
		},

		"Appending multiple operations should assign sequential numbers": {
			ops: []model.Operation{
				{Kind: model.MutationCreate, TaskID: "local-1", Payload: model.Task{ID: "local-1", Title: "A"}},
				{Kind: model.MutationStatusChange, TaskID: "srv-1", Payload: model.Task{ServerID: "srv-1", Status: model.TaskStatusCompleted}},
				{Kind: model.MutationDelete, TaskID: "srv-2"},
			},
			expSeqs: []int{1, 2, 3},
		},

		"Appending an operation without kind should fail": {
			ops:    []model.Operation{{TaskID: "srv-2"}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			repo := newOperationRepo(t)

			var err error
			for _, op := range test.ops {
				if _, err = repo.AppendOperation(ctx, op); err != nil {
					break
				}
			}

			if test.expErr {
				assert.Error(err)
				return
			}
			require.NoError(err)

			got, err := repo.ListPendingOperations(ctx)
			require.NoError(err)
			require.Len(got, len(test.expSeqs))
			for i, op := range got {
				assert.Equal(test.expSeqs[i], op.Sequence)
				assert.Equal(test.ops[i].Kind, op.Kind)
				assert.Equal(test.ops[i].TaskID, op.TaskID)
				assert.Equal(test.ops[i].Payload, op.Payload)
				assert.Equal(model.OperationStatusPending, op.Status)
				assert.NotEmpty(op.ID)
			}
		})
	}
}

func TestOperationLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newOperationRepo(t)

	op1, err := repo.AppendOperation(ctx, model.Operation{Kind: model.MutationCreate, TaskID: "local-1", Payload: model.Task{ID: "local-1", Title: "A"}})
	require.NoError(err)
	op2, err := repo.AppendOperation(ctx, model.Operation{Kind: model.MutationUpdate, TaskID: "srv-1", Payload: model.Task{ServerID: "srv-1", Title: "B"}})
	require.NoError(err)

	// Fold a new payload and mark as failed attempt.
	op1.Payload.Title = "A edited"
	op1.Attempts = 1
	op1.Error = "remote api error"
	require.NoError(repo.UpdateOperation(ctx, *op1))

	pending, err := repo.ListPendingOperations(ctx)
	require.NoError(err)
	require.Len(pending, 2)
	assert.Equal("A edited", pending[0].Payload.Title)
	assert.Equal(1, pending[0].Attempts)
	assert.Equal("remote api error", pending[0].Error)

	op1.Status = model.OperationStatusDone
	require.NoError(repo.UpdateOperation(ctx, *op1))
	pending, err = repo.ListPendingOperations(ctx)
	require.NoError(err)
	require.Len(pending, 1)
	assert.Equal(op2.ID, pending[0].ID)

	cleared, err := repo.ClearDone(ctx)
	require.NoError(err)
	assert.Equal(1, cleared)

	all, err := repo.ListOperations(ctx)
	require.NoError(err)
	assert.Len(all, 1)

	require.NoError(repo.DeleteOperation(ctx, op2.ID))
	err = repo.DeleteOperation(ctx, op2.ID)
	assert.True(errors.Is(err, model.ErrNotFound))
	err = repo.UpdateOperation(ctx, *op2)
	assert.True(errors.Is(err, model.ErrNotFound))
}
