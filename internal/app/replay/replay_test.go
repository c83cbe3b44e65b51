package replay_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasksync/internal/app/mutate"
	"github.com/slok/tasksync/internal/app/refresh"
	"github.com/slok/tasksync/internal/app/replay"
	"github.com/slok/tasksync/internal/connectivity"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/remote/fake"
	"github.com/slok/tasksync/internal/state"
	"github.com/slok/tasksync/internal/storage"
	"github.com/slok/tasksync/internal/storage/memory"
	"github.com/slok/tasksync/internal/storage/storagemock"
)

type harness struct {
	api       *fake.API
	conn      *connectivity.ManualSource
	repo      *memory.Repository
	store     *state.Store
	mutate    *mutate.Service
	refresher *refresh.Service
	svc       *replay.Service
}

func newHarness(t *testing.T, api *fake.API, maxAttempts int) harness {
	t.Helper()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	adapter, err := storage.NewAdapter(storage.AdapterConfig{KV: repo})
	require.NoError(t, err)
	store := state.NewStore()
	conn := connectivity.NewManualSource(false)

	refresher, err := refresh.NewService(refresh.ServiceConfig{API: api, Adapter: adapter, Store: store, Connectivity: conn, Operations: repo})
	require.NoError(t, err)
	mut, err := mutate.NewService(mutate.ServiceConfig{API: api, Adapter: adapter, Refresher: refresher, Store: store, Connectivity: conn, Operations: repo})
	require.NoError(t, err)
	svc, err := replay.NewService(replay.ServiceConfig{
		API:          api,
		Operations:   repo,
		Refresher:    refresher,
		Store:        store,
		Connectivity: conn,
		Rate:         1000,
		MaxAttempts:  maxAttempts,
	})
	require.NoError(t, err)

	// Hydrate the cache with the remote data.
	conn.SetOnline(true)
	require.NoError(t, refresher.Refresh(context.Background()))
	conn.SetOnline(false)

	return harness{api: api, conn: conn, repo: repo, store: store, mutate: mut, refresher: refresher, svc: svc}
}

func (h harness) submitOffline(t *testing.T, ms ...model.Mutation) {
	t.Helper()
	for _, m := range ms {
		n := h.mutate.Submit(context.Background(), m)
		require.Equal(t, model.NotificationSavedOffline, n.Kind, n.Message)
	}
}

func (h harness) operations(t *testing.T) []model.Operation {
	t.Helper()
	ops, err := h.repo.ListOperations(context.Background())
	require.NoError(t, err)
	return ops
}

func seedTasks() []model.Task {
	return []model.Task{
		{ID: "s1", ServerID: "s1", Title: "Restock", Status: model.TaskStatusTodo, Priority: model.TaskPriorityMedium},
		{ID: "s2", ServerID: "s2", Title: "Invoice", Status: model.TaskStatusTodo, Priority: model.TaskPriorityLow},
	}
}

func offlineMutations() []model.Mutation {
	return []model.Mutation{
		{Kind: model.MutationCreate, Task: model.Task{Title: "Call customer"}},
		{Kind: model.MutationStatusChange, Task: model.Task{ID: "s1", Status: model.TaskStatusCompleted}},
		{Kind: model.MutationDelete, Task: model.Task{ID: "s2"}},
	}
}

func TestNewService(t *testing.T) {
	_, err := replay.NewService(replay.ServiceConfig{})
	assert.Error(t, err)
}

func TestReplayOfflineSkipped(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	api := fake.NewAPI(fake.APIConfig{Tasks: seedTasks()})
	h := newHarness(t, api, 0)
	h.submitOffline(t, offlineMutations()...)
	calls := api.TotalCalls()

	res, err := h.svc.Replay(context.Background())
	require.NoError(err)
	assert.Equal(replay.Result{}, res)
	assert.Equal(calls, api.TotalCalls())
	assert.Len(h.operations(t), 3)
}

func TestReplaySyncsInOrder(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	api := fake.NewAPI(fake.APIConfig{Tasks: seedTasks()})
	h := newHarness(t, api, 0)
	h.submitOffline(t, offlineMutations()...)

	h.conn.SetOnline(true)
	res, err := h.svc.Replay(context.Background())
	require.NoError(err)
	assert.Equal(replay.Result{Synced: 3}, res)
	assert.Empty(h.operations(t))

	remote := api.Tasks()
	require.Len(remote, 2)
	assert.Equal("s1", remote[0].Key())
	assert.Equal(model.TaskStatusCompleted, remote[0].Status)
	assert.Equal("Call customer", remote[1].Title)
	assert.False(remote[1].IsLocalOnly())

	snap := h.store.Snapshot()
	require.Len(snap.Tasks, 2)
	for _, task := range snap.Tasks {
		assert.True(task.IsSynced)
		assert.False(task.IsLocal)
	}
	require.NotNil(snap.Notification)
	assert.Equal(model.NotificationSuccess, snap.Notification.Kind)
}

func TestReplayRejectionStopsPass(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	api := fake.NewAPI(fake.APIConfig{Tasks: seedTasks()})
	h := newHarness(t, api, 3)
	h.submitOffline(t, offlineMutations()...)

	api.FailWith(fake.MethodCreateTask, http.StatusServiceUnavailable)
	h.conn.SetOnline(true)

	res, err := h.svc.Replay(ctx)
	require.NoError(err)
	assert.Equal(replay.Result{Pending: 3}, res)
	assert.Equal(0, api.Calls(fake.MethodUpdateTask))
	assert.Equal(0, api.Calls(fake.MethodDeleteTask))

	ops := h.operations(t)
	require.Len(ops, 3)
	assert.Equal(1, ops[0].Attempts)
	assert.Contains(ops[0].Error, "503")
	assert.Equal(model.OperationStatusPending, ops[0].Status)

	snap := h.store.Snapshot()
	require.NotNil(snap.Notification)
	assert.Equal(model.NotificationWarning, snap.Notification.Kind)

	// Recovered remote.
	api.Recover(fake.MethodCreateTask)
	res, err = h.svc.Replay(ctx)
	require.NoError(err)
	assert.Equal(replay.Result{Synced: 3}, res)
	assert.Empty(h.operations(t))
}

func TestReplayMaxAttempts(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	api := fake.NewAPI(fake.APIConfig{Tasks: seedTasks()})
	h := newHarness(t, api, 1)
	h.submitOffline(t, offlineMutations()...)

	api.FailWith(fake.MethodCreateTask, http.StatusBadRequest)
	h.conn.SetOnline(true)

	res, err := h.svc.Replay(context.Background())
	require.NoError(err)
	assert.Equal(replay.Result{Synced: 2, Failed: 1}, res)

	ops := h.operations(t)
	require.Len(ops, 1)
	assert.Equal(model.OperationStatusFailed, ops[0].Status)
	assert.Equal(model.MutationCreate, ops[0].Kind)
}

func TestReplayDropsOperationsOnRemovedTasks(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	api := fake.NewAPI(fake.APIConfig{Tasks: seedTasks()})
	h := newHarness(t, api, 0)
	h.submitOffline(t, model.Mutation{Kind: model.MutationStatusChange, Task: model.Task{ID: "s2", Status: model.TaskStatusBlocked}})

	// Removed remotely by someone else.
	require.NoError(api.DeleteTask(ctx, "s2"))

	h.conn.SetOnline(true)
	res, err := h.svc.Replay(ctx)
	require.NoError(err)
	assert.Equal(replay.Result{Dropped: 1}, res)
	assert.Empty(h.operations(t))
}

func TestRunReplaysOnReconnect(t *testing.T) {
	require := require.New(t)

	api := fake.NewAPI(fake.APIConfig{Tasks: seedTasks()})
	h := newHarness(t, api, 0)
	h.submitOffline(t, offlineMutations()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	transitions := make(chan bool)
	done := make(chan error, 1)
	go func() { done <- h.svc.Run(ctx, transitions) }()

	h.conn.SetOnline(true)
	transitions <- true

	require.Eventually(func() bool {
		ops, err := h.repo.ListOperations(context.Background())
		return err == nil && len(ops) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(<-done)
}

func TestReplayConcurrentPassesCreateOnce(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	api := fake.NewAPI(fake.APIConfig{Tasks: seedTasks()})
	h := newHarness(t, api, 0)
	h.submitOffline(t, model.Mutation{Kind: model.MutationCreate, Task: model.Task{Title: "Call customer"}})
	api.SetLatency(50 * time.Millisecond)
	h.conn.SetOnline(true)

	// A second process sharing the same operation log.
	other, err := replay.NewService(replay.ServiceConfig{
		API:          api,
		Operations:   h.repo,
		Refresher:    h.refresher,
		Store:        h.store,
		Connectivity: h.conn,
		Rate:         1000,
	})
	require.NoError(err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, svc := range []*replay.Service{h.svc, other} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Replay(context.Background())
		}()
	}
	wg.Wait()

	require.NoError(errs[0])
	require.NoError(errs[1])
	assert.Empty(h.operations(t))

	tasks := api.Tasks()
	require.Len(tasks, 3)
	assert.Equal("Call customer", tasks[2].Title)
}

func TestReplayOperationUpdateFailure(t *testing.T) {
	tests := map[string]struct {
		updateErr error
		expErr    bool
		expRes    replay.Result
	}{
		"An operation cleared by another process should be skipped.": {
			updateErr: fmt.Errorf("operation op1: %w", model.ErrNotFound),
			expRes:    replay.Result{Synced: 1},
		},
		"A failing operation log should stop the replay.": {
			updateErr: errors.New("database is locked"),
			expErr:    true,
			expRes:    replay.Result{Synced: 1},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			assert := assert.New(t)
			ctx := context.Background()

			api := fake.NewAPI(fake.APIConfig{Tasks: seedTasks()})
			h := newHarness(t, api, 0)
			h.conn.SetOnline(true)

			op := model.Operation{
				ID:     "op1",
				Kind:   model.MutationStatusChange,
				TaskID: "s1",
				Status: model.OperationStatusPending,
				Payload: model.Task{
					ID: "s1", ServerID: "s1", Title: "Restock",
					Status: model.TaskStatusBlocked, Priority: model.TaskPriorityMedium,
				},
			}
			ops := storagemock.NewMockOperationRepository(t)
			ops.On("ListPendingOperations", mock.Anything).Once().Return([]model.Operation{op}, nil)
			ops.On("UpdateOperation", mock.Anything, mock.Anything).Once().Return(test.updateErr)
			if !test.expErr {
				ops.On("ClearDone", mock.Anything).Once().Return(0, nil)
			}

			svc, err := replay.NewService(replay.ServiceConfig{
				API:          api,
				Operations:   ops,
				Refresher:    h.refresher,
				Store:        h.store,
				Connectivity: h.conn,
				Rate:         1000,
			})
			require.NoError(err)

			res, err := svc.Replay(ctx)
			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
			assert.Equal(test.expRes, res)
			assert.Equal(model.TaskStatusBlocked, api.Tasks()[0].Status)
		})
	}
}
