package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/remote"
	"github.com/slok/tasksync/internal/remote/fake"
	"github.com/slok/tasksync/internal/remote/httpapi"
)

func newFakeServer(t *testing.T, api *fake.API) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(fake.NewHandler(api, log.Noop))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient(t *testing.T) {
	tests := map[string]struct {
		cfg    httpapi.ClientConfig
		expErr bool
	}{
		"Missing base URL should fail.": {
			cfg:    httpapi.ClientConfig{},
			expErr: true,
		},
		"A non HTTP base URL should fail.": {
			cfg:    httpapi.ClientConfig{BaseURL: "ftp://example.com"},
			expErr: true,
		},
		"A valid base URL should create the client.": {
			cfg: httpapi.ClientConfig{BaseURL: "https://example.com/api/", Token: "t0k3n"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := httpapi.NewClient(test.cfg)
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClientListing(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	api := fake.NewAPI(fake.APIConfig{
		Tasks: []model.Task{
			{ID: "t1", ServerID: "t1", Title: "Invoice", Status: model.TaskStatusTodo, Priority: model.TaskPriorityHigh},
		},
		Projects: []model.Project{{ServerID: "p1", Name: "Accounting"}},
	})
	srv := newFakeServer(t, api)

	c, err := httpapi.NewClient(httpapi.ClientConfig{BaseURL: srv.URL})
	require.NoError(err)

	tasks, err := c.ListTasks(context.Background())
	require.NoError(err)
	require.Len(tasks, 1)
	assert.Equal("Invoice", tasks[0].Title)
	assert.Equal(model.TaskPriorityHigh, tasks[0].Priority)

	projects, err := c.ListProjects(context.Background())
	require.NoError(err)
	assert.Equal([]model.Project{{ServerID: "p1", Name: "Accounting"}}, projects)
}

func TestClientMutations(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	api := fake.NewAPI(fake.APIConfig{})
	srv := newFakeServer(t, api)
	c, err := httpapi.NewClient(httpapi.ClientConfig{BaseURL: srv.URL})
	require.NoError(err)
	ctx := context.Background()

	// Create.
	err = c.CreateTask(ctx, model.Task{Title: "Call supplier", IsLocal: true})
	require.NoError(err)
	tasks := api.Tasks()
	require.Len(tasks, 1)
	id := tasks[0].Key()
	assert.Equal("Call supplier", tasks[0].Title)
	assert.Equal(model.TaskStatusTodo, tasks[0].Status)
	assert.False(tasks[0].IsLocal)

	// Update.
	updated := tasks[0]
	updated.Title = "Call supplier again"
	updated.Priority = model.TaskPriorityUrgent
	require.NoError(c.UpdateTask(ctx, updated))
	tasks = api.Tasks()
	assert.Equal("Call supplier again", tasks[0].Title)
	assert.Equal(model.TaskPriorityUrgent, tasks[0].Priority)

	// Status change.
	require.NoError(c.ChangeTaskStatus(ctx, id, model.TaskStatusCompleted))
	tasks = api.Tasks()
	assert.Equal(model.TaskStatusCompleted, tasks[0].Status)
	assert.Equal("Call supplier again", tasks[0].Title)

	// Delete.
	require.NoError(c.DeleteTask(ctx, id))
	assert.Empty(api.Tasks())

	// Delete missing.
	err = c.DeleteTask(ctx, id)
	require.Error(err)
	assert.ErrorIs(err, model.ErrRemote)
	assert.True(remote.IsNotFound(err))
}

func TestClientRemoteErrors(t *testing.T) {
	tests := map[string]struct {
		method fake.Method
		code   int
		call   func(ctx context.Context, c *httpapi.Client) error
	}{
		"A failing list tasks should return a remote error.": {
			method: fake.MethodListTasks,
			code:   http.StatusServiceUnavailable,
			call: func(ctx context.Context, c *httpapi.Client) error {
				_, err := c.ListTasks(ctx)
				return err
			},
		},
		"A failing status change should return a remote error.": {
			method: fake.MethodUpdateTask,
			code:   http.StatusInternalServerError,
			call: func(ctx context.Context, c *httpapi.Client) error {
				return c.ChangeTaskStatus(ctx, "t1", model.TaskStatusBlocked)
			},
		},
		"A rejected create should return a remote error.": {
			method: fake.MethodCreateTask,
			code:   http.StatusForbidden,
			call: func(ctx context.Context, c *httpapi.Client) error {
				return c.CreateTask(ctx, model.Task{Title: "x"})
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			assert := assert.New(t)

			api := fake.NewAPI(fake.APIConfig{})
			api.FailWith(test.method, test.code)
			srv := newFakeServer(t, api)
			c, err := httpapi.NewClient(httpapi.ClientConfig{BaseURL: srv.URL})
			require.NoError(err)

			err = test.call(context.Background(), c)
			require.Error(err)
			assert.ErrorIs(err, model.ErrRemote)

			var serr *remote.StatusError
			require.ErrorAs(err, &serr)
			assert.Equal(test.code, serr.StatusCode)
		})
	}
}

func TestClientRequestContract(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	var gotAuth, gotCookie string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s3ss10n", Path: "/"})
			_, _ = w.Write([]byte(`{"tasks":[]}`))
		case http.MethodPost:
			gotAuth = r.Header.Get("Authorization")
			if c, err := r.Cookie("session"); err == nil {
				gotCookie = c.Value
			}
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	c, err := httpapi.NewClient(httpapi.ClientConfig{BaseURL: srv.URL, Token: "t0k3n"})
	require.NoError(err)

	tasks, err := c.ListTasks(context.Background())
	require.NoError(err)
	assert.NotNil(tasks)
	assert.Empty(tasks)

	err = c.CreateTask(context.Background(), model.Task{Title: "x", IsLocal: true, IsSynced: false})
	require.NoError(err)

	assert.Equal("Bearer t0k3n", gotAuth)
	assert.Equal("s3ss10n", gotCookie)
	assert.Equal("x", gotBody["title"])
	assert.NotContains(gotBody, "isSynced")
	assert.NotContains(gotBody, "isLocal")
}

func TestClientSendsIdempotencyKey(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	api := fake.NewAPI(fake.APIConfig{})
	srv := newFakeServer(t, api)
	c, err := httpapi.NewClient(httpapi.ClientConfig{BaseURL: srv.URL})
	require.NoError(err)

	ctx := remote.WithIdempotencyKey(context.Background(), "01HOPERATION")
	require.NoError(c.CreateTask(ctx, model.Task{Title: "x"}))
	require.NoError(c.CreateTask(ctx, model.Task{Title: "x"}))
	require.NoError(c.CreateTask(context.Background(), model.Task{Title: "y"}))

	tasks := api.Tasks()
	require.Len(tasks, 2)
	assert.Equal("x", tasks[0].Title)
	assert.Equal("y", tasks[1].Title)
}

func TestClientTimeout(t *testing.T) {
	require := require.New(t)

	api := fake.NewAPI(fake.APIConfig{Latency: time.Second})
	srv := newFakeServer(t, api)
	c, err := httpapi.NewClient(httpapi.ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(err)

	_, err = c.ListTasks(context.Background())
	require.Error(err)
	require.NotErrorIs(err, model.ErrRemote)
}
