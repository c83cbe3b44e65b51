package fake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/remote"
)

// NewHandler returns an HTTP handler serving the API with the remote Task API
// REST contract.
func NewHandler(api *API, logger log.Logger) http.Handler {
	if logger == nil {
		logger = log.Noop
	}
	logger = logger.WithValues(log.Kv{"svc": "fake.Server"})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(logger))

	h := handler{api: api}
	r.GET(remote.PathTasks, h.listTasks)
	r.GET(remote.PathProjects, h.listProjects)
	r.POST(remote.PathTasks, h.createTask)
	r.PUT(remote.PathTasks, h.updateTask)
	r.DELETE(remote.PathTasks, h.deleteTask)

	return r
}

// ListenAndServe serves the API on addr until the context is done.
func ListenAndServe(ctx context.Context, addr string, api *API, logger log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(api, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errC := make(chan error, 1)
	go func() { errC <- srv.ListenAndServe() }()

	select {
	case err := <-errC:
		return fmt.Errorf("could not serve fake API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not shutdown fake API: %w", err)
	}
	return nil
}

func accessLog(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.RequestURI(), c.Writer.Status(), time.Since(start))
	}
}

type handler struct {
	api *API
}

func (h handler) listTasks(c *gin.Context) {
	tasks, err := h.api.ListTasks(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h handler) listProjects(c *gin.Context) {
	projects, err := h.api.ListProjects(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h handler) createTask(c *gin.Context) {
	if err := h.api.enter(c.Request.Context(), MethodCreateTask); err != nil {
		abort(c, err)
		return
	}

	var t model.Task
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.api.create(t, c.GetHeader(remote.HeaderIdempotencyKey))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": created})
}

func (h handler) updateTask(c *gin.Context) {
	if err := h.api.enter(c.Request.Context(), MethodUpdateTask); err != nil {
		abort(c, err)
		return
	}

	fields := map[string]json.RawMessage{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := rawString(fields["id"])
	if id == "" {
		id = rawString(fields["_id"])
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	if err := h.api.patch(id, fields); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h handler) deleteTask(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	if err := h.api.DeleteTask(c.Request.Context(), id); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func abort(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	var serr *remote.StatusError
	if errors.As(err, &serr) {
		code = serr.StatusCode
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func rawString(raw json.RawMessage) string {
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}
