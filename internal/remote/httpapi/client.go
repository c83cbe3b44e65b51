// Package httpapi implements the remote Task API client over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/remote"
)

// DefaultTimeout is the default timeout of every request.
const DefaultTimeout = 10 * time.Second

// ClientConfig is the configuration for the HTTP client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. `https://app.example.com/api`.
	BaseURL string
	// Token is sent as a bearer token when set. Session cookies are always
	// kept and sent back.
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the underlying client (transport, jar and timeout
	// settings are not applied then).
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https")
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.HTTPClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return fmt.Errorf("could not create cookie jar: %w", err)
		}

		var transport http.RoundTripper = http.DefaultTransport
		if c.Token != "" {
			transport = &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token}),
				Base:   transport,
			}
		}

		c.HTTPClient = &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   c.Timeout,
		}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "remote.HTTPClient"})
	return nil
}

// Client is the remote Task API HTTP client.
type Client struct {
	baseURL string
	cli     *http.Client
	logger  log.Logger
}

var _ remote.API = &Client{}

// NewClient returns a new HTTP client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		cli:     cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var resp struct {
		Tasks []model.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, remote.PathTasks, nil, &resp); err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}
	if resp.Tasks == nil {
		resp.Tasks = []model.Task{}
	}
	return resp.Tasks, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var resp struct {
		Projects []model.Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, remote.PathProjects, nil, &resp); err != nil {
		return nil, fmt.Errorf("could not list projects: %w", err)
	}
	if resp.Projects == nil {
		resp.Projects = []model.Project{}
	}
	return resp.Projects, nil
}

func (c *Client) CreateTask(ctx context.Context, t model.Task) error {
	body, err := taskBody(t)
	if err != nil {
		return err
	}

	if err := c.do(ctx, http.MethodPost, remote.PathTasks, body, nil); err != nil {
		return fmt.Errorf("could not create task: %w", err)
	}
	return nil
}

func (c *Client) UpdateTask(ctx context.Context, t model.Task) error {
	body, err := taskBody(t)
	if err != nil {
		return err
	}

	if err := c.do(ctx, http.MethodPut, remote.PathTasks, body, nil); err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}
	return nil
}

func (c *Client) ChangeTaskStatus(ctx context.Context, id string, status model.TaskStatus) error {
	body := map[string]any{"id": id, "status": status}
	if err := c.do(ctx, http.MethodPut, remote.PathTasks, body, nil); err != nil {
		return fmt.Errorf("could not change task status: %w", err)
	}
	return nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path := remote.PathTasks + "?" + url.Values{"id": []string{id}}.Encode()
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := remote.IdempotencyKey(ctx); key != "" {
		req.Header.Set(remote.HeaderIdempotencyKey, key)
	}

	start := time.Now()
	resp, err := c.cli.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debugf("%s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: %w", method, path, &remote.StatusError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode %s %s response: %w", method, path, err)
	}
	return nil
}

// taskBody returns the task JSON object as the API expects it.
func taskBody(t model.Task) (map[string]any, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("could not marshal task: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("could not unmarshal task: %w", err)
	}
	return remote.StripSyncMetadata(fields), nil
}
