package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MihkelHunter/dayplanner/internal/todo"
)

// DefaultBaseURL is where the service listens in a default setup.
const DefaultBaseURL = "http://localhost:3001/api"

// APIError is a failed response: a non-2xx status or success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap maps the status onto the shared error classes.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return todo.ErrNotFound
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return todo.ErrValidation
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return todo.ErrUnauthorized
	case e.Status >= 500:
		return todo.ErrConnection
	}
	return nil
}

// Client implements todo.Repository against the REST service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mapper     Mapper
	token      func() string
	log        *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption { return func(c *Client) { c.httpClient = hc } }

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource attaches "Authorization: Bearer <token>" whenever fn
// returns a non-empty token.
func WithTokenSource(fn func() string) ClientOption { return func(c *Client) { c.token = fn } }

func WithMapper(m Mapper) ClientOption { return func(c *Client) { c.mapper = m } }

func WithLogger(log *slog.Logger) ClientOption { return func(c *Client) { c.log = log } }

func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		mapper:     DefaultMapper(),
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ todo.Repository = (*Client)(nil)
var _ todo.SummaryProvider = (*Client)(nil)

func (c *Client) bearer() string {
	if c.token == nil {
		return ""
	}
	return c.token()
}

// do sends one request and decodes the envelope's data into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("api request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("%w: %s %s: %w", todo.ErrConnection, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", todo.ErrConnection, method, path, err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if ok && len(bytes.TrimSpace(raw)) == 0 {
		// 204 or an empty 200: success without an envelope.
		if out != nil {
			return fmt.Errorf("decode %s %s: response has no data", method, path)
		}
		return nil
	}

	var env Envelope[json.RawMessage]
	decodeErr := json.Unmarshal(raw, &env)

	if !ok || decodeErr == nil && !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(resp, env)}
		c.log.Error("api request rejected", "method", method, "path", path, "status", resp.StatusCode, "err", apiErr)
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, decodeErr)
	}
	if out == nil {
		return nil
	}
	if env.Data == nil {
		return fmt.Errorf("decode %s %s: response has no data", method, path)
	}
	if err := json.Unmarshal(*env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func errorMessage(resp *http.Response, env Envelope[json.RawMessage]) string {
	switch {
	case env.Message != "":
		return env.Message
	case env.Error != "":
		return env.Error
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

func taskPath(id string, suffix ...string) string {
	return "/tasks/" + url.PathEscape(id) + strings.Join(suffix, "")
}

// listPageSize is the page size requested from GET /tasks. Only the first
// page is read.
const listPageSize = 100

// List fetches the first page of GET /tasks.
func (c *Client) List(ctx context.Context) ([]todo.Task, error) {
	var p Page[Task]
	path := fmt.Sprintf("/tasks?page=1&limit=%d", listPageSize)
	if err := c.do(ctx, http.MethodGet, path, c.bearer(), nil, &p); err != nil {
		return nil, err
	}
	if p.Pagination.TotalPages > 1 {
		c.log.Warn("task list truncated to first page", "total", p.Pagination.Total, "limit", listPageSize)
	}
	tasks := make([]todo.Task, 0, len(p.Items))
	for _, w := range p.Items {
		tasks = append(tasks, c.mapper.ToTask(w))
	}
	return tasks, nil
}

// Get fetches one task.
func (c *Client) Get(ctx context.Context, id string) (todo.Task, error) {
	var w Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), c.bearer(), nil, &w); err != nil {
		return todo.Task{}, err
	}
	return c.mapper.ToTask(w), nil
}

func (c *Client) Create(ctx context.Context, req todo.CreateRequest) (todo.Task, error) {
	if err := req.Validate(); err != nil {
		return todo.Task{}, err
	}
	var w Task
	if err := c.do(ctx, http.MethodPost, "/tasks", c.bearer(), c.mapper.ToCreateBody(req), &w); err != nil {
		return todo.Task{}, err
	}
	return c.mapper.ToTask(w), nil
}

func (c *Client) Update(ctx context.Context, id string, req todo.UpdateRequest) (todo.Task, error) {
	if err := req.Validate(); err != nil {
		return todo.Task{}, err
	}
	var w Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), c.bearer(), c.mapper.ToUpdateBody(req), &w); err != nil {
		return todo.Task{}, err
	}
	return c.mapper.ToTask(w), nil
}

func (c *Client) Toggle(ctx context.Context, id string) (todo.Task, error) {
	var w Task
	if err := c.do(ctx, http.MethodPatch, taskPath(id, "/toggle"), c.bearer(), nil, &w); err != nil {
		return todo.Task{}, err
	}
	return c.mapper.ToTask(w), nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), c.bearer(), nil, nil)
}

// Summary reads GET /tasks/stats/summary.
func (c *Client) Summary(ctx context.Context) (todo.Summary, error) {
	var s todo.Summary
	if err := c.do(ctx, http.MethodGet, "/tasks/stats/summary", c.bearer(), nil, &s); err != nil {
		return todo.Summary{}, err
	}
	return s, nil
}

// Health reads GET /health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health", "", nil, &h)
	return h, err
}

// Close drops idle keep-alive connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
