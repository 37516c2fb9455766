package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MihkelHunter/dayplanner/internal/auth"
	"github.com/MihkelHunter/dayplanner/internal/todo"
)

var testDay = time.Date(2026, 6, 1, 7, 30, 0, 0, time.UTC)

func testMapper() Mapper {
	return Mapper{Location: time.UTC, Now: func() time.Time { return testDay }}
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{
		WithMapper(testMapper()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewClient(srv.URL+"/api", opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClientList(t *testing.T) {
	due := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tasks", r.URL.Path)
		writeJSON(w, http.StatusOK, Envelope[Page[Task]]{
			Success: true,
			Data: &Page[Task]{
				Items: []Task{
					{ID: "1", Title: "Buy milk", Priority: todo.PriorityHigh, DueDate: &due, CreatedAt: testDay, UpdatedAt: testDay},
					{ID: "2", Title: "Read", Priority: todo.PriorityLow, Completed: true, CreatedAt: testDay, UpdatedAt: testDay.Add(time.Hour)},
				},
				Pagination: Pagination{Page: 1, Limit: 50, Total: 2, TotalPages: 1},
			},
		})
	})

	tasks, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "Buy milk", tasks[0].Text)
	require.NotNil(t, tasks[0].Time)
	assert.Equal(t, "09:00", tasks[0].Time.String())
	assert.Nil(t, tasks[0].CompletedAt)

	assert.Nil(t, tasks[1].Time)
	require.NotNil(t, tasks[1].CompletedAt)
	assert.True(t, tasks[1].CompletedAt.Equal(testDay.Add(time.Hour)), "completedAt falls back to updatedAt")
}

func TestClientListReadsFirstPageOnly(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, Envelope[Page[Task]]{
			Success: true,
			Data: &Page[Task]{
				Items:      []Task{{ID: "p1", Title: "page 1", Priority: todo.PriorityLow}},
				Pagination: Pagination{Page: 1, Limit: 100, Total: 101, TotalPages: 2},
			},
		})
	})

	tasks, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "p1", tasks[0].ID)
	assert.Equal(t, 1, calls)
}

func TestClientCreateSendsMappedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Buy milk", body["title"])
		assert.Equal(t, "high", body["priority"])
		assert.Equal(t, "2026-06-01T09:00:00Z", body["dueDate"])
		assert.NotContains(t, body, "text")

		due := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
		writeJSON(w, http.StatusCreated, Envelope[Task]{Success: true, Data: &Task{
			ID: "new", Title: "Buy milk", Priority: todo.PriorityHigh, DueDate: &due, CreatedAt: testDay, UpdatedAt: testDay,
		}})
	}, WithTokenSource(func() string { return "secret" }))

	task, err := c.Create(context.Background(), todo.CreateRequest{
		Text: "Buy milk", Priority: todo.PriorityHigh, Time: &todo.TimeOfDay{Hour: 9},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", task.ID)
	assert.Equal(t, todo.PriorityHigh, task.Priority)
	assert.Equal(t, "09:00", task.Time.String())
	assert.False(t, task.Completed)
}

func TestClientCreateValidatesLocally(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.Create(context.Background(), todo.CreateRequest{Text: "  "})
	assert.ErrorIs(t, err, todo.ErrValidation)
	assert.False(t, called)
}

func TestClientUpdateSendsOnlySetFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/tasks/abc", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"renamed","dueDate":null}`, string(raw))

		writeJSON(w, http.StatusOK, Envelope[Task]{Success: true, Data: &Task{ID: "abc", Title: "renamed", Priority: todo.PriorityMedium}})
	})

	text := "renamed"
	task, err := c.Update(context.Background(), "abc", todo.UpdateRequest{Text: &text, ClearTime: true})
	require.NoError(t, err)
	assert.Equal(t, "renamed", task.Text)
	assert.Nil(t, task.Time)
}

func TestClientToggle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/tasks/abc/toggle", r.URL.Path)
		at := testDay
		writeJSON(w, http.StatusOK, Envelope[Task]{Success: true, Data: &Task{ID: "abc", Title: "x", Priority: todo.PriorityLow, Completed: true, UpdatedAt: testDay, CompletedAt: &at}})
	})

	task, err := c.Toggle(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, task.Completed)
	require.NotNil(t, task.CompletedAt)
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantErr error
		wantMsg string
	}{
		{"not found", http.StatusNotFound, Envelope[any]{Success: false, Error: "not_found", Message: "Task not found"}, todo.ErrNotFound, "Task not found"},
		{"bad request", http.StatusBadRequest, Envelope[any]{Error: "Title is required"}, todo.ErrValidation, "Title is required"},
		{"unauthorized", http.StatusUnauthorized, Envelope[any]{}, todo.ErrUnauthorized, "HTTP 401: Unauthorized"},
		{"server error", http.StatusInternalServerError, "oops", todo.ErrConnection, "HTTP 500: Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			err := c.Delete(context.Background(), "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestClientDeleteWithoutBody(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusOK} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/api/tasks/abc", r.URL.Path)
				w.WriteHeader(status)
			})
			assert.NoError(t, c.Delete(context.Background(), "abc"))
		})
	}
}

func TestClientEmptyBodyWithoutData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	_, err := c.Toggle(context.Background(), "abc")
	assert.ErrorContains(t, err, "response has no data")
}

func TestClientSuccessFalseIsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Envelope[any]{Success: false, Message: "quota exceeded"})
	})
	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, "quota exceeded", err.Error())
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, todo.ErrConnection)
}

func TestClientSummaryAndHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tasks/stats/summary":
			writeJSON(w, http.StatusOK, Envelope[todo.Summary]{Success: true, Data: &todo.Summary{Total: 3, Completed: 1, Pending: 2, HighPriority: 1}})
		case "/api/health":
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, Envelope[Health]{Success: true, Data: &Health{Status: "ok"}})
		default:
			http.NotFound(w, r)
		}
	}, WithTokenSource(func() string { return "t" }))

	s, err := c.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, todo.Summary{Total: 3, Completed: 1, Pending: 2, HighPriority: 1}, s)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}

func TestAuthClient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/google":
			var body LoginBody
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "google-token", body.IDToken)
			writeJSON(w, http.StatusOK, Envelope[LoginData]{Success: true, Data: &LoginData{Token: "session"}})
		case "/api/auth/me":
			if r.Header.Get("Authorization") != "Bearer session" {
				writeJSON(w, http.StatusUnauthorized, Envelope[any]{Message: "Invalid or expired token"})
				return
			}
			writeJSON(w, http.StatusOK, Envelope[MeData]{Success: true, Data: &MeData{User: auth.User{ID: "u1", Email: "a@example.com"}}})
		case "/api/auth/logout":
			writeJSON(w, http.StatusOK, Envelope[any]{Success: true})
		case "/api/auth/refresh":
			writeJSON(w, http.StatusOK, Envelope[TokenData]{Success: true, Data: &TokenData{Token: "session-2"}})
		}
	})
	a := c.Auth()
	ctx := context.Background()

	sess, err := a.Login(ctx, "google-token")
	require.NoError(t, err)
	assert.Equal(t, "session", sess.Token)

	user, err := a.Me(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = a.Me(ctx, "wrong")
	assert.ErrorIs(t, err, todo.ErrUnauthorized)

	require.NoError(t, a.Logout(ctx, "session"))

	tok, err := a.Refresh(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, "session-2", tok)
}
