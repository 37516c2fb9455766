// Package remote talks to the day-planner REST service. It holds the wire
// records, the mapping between them and the canonical todo.Task, and an HTTP
// client implementing todo.Repository.
package remote

import (
	"encoding/json"
	"time"

	"github.com/MihkelHunter/dayplanner/internal/todo"
)

// Envelope wraps every response body.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Page is the paginated list payload of GET /tasks.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Task is the service's record shape.
type Task struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Completed   bool          `json:"completed"`
	Priority    todo.Priority `json:"priority"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// CreateTaskBody is the POST /tasks payload.
type CreateTaskBody struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Priority    todo.Priority `json:"priority,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
}

// UpdateTaskBody is the PUT /tasks/{id} payload. Only set fields are sent;
// ClearDueDate sends an explicit null.
type UpdateTaskBody struct {
	Title        *string
	Description  *string
	Priority     *todo.Priority
	DueDate      *time.Time
	ClearDueDate bool
	Completed    *bool
}

func (b UpdateTaskBody) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 5)
	if b.Title != nil {
		m["title"] = *b.Title
	}
	if b.Description != nil {
		m["description"] = *b.Description
	}
	if b.Priority != nil {
		m["priority"] = *b.Priority
	}
	switch {
	case b.ClearDueDate:
		m["dueDate"] = nil
	case b.DueDate != nil:
		m["dueDate"] = *b.DueDate
	}
	if b.Completed != nil {
		m["completed"] = *b.Completed
	}
	return json.Marshal(m)
}

func (b *UpdateTaskBody) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = UpdateTaskBody{}
	fields := []struct {
		key string
		dst any
	}{
		{"title", &b.Title},
		{"description", &b.Description},
		{"priority", &b.Priority},
		{"completed", &b.Completed},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok || string(v) == "null" {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return err
		}
	}
	if v, ok := raw["dueDate"]; ok {
		if string(v) == "null" {
			b.ClearDueDate = true
		} else if err := json.Unmarshal(v, &b.DueDate); err != nil {
			return err
		}
	}
	return nil
}

// Health is returned by /health.
type Health struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Mapper converts between canonical tasks and wire records. A reminder time
// is placed on the current day in Location; an incoming due date is read back
// as its time of day in Location.
type Mapper struct {
	Location *time.Location
	Now      func() time.Time
}

// DefaultMapper uses the local time zone and the wall clock.
func DefaultMapper() Mapper {
	return Mapper{Location: time.Local, Now: time.Now}
}

func (m Mapper) loc() *time.Location {
	if m.Location == nil {
		return time.Local
	}
	return m.Location
}

func (m Mapper) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m Mapper) dueDate(t *todo.TimeOfDay) *time.Time {
	if t == nil {
		return nil
	}
	d := t.On(m.now(), m.loc()).UTC()
	return &d
}

func (m Mapper) timeOf(d *time.Time) *todo.TimeOfDay {
	if d == nil {
		return nil
	}
	tod := todo.OfTime(d.In(m.loc()))
	return &tod
}

// ToTask maps a wire record to the canonical shape. A completed record
// without completedAt takes updatedAt as its completion time.
func (m Mapper) ToTask(w Task) todo.Task {
	t := todo.Task{
		ID:          w.ID,
		Text:        w.Title,
		Description: w.Description,
		Completed:   w.Completed,
		Priority:    w.Priority.OrDefault(),
		Time:        m.timeOf(w.DueDate),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if w.Completed {
		at := w.UpdatedAt
		if w.CompletedAt != nil {
			at = *w.CompletedAt
		}
		t.CompletedAt = &at
	}
	return t
}

// FromTask maps a canonical task to its wire record.
func (m Mapper) FromTask(t todo.Task) Task {
	return Task{
		ID:          t.ID,
		Title:       t.Text,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority,
		DueDate:     m.dueDate(t.Time),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func (m Mapper) ToCreateBody(r todo.CreateRequest) CreateTaskBody {
	return CreateTaskBody{
		Title:       r.Text,
		Description: r.Description,
		Priority:    r.Priority.OrDefault(),
		DueDate:     m.dueDate(r.Time),
	}
}

func (m Mapper) FromCreateBody(b CreateTaskBody) todo.CreateRequest {
	return todo.CreateRequest{
		Text:        b.Title,
		Description: b.Description,
		Priority:    b.Priority,
		Time:        m.timeOf(b.DueDate),
	}
}

func (m Mapper) ToUpdateBody(r todo.UpdateRequest) UpdateTaskBody {
	return UpdateTaskBody{
		Title:        r.Text,
		Description:  r.Description,
		Priority:     r.Priority,
		DueDate:      m.dueDate(r.Time),
		ClearDueDate: r.ClearTime,
		Completed:    r.Completed,
	}
}

func (m Mapper) FromUpdateBody(b UpdateTaskBody) todo.UpdateRequest {
	return todo.UpdateRequest{
		Text:        b.Title,
		Description: b.Description,
		Priority:    b.Priority,
		Time:        m.timeOf(b.DueDate),
		ClearTime:   b.ClearDueDate,
		Completed:   b.Completed,
	}
}
