// Package todo defines the core domain model and the persistence contract.
// The Repository interface allows swapping storage backends (local key-value
// storage, the remote REST service, in-memory) without changing the task store
// or any UI on top of it.
package todo

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Priority levels for a task. The zero value means "not specified".
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// Priorities lists the valid levels, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return ""
	}
}

// Label is the capitalised form used by the UIs.
func (p Priority) Label() string {
	s := p.String()
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// OrDefault returns p, or PriorityMedium when p is unspecified.
func (p Priority) OrDefault() Priority {
	if p == 0 {
		return PriorityMedium
	}
	return p
}

// ParsePriority accepts low, medium or high in any case.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("%w: unknown priority %q", ErrValidation, s)
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: priority %d", ErrValidation, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Task is the central domain object.
type Task struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	Time        *TimeOfDay `json:"time"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// SetCompleted flips the completion flag and keeps CompletedAt in step with it.
func (t *Task) SetCompleted(done bool, now time.Time) {
	if done && !t.Completed {
		at := now
		t.CompletedAt = &at
	}
	if !done {
		t.CompletedAt = nil
	}
	t.Completed = done
}

// Overdue reports whether a pending task's reminder time has already passed today.
func (t Task) Overdue(now time.Time) bool {
	if t.Completed || t.Time == nil {
		return false
	}
	return t.Time.Before(OfTime(now))
}

// CreateRequest carries the fields a caller may set when adding a task.
type CreateRequest struct {
	Text        string
	Description string
	Priority    Priority
	Time        *TimeOfDay
}

// Validate trims Text and rejects empty text, an out-of-range priority or
// an invalid time.
func (r *CreateRequest) Validate() error {
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return fmt.Errorf("%w: task text is required", ErrValidation)
	}
	if r.Priority != 0 && !r.Priority.Valid() {
		return fmt.Errorf("%w: priority %d", ErrValidation, int(r.Priority))
	}
	return validTime(r.Time)
}

// UpdateRequest merges only the fields that are set. ClearTime removes the
// reminder time and wins over Time.
type UpdateRequest struct {
	Text        *string
	Description *string
	Priority    *Priority
	Time        *TimeOfDay
	ClearTime   bool
	Completed   *bool
}

// Empty reports whether the request would change nothing.
func (r UpdateRequest) Empty() bool {
	return r.Text == nil && r.Description == nil && r.Priority == nil &&
		r.Time == nil && !r.ClearTime && r.Completed == nil
}

// Validate trims Text when present and rejects it becoming empty.
func (r *UpdateRequest) Validate() error {
	if r.Text != nil {
		text := strings.TrimSpace(*r.Text)
		if text == "" {
			return fmt.Errorf("%w: task text cannot be empty", ErrValidation)
		}
		r.Text = &text
	}
	if r.Priority != nil && !r.Priority.Valid() {
		return fmt.Errorf("%w: priority %d", ErrValidation, int(*r.Priority))
	}
	return validTime(r.Time)
}

func validTime(t *TimeOfDay) error {
	if t != nil && !t.Valid() {
		return fmt.Errorf("%w: time %02d:%02d out of range", ErrValidation, t.Hour, t.Minute)
	}
	return nil
}

// Apply merges r into t and refreshes UpdatedAt.
func (r UpdateRequest) Apply(t *Task, now time.Time) {
	if r.Text != nil {
		t.Text = *r.Text
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.Priority != nil {
		t.Priority = *r.Priority
	}
	switch {
	case r.ClearTime:
		t.Time = nil
	case r.Time != nil:
		tod := *r.Time
		t.Time = &tod
	}
	if r.Completed != nil {
		t.SetCompleted(*r.Completed, now)
	}
	t.UpdatedAt = now
}

// Repository is the storage contract. Any backend (local key-value storage,
// the remote service, memory) must satisfy this interface. The task store and
// every UI use this interface, never a concrete type.
//
// Every mutating call has durably persisted its result before it returns.
type Repository interface {
	// List returns the whole collection in stored order.
	List(ctx context.Context) ([]Task, error)
	// Create assigns id and timestamps unless the backend already has.
	Create(ctx context.Context, req CreateRequest) (Task, error)
	// Update fails with ErrNotFound for an unknown id.
	Update(ctx context.Context, id string, req UpdateRequest) (Task, error)
	// Toggle flips Completed and maintains CompletedAt.
	Toggle(ctx context.Context, id string) (Task, error)
	// Delete fails with ErrNotFound when id is absent, including a second
	// delete of the same id.
	Delete(ctx context.Context, id string) error
	Close() error
}

// SummaryProvider is implemented by backends that compute Summary themselves.
type SummaryProvider interface {
	Summary(ctx context.Context) (Summary, error)
}
