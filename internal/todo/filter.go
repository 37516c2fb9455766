package todo

import (
	"fmt"
	"time"
)

// Filter selects a view over the task list.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
	// FilterHigh keeps high-priority tasks whether or not they are completed.
	FilterHigh Filter = "high"
)

// Filters lists the selectors in display order.
var Filters = []Filter{FilterAll, FilterPending, FilterCompleted, FilterHigh}

func ParseFilter(s string) (Filter, error) {
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown filter %q", ErrValidation, s)
}

// Match reports whether t belongs to the view.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterPending:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	case FilterHigh:
		return t.Priority == PriorityHigh
	default:
		return true
	}
}

// Apply returns the matching tasks in their original order. The input is
// never modified.
func (f Filter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Stats are the aggregate counts shown next to the list.
type Stats struct {
	Total     int
	Completed int
	Pending   int
}

func ComputeStats(tasks []Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}

// Percent is the completed share rounded down, 0 for an empty list.
func (s Stats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Completed * 100 / s.Total
}

// Summary is the extended statistics record served by the remote service.
type Summary struct {
	Total        int `json:"total"`
	Completed    int `json:"completed"`
	Pending      int `json:"pending"`
	HighPriority int `json:"highPriority"`
	Overdue      int `json:"overdue"`
}

// Summarize computes Summary locally. now decides which reminders are overdue.
func Summarize(tasks []Task, now time.Time) Summary {
	st := ComputeStats(tasks)
	s := Summary{Total: st.Total, Completed: st.Completed, Pending: st.Pending}
	for _, t := range tasks {
		if t.Priority == PriorityHigh {
			s.HighPriority++
		}
		if t.Overdue(now) {
			s.Overdue++
		}
	}
	return s
}
