// Package tasks holds the in-memory task list and keeps it consistent with a
// todo.Repository. Changes are applied only after the repository confirms
// them; nothing is applied optimistically.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MihkelHunter/dayplanner/internal/todo"
)

// State is a snapshot of the store.
type State struct {
	Tasks       []todo.Task
	Loading     bool
	Err         error
	Initialized bool
}

// ErrorMessage returns the message of Err, or "" when there is none.
func (s State) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// clearParallelism bounds concurrent deletes during bulk clears.
const clearParallelism = 4

// Store owns the in-memory collection.
//
// Every action records a repository failure in State.Err and also returns
// it. Validation failures are only returned.
type Store struct {
	repo todo.Repository
	log  *slog.Logger
	now  func() time.Time

	mu        sync.Mutex
	state     State
	version   uint64
	inflight  int
	disposed  bool
	nextSub   int
	listeners map[int]func(State)

	// notifyMu serializes delivery; delivered is the newest version sent.
	notifyMu  sync.Mutex
	delivered uint64
}

type Option func(*Store)

func WithLogger(log *slog.Logger) Option { return func(s *Store) { s.log = log } }

// WithClock sets the time used for locally computed summaries.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(repo todo.Repository, opts ...Option) *Store {
	s := &Store{
		repo:      repo,
		log:       slog.Default(),
		now:       time.Now,
		state:     State{Tasks: []todo.Task{}},
		listeners: make(map[int]func(State)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init performs the first load.
func (s *Store) Init(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Dispose detaches all listeners. Calls still in flight settle silently.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	clear(s.listeners)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := s.state
	st.Tasks = slices.Clone(s.state.Tasks)
	return st
}

// Subscribe calls fn with a snapshot after state changes. Calls are never
// concurrent and fn must not call the store's actions itself. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// update applies fn to the state under the lock and notifies listeners.
// A snapshot older than one already delivered is dropped, so the last
// notification always carries the current state.
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.Loading = s.inflight > 0
	s.version++
	if s.disposed {
		s.mu.Unlock()
		return
	}
	version := s.version
	snap := s.snapshotLocked()
	fns := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		fns = append(fns, l)
	}
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version
	for _, l := range fns {
		l(snap)
	}
}

func (s *Store) begin() {
	s.update(func(*State) { s.inflight++ })
}

// finish ends an adapter call: on success it applies fn and clears the error,
// on failure it records err and leaves the tasks alone.
func (s *Store) finish(op string, err error, fn func(*State)) {
	if err != nil {
		s.log.Error("task operation failed", "op", op, "err", err)
	}
	s.update(func(st *State) {
		s.inflight--
		if err != nil {
			st.Err = err
			return
		}
		st.Err = nil
		if fn != nil {
			fn(st)
		}
	})
}

// Refresh replaces the list with the repository's copy. A failed first load
// leaves the store uninitialized; a failed reload keeps the previous tasks.
func (s *Store) Refresh(ctx context.Context) error {
	s.begin()
	tasks, err := s.repo.List(ctx)
	s.finish("refresh", err, func(st *State) {
		st.Tasks = tasks
		st.Initialized = true
	})
	return err
}

// AddTask creates a task and puts it at the front of the list.
func (s *Store) AddTask(ctx context.Context, req todo.CreateRequest) (todo.Task, error) {
	if err := req.Validate(); err != nil {
		return todo.Task{}, err
	}
	s.begin()
	t, err := s.repo.Create(ctx, req)
	s.finish("add", err, func(st *State) {
		st.Tasks = append([]todo.Task{t}, st.Tasks...)
	})
	return t, err
}

// UpdateTask merges req into a task. Ids missing from the list are not added.
func (s *Store) UpdateTask(ctx context.Context, id string, req todo.UpdateRequest) (todo.Task, error) {
	if err := req.Validate(); err != nil {
		return todo.Task{}, err
	}
	s.begin()
	t, err := s.repo.Update(ctx, id, req)
	s.finish("update", err, replace(t))
	return t, err
}

func (s *Store) ToggleTask(ctx context.Context, id string) (todo.Task, error) {
	s.begin()
	t, err := s.repo.Toggle(ctx, id)
	s.finish("toggle", err, replace(t))
	return t, err
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.begin()
	err := s.repo.Delete(ctx, id)
	s.finish("delete", err, func(st *State) {
		st.Tasks = slices.DeleteFunc(st.Tasks, func(t todo.Task) bool { return t.ID == id })
	})
	return err
}

// ClearCompleted deletes every completed task and returns how many were
// deleted. A failed delete does not stop the others.
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	return s.clear(ctx, "clear completed", todo.FilterCompleted)
}

// ClearAll deletes every task and returns how many were deleted.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	return s.clear(ctx, "clear all", todo.FilterAll)
}

func (s *Store) clear(ctx context.Context, op string, f todo.Filter) (int, error) {
	targets := f.Apply(s.Snapshot().Tasks)
	s.begin()

	errs := make([]error, len(targets))
	var g errgroup.Group
	g.SetLimit(clearParallelism)
	for i, t := range targets {
		g.Go(func() error {
			if err := s.repo.Delete(ctx, t.ID); err != nil {
				errs[i] = fmt.Errorf("delete %s: %w", t.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	deleted := make(map[string]bool, len(targets))
	for i, t := range targets {
		if errs[i] == nil {
			deleted[t.ID] = true
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		s.log.Error("task operation failed", "op", op, "failed", len(targets)-len(deleted), "err", err)
	}
	s.update(func(st *State) {
		s.inflight--
		st.Tasks = slices.DeleteFunc(st.Tasks, func(t todo.Task) bool { return deleted[t.ID] })
		st.Err = err
	})
	return len(deleted), err
}

// ClearError drops the recorded error without touching the tasks.
func (s *Store) ClearError() {
	s.update(func(st *State) { st.Err = nil })
}

// View returns the filtered tasks together with stats over the whole list.
func (s *Store) View(f todo.Filter) ([]todo.Task, todo.Stats) {
	all := s.Snapshot().Tasks
	return f.Apply(all), todo.ComputeStats(all)
}

// Summary asks the repository for its summary when it offers one and falls
// back to computing it from the in-memory list.
func (s *Store) Summary(ctx context.Context) (todo.Summary, error) {
	if p, ok := s.repo.(todo.SummaryProvider); ok {
		sum, err := p.Summary(ctx)
		if err == nil {
			return sum, nil
		}
		s.log.Warn("summary unavailable, computing locally", "err", err)
	}
	return todo.Summarize(s.Snapshot().Tasks, s.now()), nil
}

func replace(t todo.Task) func(*State) {
	return func(st *State) {
		for i := range st.Tasks {
			if st.Tasks[i].ID == t.ID {
				st.Tasks[i] = t
				return
			}
		}
	}
}
