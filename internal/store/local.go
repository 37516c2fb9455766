package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MihkelHunter/dayplanner/internal/todo"
)

// TasksKey is the fixed key holding the serialized collection.
const TasksKey = "dayPlannerTasks"

// Local implements todo.Repository on top of a KV backend.
//
// Delete is not idempotent: removing an id that is already gone returns
// todo.ErrNotFound.
type Local struct {
	kv  KV
	key string
	log *slog.Logger
	now func() time.Time
	loc *time.Location
	mu  sync.Mutex
}

// Option configures a Local adapter.
type Option func(*Local)

// WithKey stores the collection under key instead of TasksKey.
func WithKey(key string) Option { return func(l *Local) { l.key = key } }

func WithLogger(log *slog.Logger) Option { return func(l *Local) { l.log = log } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(l *Local) { l.now = now } }

// WithLocation sets the zone reminder times are read in when counting
// overdue tasks. Defaults to time.Local.
func WithLocation(loc *time.Location) Option { return func(l *Local) { l.loc = loc } }

func NewLocal(kv KV, opts ...Option) *Local {
	l := &Local{
		kv:  kv,
		key: TasksKey,
		log: slog.Default(),
		now: func() time.Time { return time.Now().UTC() },
		loc: time.Local,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

var _ todo.Repository = (*Local)(nil)
var _ todo.SummaryProvider = (*Local)(nil)

// load reads the collection. Corrupt data is preserved under key+".corrupt",
// logged and treated as an empty collection.
func (l *Local) load(ctx context.Context) ([]todo.Task, error) {
	raw, ok, err := l.kv.Get(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", todo.ErrConnection, l.key, err)
	}
	if !ok || len(raw) == 0 {
		return []todo.Task{}, nil
	}
	var tasks []todo.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		l.log.Warn("discarding unreadable task data",
			"key", l.key, "err", fmt.Errorf("%w: %v", todo.ErrStorageCorrupt, err))
		if berr := l.kv.Set(ctx, l.key+".corrupt", raw); berr != nil {
			l.log.Error("backup of unreadable task data failed", "key", l.key, "err", berr)
		}
		return []todo.Task{}, nil
	}
	if tasks == nil {
		tasks = []todo.Task{}
	}
	return tasks, nil
}

func (l *Local) save(ctx context.Context, tasks []todo.Task) error {
	raw, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := l.kv.Set(ctx, l.key, raw); err != nil {
		return fmt.Errorf("%w: write %s: %v", todo.ErrConnection, l.key, err)
	}
	return nil
}

func (l *Local) List(ctx context.Context) ([]todo.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// Get returns a single task by id.
func (l *Local) Get(ctx context.Context, id string) (todo.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tasks, err := l.load(ctx)
	if err != nil {
		return todo.Task{}, err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return todo.Task{}, fmt.Errorf("%w: %s", todo.ErrNotFound, id)
	}
	return tasks[i], nil
}

// Create prepends the new task so the stored order is latest first.
func (l *Local) Create(ctx context.Context, req todo.CreateRequest) (todo.Task, error) {
	if err := req.Validate(); err != nil {
		return todo.Task{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	tasks, err := l.load(ctx)
	if err != nil {
		return todo.Task{}, err
	}
	now := l.now()
	t := todo.Task{
		ID:          uuid.NewString(),
		Text:        req.Text,
		Description: req.Description,
		Priority:    req.Priority.OrDefault(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Time != nil {
		tod := *req.Time
		t.Time = &tod
	}
	tasks = append([]todo.Task{t}, tasks...)
	if err := l.save(ctx, tasks); err != nil {
		return todo.Task{}, err
	}
	return t, nil
}

func (l *Local) Update(ctx context.Context, id string, req todo.UpdateRequest) (todo.Task, error) {
	if err := req.Validate(); err != nil {
		return todo.Task{}, err
	}
	return l.mutate(ctx, id, func(t *todo.Task, now time.Time) { req.Apply(t, now) })
}

func (l *Local) Toggle(ctx context.Context, id string) (todo.Task, error) {
	return l.mutate(ctx, id, func(t *todo.Task, now time.Time) {
		t.SetCompleted(!t.Completed, now)
		t.UpdatedAt = now
	})
}

func (l *Local) mutate(ctx context.Context, id string, fn func(*todo.Task, time.Time)) (todo.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tasks, err := l.load(ctx)
	if err != nil {
		return todo.Task{}, err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return todo.Task{}, fmt.Errorf("%w: %s", todo.ErrNotFound, id)
	}
	fn(&tasks[i], l.now())
	if err := l.save(ctx, tasks); err != nil {
		return todo.Task{}, err
	}
	return tasks[i], nil
}

func (l *Local) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tasks, err := l.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", todo.ErrNotFound, id)
	}
	tasks = append(tasks[:i], tasks[i+1:]...)
	return l.save(ctx, tasks)
}

func (l *Local) Summary(ctx context.Context) (todo.Summary, error) {
	tasks, err := l.List(ctx)
	if err != nil {
		return todo.Summary{}, err
	}
	return todo.Summarize(tasks, l.now().In(l.loc)), nil
}

// Close releases the underlying KV backend.
func (l *Local) Close() error {
	return l.kv.Close()
}

func indexOf(tasks []todo.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
