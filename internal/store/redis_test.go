package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MihkelHunter/dayplanner/internal/todo"
)

// Requires Redis running on localhost:6379; skipped otherwise.
const testRedisAddr = "localhost:6379"

func TestRedisKV(t *testing.T) {
	ctx := context.Background()
	kv, err := NewRedis(ctx, testRedisAddr, "dayplanner-test:")
	if err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	defer kv.Close()
	require.NoError(t, kv.Delete(ctx, TasksKey))
	t.Cleanup(func() { _ = kv.Delete(ctx, TasksKey) })

	l := NewLocal(kv)
	task, err := l.Create(ctx, todo.CreateRequest{Text: "from redis"})
	require.NoError(t, err)

	tasks, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	require.NoError(t, l.Delete(ctx, task.ID))
	_, ok, err := kv.Get(ctx, "never-set")
	require.NoError(t, err)
	assert.False(t, ok)
}
