package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MihkelHunter/dayplanner/internal/config"
	"github.com/MihkelHunter/dayplanner/internal/logging"
	"github.com/MihkelHunter/dayplanner/internal/store"
	"github.com/MihkelHunter/dayplanner/internal/todo"
)

func testConfig(backend, driver, path string) *config.Config {
	return &config.Config{
		Backend: backend,
		Storage: config.StorageConfig{Driver: driver, Path: path},
		API:     config.APIConfig{URL: "http://127.0.0.1:1/api", Timeout: time.Second},
	}
}

func TestOpenLocalSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	b, err := Open(ctx, testConfig("local", "sqlite", path), logging.Discard())
	require.NoError(t, err)
	assert.Nil(t, b.Gate)
	assert.IsType(t, &store.Local{}, b.Repo)

	_, err = b.Repo.Create(ctx, todo.CreateRequest{Text: "persisted"})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b, err = Open(ctx, testConfig("local", "sqlite", path), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	tasks, err := b.Repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "persisted", tasks[0].Text)
}

func TestOpenRemote(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, testConfig("remote", "memory", ""), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NotNil(t, b.Gate)
	assert.Same(t, b.Remote, b.Repo)
	assert.Empty(t, b.Gate.Token())

	_, err = b.Repo.List(ctx)
	assert.ErrorIs(t, err, todo.ErrConnection)
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(context.Background(), testConfig("cloud", "memory", ""), logging.Discard())
	assert.Error(t, err)

	_, err = OpenKV(context.Background(), config.StorageConfig{Driver: "etcd"})
	assert.Error(t, err)
}
