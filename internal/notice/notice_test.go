package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoHide(t *testing.T) {
	assert.Equal(t, 3*time.Second, Info.AutoHide())
	assert.Equal(t, 3*time.Second, Success.AutoHide())
	assert.Equal(t, 3*time.Second, Warning.AutoHide())
	assert.Zero(t, Error.AutoHide())
	assert.Equal(t, "warning", Warning.String())
}

func TestBoardExpiry(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	b := NewBoard(func() time.Time { return now })

	b.Show(Success, "Task added successfully!")
	n, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "Task added successfully!", n.Message)

	now = now.Add(2999 * time.Millisecond)
	_, ok = b.Current()
	assert.True(t, ok)

	now = now.Add(time.Millisecond)
	_, ok = b.Current()
	assert.False(t, ok)
}

func TestBoardErrorIsSticky(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	b := NewBoard(func() time.Time { return now })

	b.Show(Error, "Failed to add task")
	now = now.Add(time.Hour)
	n, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, Error, n.Kind)

	b.Dismiss()
	_, ok = b.Current()
	assert.False(t, ok)
}

func TestBoardReplaces(t *testing.T) {
	b := NewBoard(nil)
	b.Show(Error, "first")
	b.Show(Info, "second")

	n, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "second", n.Message)
}
