package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsChangedDirectory(t *testing.T) {
	watcher, err := NewWatcher(WithDebounce(20 * time.Millisecond))
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	dir := t.TempDir()
	require.NoError(t, watcher.Watch(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("hello"), 0o644))

	select {
	case path := <-watcher.Changes():
		assert.Equal(t, cleanPath(dir), path)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcherSync(t *testing.T) {
	watcher, err := NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	first, second := t.TempDir(), t.TempDir()
	watcher.Sync([]string{first, second})
	assert.ElementsMatch(t, []string{cleanPath(first), cleanPath(second)}, watcher.Watched())

	watcher.Sync([]string{second})
	assert.Equal(t, []string{cleanPath(second)}, watcher.Watched())

	watcher.Unwatch(second)
	assert.Empty(t, watcher.Watched())
}

func TestWatcherErrors(t *testing.T) {
	var reported []error
	watcher, err := NewWatcher(WithOnError(func(err error) { reported = append(reported, err) }))
	require.NoError(t, err)

	assert.Error(t, watcher.Watch(filepath.Join(t.TempDir(), "missing")))
	watcher.Sync([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Len(t, reported, 1)

	require.NoError(t, watcher.Close())
	require.NoError(t, watcher.Close())
	assert.ErrorIs(t, watcher.Watch(t.TempDir()), ErrWatcherClosed)
}
