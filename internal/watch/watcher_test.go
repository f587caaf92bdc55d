package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestWatcher(t *testing.T, path string) *Watcher {
	t.Helper()
	w, err := New(path)
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond
	return w
}

func waitForEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "event channel closed early")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return Event{}
	}
}

func TestWatcherSeesWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w := newTestWatcher(t, path)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	ev := waitForEvent(t, w)
	assert.Equal(t, Changed, ev.Kind)
	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, ev.Path)
}

func TestWatcherSeesRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w := newTestWatcher(t, path)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// The same replace sequence the rewrite pipeline uses.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	ev := waitForEvent(t, w)
	assert.Equal(t, Changed, ev.Kind)
}

func TestWatcherSeesRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w := newTestWatcher(t, path)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.Remove(path))

	ev := waitForEvent(t, w)
	assert.Equal(t, Removed, ev.Kind)
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w := newTestWatcher(t, path)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for sibling file: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStopClosesEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w := newTestWatcher(t, path)
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsWatching())

	w.Stop()
	assert.False(t, w.IsWatching())

	_, ok := <-w.Events()
	assert.False(t, ok, "events channel should be closed after Stop")

	// Stop twice is a no-op.
	w.Stop()
}

func TestWatcherContextCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	w := newTestWatcher(t, path)
	require.NoError(t, w.Start(ctx))

	cancel()

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok, "events channel should close on cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not exit on context cancellation")
	}

	require.NoError(t, w.watcher.Close())
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w := newTestWatcher(t, path)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	waitForEvent(t, w)

	// The burst settles into one notification, not five.
	select {
	case ev := <-w.Events():
		t.Fatalf("burst should debounce to a single event, got extra %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}

	stats := w.GetStats()
	assert.GreaterOrEqual(t, stats.RawEvents, 2)
	assert.Equal(t, 1, stats.Delivered)
}
