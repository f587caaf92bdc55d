package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"zipedit/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Kind classifies a settled archive event.
type Kind int

const (
	// Changed means the archive was written or replaced on disk.
	Changed Kind = iota
	// Removed means the archive no longer exists.
	Removed
)

// Event is one debounced notification about the watched archive.
type Event struct {
	Path string
	Kind Kind
	At   time.Time
}

// Watcher notifies when one archive file changes on disk. It watches the
// parent directory rather than the file itself: zipedit and most editors
// replace files by renaming a temp file over them, which silently drops
// a watch held on the path directly.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	archivePath string
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	events      chan Event
	running     bool

	stats Stats
}

// Stats tracks watcher activity for debugging.
type Stats struct {
	RawEvents     int
	Delivered     int
	Dropped       int
	Errors        int
	LastEventTime time.Time
}

// New creates a watcher for the archive at path. Call Start to begin
// watching.
func New(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fw,
		archivePath: abs,
		dir:         filepath.Dir(abs),
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // Debounce rapid saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		events:      make(chan Event, 8),
	}, nil
}

// Events returns the notification channel. It is closed when the watcher
// stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching the archive's directory. Non-blocking; the event
// loop runs in a goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil // Already running
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("watching %s for changes to %s", w.dir, filepath.Base(w.archivePath))

	go w.run(ctx)

	return nil
}

// Stop stops the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

// IsWatching returns true while the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats returns a snapshot of watcher activity.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// run is the main event loop for the watcher.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.events)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.flushSettled()
		}
	}
}

// handleEvent records a raw filesystem event for debounced delivery.
// Only events touching the archive path matter.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.archivePath {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return // Ignore chmod, etc.
	}

	logging.WatchDebug("%s event for %s", event.Op, event.Name)

	w.mu.Lock()
	w.stats.RawEvents++
	w.stats.LastEventTime = time.Now()
	w.debounceMap[w.archivePath] = time.Now()
	w.mu.Unlock()
}

// flushSettled delivers events that have settled past the debounce
// window. Whether the archive survived the change decides the kind.
func (w *Watcher) flushSettled() {
	w.mu.Lock()
	now := time.Now()
	toDeliver := make([]string, 0)
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			toDeliver = append(toDeliver, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range toDeliver {
		kind := Changed
		if _, err := os.Stat(path); os.IsNotExist(err) {
			kind = Removed
		}
		ev := Event{Path: path, Kind: kind, At: now}
		select {
		case w.events <- ev:
			w.mu.Lock()
			w.stats.Delivered++
			w.mu.Unlock()
		default:
			// A stalled receiver must not wedge the loop.
			w.mu.Lock()
			w.stats.Dropped++
			w.mu.Unlock()
		}
	}
}
