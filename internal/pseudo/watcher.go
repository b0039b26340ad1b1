package pseudo

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"qestudio/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps an Index in sync with its library directories.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	index       *Index
	dirs        []string
	pending     map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats counts processed events.
type WatcherStats struct {
	Indexed int
	Removed int
	Errors  int
}

// NewWatcher creates a watcher for dirs; dirs[i] keeps rank i as in Scan.
func NewWatcher(index *Index, dirs []string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     w,
		index:       index,
		dirs:        dirs,
		pending:     make(map[string]time.Time),
		debounceDur: 250 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// SetDebounce changes how long a path must stay quiet before it is indexed.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounceDur = d
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			logging.PseudoWarn("Watcher: cannot watch %s: %v", dir, err)
			continue
		}
		logging.Pseudo("Watcher: watching %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
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
		logging.PseudoWarn("Watcher: error closing: %v", err)
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
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
			logging.PseudoWarn("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.index.hasExtension(filepath.Base(event.Name)) {
		return
	}
	logging.PseudoDebug("Watcher: %s %s", event.Op, event.Name)

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// flush processes paths that have been quiet for the debounce window. The
// file's presence at flush time decides between index and remove, so a
// rename is a remove of the old name and a create of the new one.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounceDur {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		dir, rank := w.owner(path)
		var err error
		removed := false
		if exists(path) {
			err = w.index.IndexFile(ctx, dir, rank, path)
		} else {
			removed = true
			err = w.index.RemoveFile(ctx, path)
		}

		w.mu.Lock()
		switch {
		case err != nil:
			w.stats.Errors++
			logging.PseudoWarn("Watcher: update %s: %v", path, err)
		case removed:
			w.stats.Removed++
		default:
			w.stats.Indexed++
		}
		w.mu.Unlock()
	}
}

func (w *Watcher) owner(path string) (string, int) {
	parent := filepath.Clean(filepath.Dir(path))
	for i, d := range w.dirs {
		if filepath.Clean(d) == parent {
			return d, i
		}
	}
	return parent, len(w.dirs)
}
