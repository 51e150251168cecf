package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"toolbelt/pkg/logging"
)

// DefaultDebounce is how long the Watcher waits for further writes before
// reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-imports a registry file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors and SaveFile, which replace the file by rename, keep triggering
// events.
type Watcher struct {
	mu sync.Mutex

	registry *Registry
	path     string
	format   Format
	debounce time.Duration

	watcher *fsnotify.Watcher
	timer   *time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	onReload func(error)
}

// NewWatcher creates a watcher for path. A zero debounce selects
// DefaultDebounce.
func NewWatcher(registry *Registry, path string, format Format, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if format == "" {
		format = FormatFromPath(path)
	}
	return &Watcher{
		registry: registry,
		path:     filepath.Clean(path),
		format:   format,
		debounce: debounce,
	}
}

// Start begins watching. It returns once the watch is established; events are
// processed until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.loop(ctx, watcher, w.stopCh, w.doneCh)

	logging.Info("Registry", "Watching %s for changes", w.path)
	return nil
}

// OnReload registers fn to be called after every reload attempt with the
// outcome of the attempt.
func (w *Watcher) OnReload(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	done := w.doneCh
	w.mu.Unlock()

	<-done
}

func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Registry", "File watcher error: %v", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	err := w.registry.LoadFile(w.path, w.format)
	if err != nil {
		logging.Error("Registry", err, "Failed to reload %s", w.path)
	} else {
		logging.Info("Registry", "Reloaded %s", w.path)
	}

	w.mu.Lock()
	hook := w.onReload
	w.mu.Unlock()
	if hook != nil {
		hook(err)
	}
}
