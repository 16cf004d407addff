package lektor

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cliossg/tekir/pkg/cl/logger"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher reloads the project schema when the project file, a model or a
// flow block changes on disk.
type Watcher struct {
	project  *Project
	log      logger.Logger
	debounce time.Duration
	onReload func(error)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending time.Time
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewWatcher(project *Project, log logger.Logger) *Watcher {
	return &Watcher{
		project:  project,
		log:      log,
		debounce: defaultDebounce,
	}
}

// SetDebounce changes the quiet period before a reload.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// OnReload registers fn to be called after every reload attempt.
func (w *Watcher) OnReload(fn func(error)) {
	w.onReload = fn
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, p := range w.project.WatchPaths() {
		if err := fw.Add(p); err != nil {
			w.log.Debugf("Not watching %s: %v", p, err)
		}
	}

	w.watcher = fw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(w.stopCh, w.doneCh)

	w.log.Info("Watching project schema for changes")
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	fw := w.watcher
	w.mu.Unlock()

	<-done
	return fw.Close()
}

func (w *Watcher) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debugf("Schema change: %s %s", event.Op, event.Name)
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Errorf("Watcher error: %v", err)

		case <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()
			if due {
				w.reload()
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.relevantPath(event.Name)
}

func (w *Watcher) relevantPath(name string) bool {
	if filepath.Clean(name) == filepath.Clean(w.project.File()) {
		return true
	}
	if !strings.HasSuffix(name, ".ini") {
		return false
	}
	dir := filepath.Dir(name)
	return dir == filepath.Join(w.project.Root(), modelsDir) ||
		dir == filepath.Join(w.project.Root(), flowblocksDir)
}

func (w *Watcher) reload() {
	err := w.project.Reload()
	if err != nil {
		w.log.Errorf("Cannot reload project schema: %v", err)
	} else {
		w.log.Info("Project schema reloaded")
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
