// Package watcher watches a project tree for file changes and
// delivers debounced batches of events to a handler, so the indexer
// can run an incremental pass instead of a full rescan.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ctxengine/internal/logging"
)

// EventType identifies the kind of file system change observed.
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is one observed change to a project-relative path.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// ChangeHandler receives a debounced batch of events for projectRoot.
type ChangeHandler func(projectRoot string, events []Event)

// IgnoreFunc reports whether path should be excluded from watching,
// mirroring the scanner's ignore precedence so the watcher never fires
// on paths the indexer would skip anyway.
type IgnoreFunc func(path string) bool

// Config controls watcher behavior.
type Config struct {
	DebounceMs int
}

// DefaultConfig returns the watcher's default debounce window.
func DefaultConfig() Config {
	return Config{DebounceMs: 250}
}

// Watcher recursively watches a single project root with fsnotify and
// delivers debounced, batched change events.
type Watcher struct {
	root    string
	config  Config
	ignore  IgnoreFunc
	logger  *logging.Logger
	handler ChangeHandler

	fs         *fsnotify.Watcher
	debouncers map[string]*Debouncer

	mu       sync.Mutex
	watched  map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Watcher for root. Start must be called to begin
// watching.
func New(root string, config Config, ignore IgnoreFunc, logger *logging.Logger, handler ChangeHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:       root,
		config:     config,
		ignore:     ignore,
		logger:     logger,
		handler:    handler,
		fs:         fsw,
		watched:    make(map[string]bool),
		stopCh:     make(chan struct{}),
		debouncers: make(map[string]*Debouncer),
	}
	return w, nil
}

// debounceFor returns the path's debouncer, creating it on first use. Each
// path gets its own independent debounce window so unrelated activity
// elsewhere in the tree never resets another path's timer (spec.md §4.7).
func (w *Watcher) debounceFor(path string) *Debouncer {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.debouncers[path]
	if !ok {
		d = NewDebouncer(time.Duration(w.config.DebounceMs) * time.Millisecond)
		w.debouncers[path] = d
	}
	return d
}

// Start walks root adding a watch on every directory not excluded by
// ignore, then begins processing fsnotify events in the background.
func (w *Watcher) Start() error {
	if err := w.addTree(w.root); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.loop()

	w.logger.Info("watcher started", map[string]interface{}{
		"root":        w.root,
		"directories": len(w.watched),
	})
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		for _, d := range w.debouncers {
			d.Cancel()
		}
		w.mu.Unlock()
		w.fs.Close()
	})
	w.wg.Wait()
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip rather than abort the whole watch
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignore != nil && w.ignore(path) {
			return filepath.SkipDir
		}
		w.mu.Lock()
		already := w.watched[path]
		w.mu.Unlock()
		if already {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", map[string]interface{}{
				"path": path, "error": err.Error(),
			})
			return nil
		}
		w.mu.Lock()
		w.watched[path] = true
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", map[string]interface{}{"error": err.Error()})
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handleFSEvent(ev fsnotify.Event) {
	if w.ignore != nil && w.ignore(ev.Name) {
		return
	}

	// A new directory needs its own watch so nested creates are seen.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addTree(ev.Name)
		}
	}

	var typ EventType
	switch {
	case ev.Op&fsnotify.Create != 0:
		typ = EventCreate
	case ev.Op&fsnotify.Remove != 0:
		typ = EventDelete
	case ev.Op&fsnotify.Rename != 0:
		typ = EventRename
	case ev.Op&fsnotify.Write != 0:
		typ = EventModify
	default:
		return
	}

	event := Event{Type: typ, Path: ev.Name, Timestamp: time.Now()}
	w.debounceFor(ev.Name).Trigger(func() { w.emit([]Event{event}) })
}

func (w *Watcher) emit(events []Event) {
	if w.handler == nil || len(events) == 0 {
		return
	}
	w.logger.Debug("dispatching debounced change batch", map[string]interface{}{
		"count": len(events),
	})
	w.handler(w.root, events)
}

// WatchedDirs returns the directories currently under watch.
func (w *Watcher) WatchedDirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.watched))
	for d := range w.watched {
		dirs = append(dirs, d)
	}
	return dirs
}
