package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-library/internal/logging"
)

// EventOp classifies a change under the watched root.
type EventOp int

const (
	// OpCreate reports a new file or directory.
	OpCreate EventOp = iota + 1
	// OpMove reports a path that was renamed or moved away.
	OpMove
	// OpDelete reports a removed path.
	OpDelete
)

func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpMove:
		return "move"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Event is a single filesystem change delivered on the watcher's queue.
type Event struct {
	Op   EventOp
	Path string
	At   time.Time
}

// Watcher turns fsnotify notifications for a directory tree into Events on a
// buffered queue. New directories are watched as they appear. Consumers read
// from Events; the watcher never blocks on a full queue and drops instead.
type Watcher struct {
	root   string
	accept func(path string) bool
	fw     *fsnotify.Watcher
	events chan Event
	log    *logging.Logger

	mu      sync.Mutex
	watched map[string]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher creates a watcher for root. accept decides whether a file path
// is interesting (typically a media-extension check); directories are always
// accepted. buffer sizes the event queue.
func NewWatcher(root string, accept func(path string) bool, buffer int) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if buffer <= 0 {
		buffer = 256
	}
	if accept == nil {
		accept = func(string) bool { return true }
	}
	return &Watcher{
		root:    root,
		accept:  accept,
		fw:      fw,
		events:  make(chan Event, buffer),
		log:     logging.New("watch"),
		watched: make(map[string]struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start registers the tree and begins delivering events.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.loop()
	w.log.Info("Watching %d directories under %s", w.watchedCount(), w.root)
	return nil
}

// Events returns the queue of filtered changes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the watcher and closes the event queue.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fw.Close()
	})
	return err
}

func (w *Watcher) watchedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

func (w *Watcher) addRecursive(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			w.log.Warn("Failed to watch %s: %v", path, err)
			return nil
		}
		w.mu.Lock()
		w.watched[path] = struct{}{}
		w.mu.Unlock()
		return nil
	})
	observe().ObserveWatchedDirectories(w.watchedCount())
	return err
}

func (w *Watcher) loop() {
	defer close(w.events)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			observe().ObserveWatcherError()
			w.log.Warn("Watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if isHidden(filepath.Base(ev.Name)) {
		return
	}

	w.mu.Lock()
	_, wasDir := w.watched[ev.Name]
	w.mu.Unlock()

	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.log.Warn("Failed to watch new directory %s: %v", ev.Name, err)
			}
			w.emit(OpCreate, ev.Name)
			return
		}
		if w.accept(ev.Name) {
			w.emit(OpCreate, ev.Name)
		}
	case ev.Has(fsnotify.Rename):
		if wasDir || w.accept(ev.Name) {
			w.forget(ev.Name)
			w.emit(OpMove, ev.Name)
		}
	case ev.Has(fsnotify.Remove):
		if wasDir || w.accept(ev.Name) {
			w.forget(ev.Name)
			w.emit(OpDelete, ev.Name)
		}
	}
}

// forget drops bookkeeping for a directory (and its subtree) that left the
// tree. fsnotify removes the kernel watch itself.
func (w *Watcher) forget(path string) {
	prefix := path + string(filepath.Separator)
	w.mu.Lock()
	for p := range w.watched {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(w.watched, p)
		}
	}
	n := len(w.watched)
	w.mu.Unlock()
	observe().ObserveWatchedDirectories(n)
}

func (w *Watcher) emit(op EventOp, path string) {
	select {
	case w.events <- Event{Op: op, Path: path, At: time.Now()}:
		w.log.Debug("%s %s", op, path)
	default:
		w.log.Debug("Event queue full, dropping %s %s", op, path)
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
