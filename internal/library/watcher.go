package library

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	debounceDelay   = 500 * time.Millisecond
	eventBufferSize = 16
)

// Event signals that book files under a root changed and the root
// should be rescanned.
type Event struct {
	Root      string
	Timestamp time.Time
}

// Watcher watches library roots for book file changes. Events are
// debounced per root: a batch of file operations produces one event.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan Event
	log     zerolog.Logger

	mu       sync.Mutex
	roots    []string
	debounce map[string]*time.Timer
	closed   bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher starts watching the given roots and their subdirectories.
// Roots that do not exist are skipped with a warning.
func NewWatcher(roots []string, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		events:   make(chan Event, eventBufferSize),
		log:      log.With().Str("component", "library-watcher").Logger(),
		debounce: make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			w.log.Warn().Err(err).Str("root", abs).Msg("cannot watch library root")
			continue
		}
		if err := w.addTree(abs); err != nil {
			w.log.Warn().Err(err).Str("root", abs).Msg("cannot watch library root")
			continue
		}
		w.roots = append(w.roots, abs)
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Events returns the channel rescan signals are delivered on. The
// channel is closed by Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops watching and closes the event channel.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for _, timer := range w.debounce {
		timer.Stop()
	}
	w.debounce = make(map[string]*time.Timer)
	w.mu.Unlock()

	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	close(w.events)
	return err
}

// addTree registers root and every directory below it. fsnotify does
// not watch recursively on its own.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
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
			w.log.Debug().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	// New directories join the watch so nested additions are seen.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addTree(event.Name)
		}
	}

	if _, isBook := FormatForPath(event.Name); !isBook {
		if info, err := os.Stat(event.Name); err != nil || !info.IsDir() {
			return
		}
	}

	root := w.rootFor(event.Name)
	if root == "" {
		return
	}

	w.mu.Lock()
	if timer, exists := w.debounce[root]; exists {
		timer.Stop()
	}
	w.debounce[root] = time.AfterFunc(debounceDelay, func() {
		w.notify(root)
	})
	w.mu.Unlock()
}

func (w *Watcher) rootFor(path string) string {
	for _, root := range w.roots {
		if path == root {
			return root
		}
		if rel, err := filepath.Rel(root, path); err == nil && filepath.IsLocal(rel) {
			return root
		}
	}
	return ""
}

// notify sends under the mutex so no event can race the channel close.
func (w *Watcher) notify(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	delete(w.debounce, root)

	select {
	case w.events <- Event{Root: root, Timestamp: time.Now()}:
	default:
		// Buffer full; a rescan is already pending.
	}
}
