// Package watch reports file changes under workspace folders using
// fsnotify. Directory trees are watched recursively; events are delivered to
// a callback from the Run goroutine.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Event is a single observed change.
type Event struct {
	Path    string
	Removed bool
}

// Watcher watches directory trees.
type Watcher struct {
	fw      *fsnotify.Watcher
	log     *slog.Logger
	onEvent func(Event)

	mu    sync.Mutex
	roots map[string]struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a custom logger for the Watcher.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// New creates a Watcher delivering events to onEvent.
func New(onEvent func(Event), opts ...Option) (*Watcher, error) {
	if onEvent == nil {
		return nil, errors.New("watch: onEvent is required")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:      fw,
		log:     slog.Default(),
		onEvent: onEvent,
		roots:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Add starts watching dir and every directory below it. Files that already
// exist are reported as events so the caller sees the initial contents.
func (w *Watcher) Add(dir string) error {
	dir = filepath.Clean(dir)
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &fs.PathError{Op: "watch", Path: dir, Err: errors.New("not a directory")}
	}

	w.mu.Lock()
	w.roots[dir] = struct{}{}
	w.mu.Unlock()

	return w.addTree(dir)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.fw.Add(p); err != nil {
				w.log.Debug("watch.add.fail", slog.String("dir", p), slog.String("err", err.Error()))
			}
			return nil
		}
		w.onEvent(Event{Path: p})
		return nil
	})
}

// Remove stops watching dir and its subdirectories.
func (w *Watcher) Remove(dir string) error {
	dir = filepath.Clean(dir)

	w.mu.Lock()
	delete(w.roots, dir)
	w.mu.Unlock()

	prefix := dir + string(filepath.Separator)
	for _, p := range w.fw.WatchList() {
		if p == dir || strings.HasPrefix(p, prefix) {
			_ = w.fw.Remove(p)
		}
	}
	return nil
}

// Roots lists the directories passed to Add and not yet removed.
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.roots))
	for r := range w.roots {
		out = append(out, r)
	}
	return out
}

// Run delivers events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Debug("watch.error", slog.String("err", err.Error()))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Create == fsnotify.Create:
		fi, err := os.Stat(ev.Name)
		if err == nil && fi.IsDir() {
			// New directories are watched too; their files are reported by
			// the walk.
			_ = w.addTree(ev.Name)
			return
		}
		w.onEvent(Event{Path: ev.Name})
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.onEvent(Event{Path: ev.Name, Removed: true})
	case ev.Op&fsnotify.Write == fsnotify.Write:
		w.onEvent(Event{Path: ev.Name})
	}
}

// Close releases the underlying watcher. Run returns afterwards.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
