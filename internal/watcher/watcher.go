// Package watcher wraps fsnotify with intern's typed, debounced event
// vocabulary, modeled on the notice/event split of the original Rust
// notify crate that fsnotify itself does not distinguish.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rjcarver/intern/internal/ignore"
	"github.com/rjcarver/intern/internal/scanner"
)

// Kind enumerates the typed events intern reacts to.
type Kind int

const (
	Created Kind = iota
	Written
	Chmod
	NoticeRemove
	NoticeWrite
	Removed
	Renamed
	Rescan
	Error
)

// Event is one typed notification from the watcher.
type Event struct {
	Kind    Kind
	Path    string
	OldPath string
	Err     error
}

var skipDirNames = map[string]bool{".git": true, ".hg": true}

func isFilteredPath(path string) bool {
	if strings.Contains(path, string(filepath.Separator)+".git"+string(filepath.Separator)) ||
		strings.Contains(path, string(filepath.Separator)+".hg"+string(filepath.Separator)) {
		return true
	}
	return strings.HasSuffix(path, ".svg")
}

// Watcher wraps an fsnotify.Watcher, debouncing raw events into the
// typed Event vocabulary consumed by the server loop.
type Watcher struct {
	fsw    *fsnotify.Watcher
	period time.Duration

	out chan Event

	mu      sync.Mutex
	pending map[string]Kind
	timer   *time.Timer
}

// New creates a Watcher whose debounce window is period.
func New(period time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:     fsw,
		period:  period,
		out:     make(chan Event, 64),
		pending: make(map[string]Kind),
	}
	go w.pump()
	return w, nil
}

// Events returns the channel of typed events. The server loop polls
// this with a timeout rather than blocking indefinitely.
func (w *Watcher) Events() <-chan Event {
	return w.out
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Subscribe watches root for changes. When root carries no
// .gitignore/.hgignore, the whole tree is watched recursively (bounded
// by the recurse flag). Otherwise the folder is watched non-recursively
// and a direct subscription is added per file that would be scanned,
// avoiding recursive watches over large ignored subtrees.
func (w *Watcher) Subscribe(root string, recurse bool, includes ignore.IncludeList) error {
	rootMatcher := ignore.NewMatcher()
	_ = rootMatcher.LoadFile(filepath.Join(root, ".gitignore"))
	_ = rootMatcher.LoadFile(filepath.Join(root, ".hgignore"))

	if !rootMatcher.HasPatterns() {
		return w.addRecursive(root, recurse)
	}

	if err := w.fsw.Add(root); err != nil {
		return err
	}
	return scanner.Walk(root, recurse, includes, func(path string, _ time.Time) {
		_ = w.fsw.Add(path)
	})
}

func (w *Watcher) addRecursive(root string, recurse bool) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if skipDirNames[d.Name()] {
			return filepath.SkipDir
		}
		if path != root && !recurse {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) pump() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				close(w.out)
				return
			}
			w.handleRaw(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				continue
			}
			w.out <- Event{Kind: Error, Err: err}
		}
	}
}

func (w *Watcher) handleRaw(ev fsnotify.Event) {
	if isFilteredPath(ev.Name) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		w.out <- Event{Kind: Created, Path: ev.Name}
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(ev.Name)
		}
	case ev.Op&fsnotify.Write != 0:
		w.out <- Event{Kind: NoticeWrite, Path: ev.Name}
		w.schedule(ev.Name, Written)
	case ev.Op&fsnotify.Chmod != 0:
		w.out <- Event{Kind: Chmod, Path: ev.Name}
	case ev.Op&fsnotify.Remove != 0:
		w.out <- Event{Kind: NoticeRemove, Path: ev.Name}
		w.schedule(ev.Name, Removed)
	case ev.Op&fsnotify.Rename != 0:
		w.out <- Event{Kind: Renamed, Path: ev.Name}
	}
}

func (w *Watcher) schedule(path string, kind Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = kind
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.period, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]Kind)
	w.mu.Unlock()

	for path, kind := range pending {
		w.out <- Event{Kind: kind, Path: path}
	}
}
