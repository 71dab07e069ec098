// Package watch keeps session snapshots in step with files on disk.
//
// A Watcher opens every tracked file in a session.Manager and, as files
// change, turns the new content into a single edit against the old one so
// the manager can reuse the unchanged prefix of the previous tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/yaklabco/perlparse/internal/logging"
	"github.com/yaklabco/perlparse/pkg/fsutil"
	"github.com/yaklabco/perlparse/pkg/session"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// DefaultDebounce is how long the watcher waits for a burst of file
// events to settle before reparsing.
const DefaultDebounce = 100 * time.Millisecond

// Update reports the state of one file after an event.
type Update struct {
	Path     string
	Version  int
	Snapshot *syntax.Snapshot

	// Removed is set when the file disappeared and its document was closed.
	Removed bool

	// Err is set when the file could not be read.
	Err error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithFs sets the filesystem files are read from.
func WithFs(fs afero.Fs) Option {
	return func(w *Watcher) {
		if fs != nil {
			w.fs = fs
		}
	}
}

// WithDebounce sets the settle time for bursts of events.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithFilter decides whether a file created after startup is tracked.
func WithFilter(accept func(path string) bool) Option {
	return func(w *Watcher) {
		w.accept = accept
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher syncs files into a session manager.
type Watcher struct {
	manager  *session.Manager
	fs       afero.Fs
	debounce time.Duration
	accept   func(path string) bool
	logger   *log.Logger

	mu      sync.Mutex
	tracked map[string]string
}

// New creates a Watcher feeding manager.
func New(manager *session.Manager, opts ...Option) *Watcher {
	w := &Watcher{
		manager:  manager,
		fs:       afero.NewOsFs(),
		debounce: DefaultDebounce,
		logger:   logging.Default(),
		tracked:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Tracked returns the tracked paths in sorted order.
func (w *Watcher) Tracked() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.tracked))
	for path := range w.tracked {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Load opens every path and returns one update per path.
func (w *Watcher) Load(paths []string) []Update {
	updates := make([]Update, 0, len(paths))
	for _, path := range paths {
		updates = append(updates, w.Sync(path))
	}
	return updates
}

// Sync reads path and brings its document up to date, opening it if it is
// not tracked yet. Parse errors are reported through the snapshot.
func (w *Watcher) Sync(path string) Update {
	data, _, err := fsutil.ReadFile(w.fs, path)
	if err != nil {
		return Update{Path: path, Err: err}
	}
	content := string(data)

	w.mu.Lock()
	old, ok := w.tracked[path]
	w.tracked[path] = content
	w.mu.Unlock()

	var snap *syntax.Snapshot
	switch {
	case !ok:
		snap, _ = w.manager.Open(path, content)
	case old == content:
		snap, _ = w.manager.Snapshot(path)
	default:
		snap, err = w.manager.Change(path, Diff(old, content))
		if errors.Is(err, session.ErrUnknownDocument) || errors.Is(err, session.ErrInvalidEdit) {
			snap, _ = w.manager.Open(path, content)
		}
	}

	update := Update{Path: path, Snapshot: snap}
	if info, ok := w.manager.Info(path); ok {
		update.Version = info.Version
	}
	return update
}

// Remove stops tracking path and closes its document.
func (w *Watcher) Remove(path string) Update {
	w.mu.Lock()
	_, ok := w.tracked[path]
	delete(w.tracked, path)
	w.mu.Unlock()

	if ok {
		if err := w.manager.Close(path); err != nil {
			w.logger.Debug("close document", logging.FieldPath, path, logging.FieldError, err)
		}
	}
	return Update{Path: path, Removed: true}
}

// Diff returns one edit that turns old into updated: the span between
// their common prefix and common suffix.
func Diff(old, updated string) session.Edit {
	prefix := 0
	limit := min(len(old), len(updated))
	for prefix < limit && old[prefix] == updated[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < limit-prefix && old[len(old)-1-suffix] == updated[len(updated)-1-suffix] {
		suffix++
	}
	return session.Edit{
		Start: prefix,
		End:   len(old) - suffix,
		Text:  updated[prefix : len(updated)-suffix],
	}
}

// Run loads paths, sends their initial updates and then watches their
// directories until ctx is done, sending an update for every tracked file
// that changes. It closes updates before returning.
func (w *Watcher) Run(ctx context.Context, paths []string, updates chan<- Update) error {
	defer close(updates)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fsw.Close()

	dirs := make(map[string]fsnotify.Op)
	for _, path := range paths {
		dirs[filepath.Dir(path)] = 0
	}
	watched := sortedKeys(dirs)
	for _, dir := range watched {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	for _, update := range w.Load(paths) {
		if !send(ctx, updates, update) {
			return nil
		}
	}
	w.logger.Debug("watching", logging.FieldFiles, len(paths), logging.FieldPaths, watched)

	pending := make(map[string]fsnotify.Op)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.wants(event.Name) {
				continue
			}
			pending[event.Name] |= event.Op
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", logging.FieldError, err)

		case <-timer.C:
			for _, path := range sortedKeys(pending) {
				update := w.apply(path, pending[path])
				w.logger.Debug("file changed",
					logging.FieldPath, path,
					logging.FieldEvent, pending[path].String(),
					logging.FieldVersion, update.Version)
				if !send(ctx, updates, update) {
					return nil
				}
			}
			clear(pending)
		}
	}
}

func (w *Watcher) wants(path string) bool {
	w.mu.Lock()
	_, ok := w.tracked[path]
	w.mu.Unlock()
	return ok || (w.accept != nil && w.accept(path))
}

func (w *Watcher) apply(path string, op fsnotify.Op) Update {
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		if exists, _ := afero.Exists(w.fs, path); !exists {
			return w.Remove(path)
		}
	}
	return w.Sync(path)
}

func send(ctx context.Context, updates chan<- Update, update Update) bool {
	select {
	case updates <- update:
		return true
	case <-ctx.Done():
		return false
	}
}

func sortedKeys(m map[string]fsnotify.Op) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
