// Package watcher reports debounced file changes under the theme root and
// the fixture directory so the server can reload the site.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/minima/internal/logging"
)

// Op is the kind of change reported for a path.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeEvent is one debounced change.
type ChangeEvent struct {
	Op      Op
	Path    string
	ModTime time.Time
}

// FileFilter reports whether a path is of interest.
type FileFilter func(path string) bool

// ChangeHandler receives a batch of changes, one per path, ordered by path.
type ChangeHandler func(events []ChangeEvent) error

// batch collects the changes between two flushes; the latest change of a
// path wins.
type batch map[string]ChangeEvent

func (b batch) add(e ChangeEvent) {
	b[e.Path] = e
}

func (b batch) drain() []ChangeEvent {
	events := make([]ChangeEvent, 0, len(b))
	for _, e := range b {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	clear(b)
	return events
}

// FileWatcher watches directories and hands debounced change batches to its
// handlers.
type FileWatcher struct {
	fsw    *fsnotify.Watcher
	delay  time.Duration
	logger logging.Logger

	mu       sync.RWMutex
	filters  []FileFilter
	handlers []ChangeHandler

	stop     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// NewFileWatcher creates a watcher that waits for delay of quiet before
// reporting. A nil logger discards logs.
func NewFileWatcher(delay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &FileWatcher{
		fsw:    fsw,
		delay:  delay,
		logger: logger.WithComponent("watcher"),
		stop:   make(chan struct{}),
	}, nil
}

// AddFilter adds a filter; a change is reported only if every filter passes.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler.
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath watches a directory. A file is watched through its directory,
// since editors that save by renaming would otherwise drop the watch.
func (fw *FileWatcher) AddPath(path string) error {
	clean, err := validatePath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(clean)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		clean = filepath.Dir(clean)
	}
	return fw.fsw.Add(clean)
}

// AddRecursive watches root and every subdirectory, skipping hidden ones.
func (fw *FileWatcher) AddRecursive(root string) error {
	clean, err := validatePath(root)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}

	return filepath.WalkDir(clean, func(path string, d os.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case !d.IsDir():
			return nil
		case path != clean && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		}
		return fw.fsw.Add(path)
	})
}

// WatchList returns the watched directories, sorted.
func (fw *FileWatcher) WatchList() []string {
	list := fw.fsw.WatchList()
	sort.Strings(list)
	return list
}

func validatePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.Contains(filepath.ToSlash(path), "../") || strings.HasSuffix(path, "..") {
		return "", fmt.Errorf("path contains directory traversal: %s", path)
	}
	return filepath.Clean(path), nil
}

// Start runs the watcher in the background until ctx is done or Stop is
// called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.run(ctx)
	return nil
}

// Stop ends the watch loop and releases the fsnotify watcher. Later calls
// return the result of the first.
func (fw *FileWatcher) Stop() error {
	fw.stopOnce.Do(func() {
		close(fw.stop)
		fw.stopErr = fw.fsw.Close()
	})
	return fw.stopErr
}

func (fw *FileWatcher) run(ctx context.Context) {
	pending := make(batch)
	quiet := time.NewTimer(fw.delay)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stop:
			return
		case ev, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			if change, keep := fw.accept(ev); keep {
				pending.add(change)
				quiet.Reset(fw.delay)
			}
		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		case <-quiet.C:
			fw.dispatch(ctx, pending.drain())
		}
	}
}

// accept converts an fsnotify event into a change, dropping chmod-only
// events and paths a filter rejects.
func (fw *FileWatcher) accept(ev fsnotify.Event) (ChangeEvent, bool) {
	if ev.Op == fsnotify.Chmod {
		return ChangeEvent{}, false
	}

	fw.mu.RLock()
	filters := fw.filters
	fw.mu.RUnlock()
	for _, filter := range filters {
		if !filter(ev.Name) {
			return ChangeEvent{}, false
		}
	}

	change := ChangeEvent{Op: OpWrite, Path: ev.Name}
	switch {
	case ev.Has(fsnotify.Create):
		change.Op = OpCreate
	case ev.Has(fsnotify.Remove):
		change.Op = OpRemove
	case ev.Has(fsnotify.Rename):
		change.Op = OpRename
	}
	if info, err := os.Stat(ev.Name); err == nil {
		change.ModTime = info.ModTime()
	}
	return change, true
}

// dispatch hands events to every handler; a failing handler does not stop
// the others.
func (fw *FileWatcher) dispatch(ctx context.Context, events []ChangeEvent) {
	if len(events) == 0 {
		return
	}

	fw.mu.RLock()
	handlers := fw.handlers
	fw.mu.RUnlock()

	fw.logger.Debug(ctx, "Files changed", "count", len(events))
	for _, handler := range handlers {
		if err := handler(events); err != nil {
			fw.logger.Error(ctx, err, "File change handler failed")
		}
	}
}

// YAMLFilter passes fixture files.
func YAMLFilter(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yml" || ext == ".yaml"
}

// AssetFilter passes theme assets.
func AssetFilter(path string) bool {
	switch filepath.Ext(path) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico":
		return true
	}
	return false
}

// AnyFilter passes paths accepted by at least one of filters.
func AnyFilter(filters ...FileFilter) FileFilter {
	return func(path string) bool {
		for _, f := range filters {
			if f(path) {
				return true
			}
		}
		return false
	}
}

// NoTempFilter drops editor swap and backup files.
func NoTempFilter(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".#") || strings.HasSuffix(base, "~") {
		return false
	}
	switch filepath.Ext(base) {
	case ".swp", ".swx", ".tmp", ".bak":
		return false
	}
	return true
}

func NoGitFilter(path string) bool {
	path = filepath.ToSlash(path)
	return !strings.HasPrefix(path, ".git/") && !strings.Contains(path, "/.git/")
}
