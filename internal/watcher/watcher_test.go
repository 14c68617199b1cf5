package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpString(t *testing.T) {
	testCases := []struct {
		op       Op
		expected string
	}{
		{OpCreate, "create"},
		{OpWrite, "write"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Op(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.op.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.fsw)
	assert.NotNil(t, watcher.logger)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)

	watcher.AddFilter(YAMLFilter)
	watcher.AddFilter(NoTempFilter)
	assert.Len(t, watcher.filters, 2)
}

func TestFileWatcherAddPath(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	fixture := filepath.Join(dir, "site.yml")
	require.NoError(t, os.WriteFile(fixture, []byte("site: {}\n"), 0o644))

	assert.NoError(t, watcher.AddPath(dir))
	// A file is watched through its directory.
	assert.NoError(t, watcher.AddPath(fixture))
	assert.Equal(t, []string{dir}, watcher.WatchList())

	assert.Error(t, watcher.AddPath(filepath.Join(dir, "missing")))
	assert.Error(t, watcher.AddPath(""))
}

func TestFileWatcherValidation(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	err = watcher.AddPath("../../../etc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "traversal")

	assert.Error(t, watcher.AddRecursive("themes/.."))
}

func TestAddRecursive(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images", "icons"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))

	require.NoError(t, watcher.AddRecursive(root))
	assert.Equal(t, []string{
		root,
		filepath.Join(root, "css"),
		filepath.Join(root, "images"),
		filepath.Join(root, "images", "icons"),
	}, watcher.WatchList())
}

func TestFileWatcherStartStop(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, watcher.AddPath(dir))
	watcher.AddFilter(YAMLFilter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []ChangeEvent, 4)
	watcher.AddHandler(func(events []ChangeEvent) error {
		received <- events
		return nil
	})
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.yml"), []byte("site: {}\n"), 0o644))

	select {
	case events := <-received:
		require.NotEmpty(t, events)
		for _, e := range events {
			assert.Equal(t, filepath.Join(dir, "site.yml"), e.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	assert.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop())
}

func TestBatchDrain(t *testing.T) {
	pending := make(batch)
	pending.add(ChangeEvent{Path: "theme/minima.css", Op: OpCreate})
	pending.add(ChangeEvent{Path: "site.yml", Op: OpWrite})
	pending.add(ChangeEvent{Path: "theme/minima.css", Op: OpWrite})

	events := pending.drain()
	require.Len(t, events, 2)
	assert.Equal(t, "site.yml", events[0].Path)
	assert.Equal(t, "theme/minima.css", events[1].Path)
	assert.Equal(t, OpWrite, events[1].Op)

	assert.Empty(t, pending)
	assert.Empty(t, pending.drain())
}

func TestAccept(t *testing.T) {
	watcher, err := NewFileWatcher(time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()
	watcher.AddFilter(YAMLFilter)

	testCases := []struct {
		name string
		ev   fsnotify.Event
		keep bool
		op   Op
	}{
		{"create", fsnotify.Event{Name: "site.yml", Op: fsnotify.Create}, true, OpCreate},
		{"write", fsnotify.Event{Name: "site.yml", Op: fsnotify.Write}, true, OpWrite},
		{"write and chmod", fsnotify.Event{Name: "site.yml", Op: fsnotify.Write | fsnotify.Chmod}, true, OpWrite},
		{"remove", fsnotify.Event{Name: "site.yml", Op: fsnotify.Remove}, true, OpRemove},
		{"rename", fsnotify.Event{Name: "site.yml", Op: fsnotify.Rename}, true, OpRename},
		{"chmod only", fsnotify.Event{Name: "site.yml", Op: fsnotify.Chmod}, false, 0},
		{"filtered", fsnotify.Event{Name: "minima.css", Op: fsnotify.Write}, false, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			change, keep := watcher.accept(tc.ev)
			assert.Equal(t, tc.keep, keep)
			if keep {
				assert.Equal(t, tc.op, change.Op)
				assert.Equal(t, tc.ev.Name, change.Path)
			}
		})
	}
}

func TestDispatchContinuesAfterHandlerError(t *testing.T) {
	watcher, err := NewFileWatcher(time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	var got [][]ChangeEvent
	watcher.AddHandler(func([]ChangeEvent) error { return assert.AnError })
	watcher.AddHandler(func(events []ChangeEvent) error {
		got = append(got, events)
		return nil
	})

	ctx := context.Background()
	watcher.dispatch(ctx, []ChangeEvent{{Path: "a.yml"}})
	watcher.dispatch(ctx, nil)
	watcher.dispatch(ctx, []ChangeEvent{{Path: "b.yml"}})

	require.Len(t, got, 2)
	assert.Equal(t, "a.yml", got[0][0].Path)
	assert.Equal(t, "b.yml", got[1][0].Path)
}

func TestFilters(t *testing.T) {
	testCases := []struct {
		path   string
		yaml   bool
		asset  bool
		noTemp bool
		noGit  bool
	}{
		{"site.yml", true, false, true, true},
		{"config/site.yaml", true, false, true, true},
		{"theme/css/minima.css", false, true, true, true},
		{"theme/js/minima.js", false, true, true, true},
		{"theme/logo.png", false, true, true, true},
		{"theme/images/icon.svg", false, true, true, true},
		{"theme/minima.css~", false, false, false, true},
		{"theme/.#minima.css", false, true, false, true},
		{"site.yml.swp", false, false, false, true},
		{"site.bak", false, false, false, true},
		{".git/HEAD", false, false, true, false},
		{"theme/.git/config.yml", true, false, true, false},
		{"README.md", false, false, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.yaml, YAMLFilter(tc.path), "YAMLFilter")
			assert.Equal(t, tc.asset, AssetFilter(tc.path), "AssetFilter")
			assert.Equal(t, tc.noTemp, NoTempFilter(tc.path), "NoTempFilter")
			assert.Equal(t, tc.noGit, NoGitFilter(tc.path), "NoGitFilter")
		})
	}
}

func TestAnyFilter(t *testing.T) {
	filter := AnyFilter(YAMLFilter, AssetFilter)
	assert.True(t, filter("site.yml"))
	assert.True(t, filter("minima.css"))
	assert.False(t, filter("main.go"))
	assert.False(t, AnyFilter()("site.yml"))
}
