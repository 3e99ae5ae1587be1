package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/internal/walk"
)

type collector struct {
	mu     sync.Mutex
	events []indexer.Event
}

func (c *collector) sink(ev indexer.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) has(kind indexer.EventKind, path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range c.events {
		if ev.Kind == kind && ev.Path == path {
			return true
		}
	}
	return false
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newWatcher(t *testing.T) (*Watcher, *collector, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "dep"), 0o755))

	filter, err := walk.NewFilter(root)
	require.NoError(t, err)

	c := &collector{}
	w, err := New(filter, c.sink, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, c, filter.Root()
}

func slash(parts ...string) string {
	return filepath.ToSlash(filepath.Join(parts...))
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, func(indexer.Event) {}, nil)
	assert.Error(t, err)

	filter, err := walk.NewFilter(t.TempDir())
	require.NoError(t, err)
	_, err = New(filter, nil, nil)
	assert.Error(t, err)
}

func TestHandle_MapsOperations(t *testing.T) {
	w, c, root := newWatcher(t)
	file := filepath.Join(root, "src", "a.go")
	require.NoError(t, os.WriteFile(file, []byte("package a\n"), 0o644))

	w.handle(fsnotify.Event{Name: file, Op: fsnotify.Create})
	w.handle(fsnotify.Event{Name: file, Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: file, Op: fsnotify.Remove})
	w.handle(fsnotify.Event{Name: file, Op: fsnotify.Rename})
	w.handle(fsnotify.Event{Name: file, Op: fsnotify.Chmod})

	want := slash(root, "src", "a.go")
	assert.Equal(t, []indexer.Event{
		{Kind: indexer.Created, Path: want},
		{Kind: indexer.Modified, Path: want},
		{Kind: indexer.Deleted, Path: want},
		{Kind: indexer.Deleted, Path: want},
	}, c.events)
}

func TestHandle_DropsIgnoredAndOutside(t *testing.T) {
	w, c, root := newWatcher(t)

	w.handle(fsnotify.Event{Name: filepath.Join(root, "node_modules", "dep", "x.js"), Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: filepath.Join(root, ".env"), Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: filepath.Join(filepath.Dir(root), "elsewhere.go"), Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: root, Op: fsnotify.Remove})

	assert.Equal(t, 0, c.len())
}

func TestHandle_NewDirectoryAnnouncesFiles(t *testing.T) {
	w, c, root := newWatcher(t)
	dir := filepath.Join(root, "pkg", "inner")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package inner\n"), 0o644))

	w.handle(fsnotify.Event{Name: filepath.Join(root, "pkg"), Op: fsnotify.Create})

	assert.True(t, c.has(indexer.Created, slash(root, "pkg", "inner", "b.go")))
	assert.Contains(t, w.fsw.WatchList(), filepath.Join(root, "pkg", "inner"))
}

func TestNew_SkipsIgnoredDirectories(t *testing.T) {
	w, _, root := newWatcher(t)
	list := w.fsw.WatchList()
	assert.Contains(t, list, root)
	assert.Contains(t, list, filepath.Join(root, "src"))
	assert.NotContains(t, list, filepath.Join(root, "node_modules"))
}

func TestRun_DeliversFileEvents(t *testing.T) {
	w, c, root := newWatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	file := filepath.Join(root, "src", "live.go")
	require.NoError(t, os.WriteFile(file, []byte("package src\n"), 0o644))
	require.Eventually(t, func() bool { return c.has(indexer.Created, slash(file)) },
		5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(file))
	require.Eventually(t, func() bool { return c.has(indexer.Deleted, slash(file)) },
		5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestClose_Idempotent(t *testing.T) {
	w, _, _ := newWatcher(t)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Run(context.Background()))
}
