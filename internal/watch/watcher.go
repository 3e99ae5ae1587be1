package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/internal/walk"
)

// Sink receives the events of a Watcher
type Sink func(indexer.Event)

// Watcher turns fsnotify events under a project root into indexer events.
// Every non-ignored directory is watched; directories created later are
// added as they appear.
type Watcher struct {
	filter *walk.Filter
	sink   Sink
	logger *slog.Logger

	fsw       *fsnotify.Watcher
	closeOnce sync.Once
	closed    chan struct{}
}

// New watches every eligible directory under the filter's root.
func New(filter *walk.Filter, sink Sink, logger *slog.Logger) (*Watcher, error) {
	if filter == nil {
		return nil, errors.New("watch: filter is required")
	}
	if sink == nil {
		return nil, errors.New("watch: sink is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		filter: filter,
		sink:   sink,
		logger: logger,
		fsw:    fsw,
		closed: make(chan struct{}),
	}
	if err := w.addTree(filter.Root(), false); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers events until ctx is done or the watcher is closed.
// Watch errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.closed:
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watch error", "error", err)
		}
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, ok := w.filter.Rel(ev.Name)
	if !ok {
		return
	}
	path := filepath.ToSlash(filepath.Clean(ev.Name))

	switch {
	case ev.Has(fsnotify.Create):
		if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
			if w.filter.Ignored(rel, true) {
				return
			}
			if err := w.addTree(ev.Name, true); err != nil {
				w.logger.Warn("watch new directory", "path", path, "error", err)
			}
			return
		}
		if !w.filter.Ignored(rel, false) {
			w.sink(indexer.Event{Kind: indexer.Created, Path: path})
		}
	case ev.Has(fsnotify.Write):
		if !w.filter.Ignored(rel, false) {
			w.sink(indexer.Event{Kind: indexer.Modified, Path: path})
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// A removed directory arrives once under its own path; the store
		// drops every path below it.
		if !w.filter.Ignored(rel, false) {
			w.sink(indexer.Event{Kind: indexer.Deleted, Path: path})
		}
	}
}

// addTree watches dir and its eligible subdirectories. When announce is set
// the files already present are reported as Created, which covers
// directories moved into the tree.
func (w *Watcher) addTree(dir string, announce bool) error {
	root := filepath.Clean(dir)
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}

		rel, inside := w.filter.Rel(p)
		if d.IsDir() {
			if inside && w.filter.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return w.fsw.Add(p)
		}
		if announce && inside && d.Type().IsRegular() && !w.filter.Ignored(rel, false) {
			w.sink(indexer.Event{Kind: indexer.Created, Path: filepath.ToSlash(p)})
		}
		return nil
	})
}
