package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/dshills/codeindex/internal/chunker"
	"github.com/dshills/codeindex/internal/config"
	"github.com/dshills/codeindex/internal/embedder"
	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/internal/parser"
	"github.com/dshills/codeindex/internal/searcher"
	"github.com/dshills/codeindex/internal/storage"
	"github.com/dshills/codeindex/internal/symbols"
	"github.com/dshills/codeindex/internal/walk"
)

const diskCacheFile = "embeddings.bolt"

// app holds the components of one project, wired the same way for every
// subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	root   string

	store    *storage.SQLiteStore
	client   *embedder.Client
	lister   *walk.Lister
	searcher *searcher.Searcher
	orch     *indexer.Orchestrator
	notify   *relay
}

// openApp opens the project's store and builds the pipeline around it.
func openApp(cfg *config.Config, logger *slog.Logger, projectRoot string) (*app, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}
	logger = logger.With("project", filepath.Base(root))

	store, err := storage.Open(storage.Options{
		Root:    cfg.DataDir,
		Project: storage.ProjectKey(root),
		Logger:  logger,
	})
	if err != nil {
		if errors.Is(err, storage.ErrStoreLocked) {
			return nil, fmt.Errorf("%w\nIs a codeindex server already running for this project?", err)
		}
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, root: root, store: store, notify: &relay{}}
	if err := a.build(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build() error {
	provider, err := embedder.New(a.cfg.EmbedderConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var disk *embedder.DiskCache
	if a.cfg.Embedding.DiskCache {
		disk, err = embedder.OpenDiskCache(filepath.Join(a.store.Dir(), diskCacheFile))
		if err != nil {
			a.logger.Warn("embedding disk cache unavailable", "error", err)
			disk = nil
		}
	}
	a.client = embedder.NewClient(provider, embedder.ClientConfig{
		Timeout:   a.cfg.Embedding.Timeout,
		BatchSize: a.cfg.Embedding.BatchSize,
		CacheSize: a.cfg.Embedding.CacheSize,
		Disk:      disk,
		Logger:    a.logger,
	})

	a.lister, err = walk.NewLister(a.root, a.logger)
	if err != nil {
		return err
	}

	a.searcher = searcher.NewSearcher(a.store, a.client, symbols.NewResolver(a.store, a.logger), searcher.Options{
		TextWeight:   a.cfg.Search.TextWeight,
		VectorWeight: a.cfg.Search.VectorWeight,
		DefaultLimit: a.cfg.Search.DefaultLimit,
		MaxLimit:     a.cfg.Search.MaxLimit,
		Logger:       a.logger,
	})
	// Results cached before a job finished may point at replaced chunks.
	a.notify.add(indexer.NotifierFunc(func(indexer.Completion) { a.searcher.InvalidateCache() }))

	a.orch, err = indexer.New(indexer.Deps{
		Store:     a.store,
		Embedder:  a.client,
		Chunker:   chunker.New(a.cfg.Chunking.MinLines, a.cfg.Chunking.MaxLines),
		Lister:    a.lister,
		Parser:    parser.New(),
		Notifier:  a.notify,
		Admission: indexer.NewAdmission(),
	}, indexer.Options{
		Project:             filepath.Base(a.root),
		InitialDelay:        a.cfg.Indexing.InitialDelay,
		Interval:            a.cfg.Indexing.Interval,
		ProgressGrace:       a.cfg.Indexing.ProgressGrace,
		MaxIncrementalFiles: a.cfg.Indexing.MaxIncrementalFiles,
		Logger:              a.logger,
	})
	return err
}

// Close releases the embedder and the store.
func (a *app) Close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// ensureIndexed runs a full job when the store is empty.
func (a *app) ensureIndexed(ctx context.Context) error {
	if a.store.HasAnyIndex(ctx) {
		return nil
	}
	a.logger.Info("no index yet, building one")
	c, err := a.orch.RunFull(ctx, indexer.TriggerManual)
	if err != nil {
		return err
	}
	return c.Err
}

// relay forwards completions to notifiers registered after the
// orchestrator was built.
type relay struct {
	mu      sync.RWMutex
	targets indexer.Notifiers
}

func (r *relay) add(n indexer.Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, n)
}

func (r *relay) IndexingCompleted(c indexer.Completion) {
	r.mu.RLock()
	targets := r.targets
	r.mu.RUnlock()
	targets.IndexingCompleted(c)
}
