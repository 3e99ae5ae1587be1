// Package indexer keeps a project's index in step with its files.
//
// An Orchestrator runs two kinds of jobs against a Store:
//
//   - full jobs list every eligible file, embed it and replace the whole
//     index in one BulkReplace
//   - incremental jobs embed a set of changed paths and remove stale ones
//     in one IncrementalUpdate
//
// Jobs are triggered periodically (Start and Reconcile), by file changes
// (ChangeListener) or manually. A project runs at most one job at a time;
// across projects a shared Admission caps how many full and incremental
// jobs may run, with limits that depend on the trigger. A job that cannot
// start returns types.ErrSkipped and callers treat it as a no-op.
//
// # Usage
//
//	orch, err := indexer.New(indexer.Deps{
//	    Store:    store,
//	    Embedder: client,
//	    Chunker:  chunker.New(35, 65),
//	    Lister:   lister,
//	    Parser:   parser.New(),
//	    Notifier: notifier,
//	}, indexer.Options{Project: "myrepo"})
//	orch.Start(ctx)
//
//	listener := indexer.NewChangeListener(ctx, orch, indexer.DefaultQuietPeriod, logger)
//	watcher.Run(ctx) // delivers to listener.Observe
//
// Full jobs are cancellable between files with Cancel; whatever was embedded
// before the cancellation is still stored. Every admitted job reports one
// Completion to the Notifier.
package indexer
