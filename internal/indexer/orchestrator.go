package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/codeindex/internal/chunker"
	"github.com/dshills/codeindex/internal/storage"
	"github.com/dshills/codeindex/internal/walk"
	"github.com/dshills/codeindex/pkg/types"
)

const (
	DefaultInitialDelay        = 10 * time.Second
	DefaultInterval            = 15 * time.Second
	DefaultQuietPeriod         = 10 * time.Second
	DefaultProgressGrace       = 100 * time.Millisecond
	DefaultMaxIncrementalFiles = 100
	DefaultWorkers             = 4
	DefaultRetryFailedAfter    = 5 * time.Minute
)

// ErrEmbeddingMismatch is returned for a file whose embedding count does not
// match its chunk count.
var ErrEmbeddingMismatch = errors.New("embedding count does not match chunk count")

// Store is the subset of the index store used by the orchestrator
type Store interface {
	BulkReplace(ctx context.Context, words []types.Word) error
	IncrementalUpdate(ctx context.Context, addWords []types.Word, removePaths []string) error
	Exists(ctx context.Context, path string) bool
	NonExistentPaths(ctx context.Context) ([]string, error)
	HasAnyIndex(ctx context.Context) bool
	FileRecord(ctx context.Context, path string) (*types.FileState, error)
	Stats(ctx context.Context) (*storage.Stats, error)
}

// Embedder turns chunks into vectors. A failed embedding yields fewer
// vectors than chunks.
type Embedder interface {
	EmbedBatch(ctx context.Context, chunks []types.Chunk) [][]float32
}

// FileLister enumerates and checks the eligible files of a project
type FileLister interface {
	List(ctx context.Context) ([]walk.FileInfo, error)
	Check(abs string) (walk.FileInfo, error)
}

// SymbolExtractor extracts declarations from a file's content
type SymbolExtractor interface {
	Parse(path string, content []byte) *types.ParseResult
}

// Deps holds the collaborators of an Orchestrator
type Deps struct {
	Store     Store
	Embedder  Embedder
	Chunker   *chunker.Chunker
	Lister    FileLister
	Parser    SymbolExtractor // optional
	Notifier  Notifier        // optional
	Admission *Admission      // shared by all projects; a private one is created when nil
}

// Options tunes an Orchestrator. Zero values take the defaults.
type Options struct {
	Project             string
	InitialDelay        time.Duration
	Interval            time.Duration
	ProgressGrace       time.Duration
	MaxIncrementalFiles int
	Workers             int
	Logger              *slog.Logger

	// RetryFailedAfter is how long Reconcile leaves an unchanged file that
	// failed to index before trying it again.
	RetryFailedAfter time.Duration
}

// State is Idle or Running
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Status is a snapshot of a project's indexing state
type Status struct {
	Project   string
	State     State
	Job       JobKind
	JobID     string
	Trigger   Trigger
	Progress  float64
	Indexed   int // files embedded so far by the running job
	Documents int
	Files     int
	LastJob   *Completion
}

// Orchestrator schedules and runs the indexing jobs of one project.
type Orchestrator struct {
	store     Store
	embedder  Embedder
	chunker   *chunker.Chunker
	lister    FileLister
	parser    SymbolExtractor
	notifier  Notifier
	admission *Admission
	opts      Options
	logger    *slog.Logger

	lock     IndexLock
	progress progress
	indexed  atomic.Int64

	mu      sync.Mutex // guards the fields below
	cancel  context.CancelFunc
	job     JobKind
	jobID   string
	trigger Trigger
	lastJob *Completion

	failMu sync.Mutex
	failed map[string]failure

	wg sync.WaitGroup
}

// failure remembers the on-disk state of a file that could not be indexed
type failure struct {
	size    int64
	modTime int64
	at      time.Time
}

// New creates an orchestrator. Store, Embedder, Chunker and Lister are required.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("indexer: store is required")
	case deps.Embedder == nil:
		return nil, errors.New("indexer: embedder is required")
	case deps.Chunker == nil:
		return nil, errors.New("indexer: chunker is required")
	case deps.Lister == nil:
		return nil, errors.New("indexer: file lister is required")
	}

	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ProgressGrace <= 0 {
		opts.ProgressGrace = DefaultProgressGrace
	}
	if opts.MaxIncrementalFiles <= 0 {
		opts.MaxIncrementalFiles = DefaultMaxIncrementalFiles
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.RetryFailedAfter <= 0 {
		opts.RetryFailedAfter = DefaultRetryFailedAfter
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if deps.Admission == nil {
		deps.Admission = NewAdmission()
	}

	o := &Orchestrator{
		store:     deps.Store,
		embedder:  deps.Embedder,
		chunker:   deps.Chunker,
		lister:    deps.Lister,
		parser:    deps.Parser,
		notifier:  deps.Notifier,
		admission: deps.Admission,
		opts:      opts,
		logger:    opts.Logger.With("project", opts.Project),
		failed:    make(map[string]failure),
	}
	o.progress.grace = opts.ProgressGrace
	return o, nil
}

// HasIndex reports whether the store holds any document
func (o *Orchestrator) HasIndex(ctx context.Context) bool {
	return o.store.HasAnyIndex(ctx)
}

// RunFull re-indexes the whole project and replaces the stored index with
// the result. It returns types.ErrSkipped when the project is already
// running or admission rejects the job. A cancelled job still stores the
// documents embedded before the cancellation.
func (o *Orchestrator) RunFull(ctx context.Context, trigger Trigger) (c Completion, err error) {
	release, ok := o.admit(JobFull, trigger)
	if !ok {
		return Completion{}, types.ErrSkipped
	}
	defer release()

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c, gen := o.begin(JobFull, trigger, cancel)
	defer func() { o.end(&c, gen, true) }()

	files, listErr := o.lister.List(jobCtx)
	if listErr != nil {
		c.Err = fmt.Errorf("list files: %w", listErr)
		c.Cancelled = jobCtx.Err() != nil
		return c, c.Err
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	byPath := make(map[string]walk.FileInfo, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}

	words, indexed := o.embedFiles(jobCtx, gen, paths, func(p string) (walk.FileInfo, error) {
		return byPath[p], nil
	})
	c.Files = indexed
	c.Documents = countDocuments(words)
	c.Cancelled = jobCtx.Err() != nil

	// The commit must survive the cancellation that stopped the loop.
	if storeErr := o.store.BulkReplace(context.WithoutCancel(ctx), words); storeErr != nil {
		c.Err = fmt.Errorf("replace index: %w", storeErr)
		return c, c.Err
	}
	return c, nil
}

// RunIncremental embeds addPaths and removes removePaths from the index in
// one store update. Paths re-embedded by the job are removed first so their
// old ranges disappear. Added paths that no longer exist or are no longer
// eligible are removed as well. The job ignores Cancel. An automatic job
// that leaves the store untouched is not published to the notifier.
func (o *Orchestrator) RunIncremental(ctx context.Context, trigger Trigger, addPaths, removePaths []string) (c Completion, err error) {
	release, ok := o.admit(JobIncremental, trigger)
	if !ok {
		return Completion{}, types.ErrSkipped
	}
	defer release()

	c, gen := o.begin(JobIncremental, trigger, nil)
	// Manual requests are always answered.
	publish := trigger == TriggerManual
	defer func() { o.end(&c, gen, publish) }()

	removals := make(map[string]struct{}, len(removePaths))
	for _, p := range removePaths {
		removals[types.NormalizePath(p)] = struct{}{}
	}

	var gone sync.Map
	check := func(p string) (walk.FileInfo, error) {
		fi, err := o.lister.Check(p)
		if err != nil && (errors.Is(err, walk.ErrNotEligible) || errors.Is(err, fs.ErrNotExist)) {
			gone.Store(p, struct{}{})
		}
		return fi, err
	}

	adds := dedupe(addPaths)
	words, indexed := o.embedFiles(ctx, gen, adds, check)
	gone.Range(func(k, _ any) bool {
		removals[k.(string)] = struct{}{}
		return true
	})
	for _, w := range words {
		removals[w.Meta.Path] = struct{}{}
	}

	c.Files = indexed
	c.Documents = countDocuments(words)
	c.Removed = len(removals)
	if len(words) == 0 && len(removals) == 0 {
		return c, nil
	}
	publish = true

	remove := make([]string, 0, len(removals))
	for p := range removals {
		remove = append(remove, p)
	}
	if storeErr := o.store.IncrementalUpdate(context.WithoutCancel(ctx), words, remove); storeErr != nil {
		c.Err = fmt.Errorf("update index: %w", storeErr)
		return c, c.Err
	}
	return c, nil
}

// Cancel stops a running full job between files. It reports whether a job
// was signalled.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job != JobFull || o.cancel == nil {
		return false
	}
	o.cancel()
	return true
}

// Reconcile compares the project tree with the index and schedules the job
// that brings the index up to date. It is the periodic tick.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	if o.lock.Locked() {
		o.logger.Debug("reconcile skipped, project running")
		return nil
	}
	if !o.admission.Allows(LimitsFor(TriggerPeriodic)) {
		o.logger.Debug("reconcile skipped, admission limits reached")
		return nil
	}

	files, err := o.lister.List(ctx)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	if !o.store.HasAnyIndex(ctx) {
		if len(files) == 0 {
			return nil
		}
		_, err := o.RunFull(ctx, TriggerPeriodic)
		return ignoreSkipped(err)
	}

	var pending []string
	for _, f := range files {
		if len(pending) >= o.opts.MaxIncrementalFiles {
			break
		}
		if o.needsIndex(ctx, f) {
			pending = append(pending, f.Path)
		}
	}

	stale, err := o.store.NonExistentPaths(ctx)
	if err != nil {
		return fmt.Errorf("find removed files: %w", err)
	}
	if len(pending) == 0 && len(stale) == 0 {
		return nil
	}

	o.logger.Info("reconciling index", "changed", len(pending), "removed", len(stale))
	_, err = o.RunIncremental(ctx, TriggerPeriodic, pending, stale)
	return ignoreSkipped(err)
}

// Start runs Reconcile after the initial delay and then on every interval
// until ctx is done. It returns immediately; Wait blocks until the loop exits.
func (o *Orchestrator) Start(ctx context.Context) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.loop(ctx)
	}()
}

// Wait blocks until the loop started by Start has exited.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) loop(ctx context.Context) {
	timer := time.NewTimer(o.opts.InitialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	o.tick(ctx)

	ticker := time.NewTicker(o.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.tick(ctx)
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context) {
	if err := o.Reconcile(ctx); err != nil && ctx.Err() == nil {
		o.logger.Warn("periodic reconcile failed", "error", err)
	}
}

// Status returns a snapshot of the project state.
func (o *Orchestrator) Status(ctx context.Context) Status {
	st := Status{
		Project:  o.opts.Project,
		Progress: o.progress.get(),
	}

	o.mu.Lock()
	if st.State = o.lock.State(); st.State == StateRunning {
		st.Job = o.job
		st.JobID = o.jobID
		st.Trigger = o.trigger
		st.Indexed = int(o.indexed.Load())
	}
	if o.lastJob != nil {
		last := *o.lastJob
		st.LastJob = &last
	}
	o.mu.Unlock()

	if stats, err := o.store.Stats(ctx); err == nil {
		st.Documents = stats.Documents
		st.Files = stats.Files
	}
	return st
}

// admit takes the project lock and an admission slot.
func (o *Orchestrator) admit(kind JobKind, trigger Trigger) (func(), bool) {
	if !o.lock.TryAcquire() {
		o.logger.Debug("job skipped, project running", "kind", kind, "trigger", trigger)
		return nil, false
	}
	release, ok := o.admission.TryAdmit(kind, LimitsFor(trigger))
	if !ok {
		o.lock.Release()
		o.logger.Debug("job skipped, admission limits reached", "kind", kind, "trigger", trigger)
		return nil, false
	}
	return func() {
		release()
		o.lock.Release()
	}, true
}

func (o *Orchestrator) begin(kind JobKind, trigger Trigger, cancel context.CancelFunc) (Completion, uint64) {
	c := Completion{
		JobID:   uuid.NewString(),
		Project: o.opts.Project,
		Kind:    kind,
		Trigger: trigger,
		Started: time.Now(),
	}

	o.mu.Lock()
	o.job = kind
	o.jobID = c.JobID
	o.trigger = trigger
	o.cancel = cancel
	o.mu.Unlock()

	o.indexed.Store(0)
	o.logger.Info("indexing started", "job", c.JobID, "kind", kind, "trigger", trigger)
	return c, o.progress.start()
}

// end records the completion and, when publish is set, hands it to the
// notifier. It runs exactly once per admitted job.
func (o *Orchestrator) end(c *Completion, gen uint64, publish bool) {
	c.Duration = time.Since(c.Started)
	o.progress.finish(gen)

	o.mu.Lock()
	o.job = ""
	o.jobID = ""
	o.trigger = ""
	o.cancel = nil
	last := *c
	o.lastJob = &last
	o.mu.Unlock()

	attrs := []any{"job", c.JobID, "kind", c.Kind, "files", c.Files,
		"documents", c.Documents, "removed", c.Removed, "duration", c.Duration}
	switch {
	case c.Err != nil:
		o.logger.Error("indexing failed", append(attrs, "error", c.Err)...)
	case c.Cancelled:
		o.logger.Info("indexing cancelled", attrs...)
	default:
		o.logger.Info("indexing completed", attrs...)
	}

	if o.notifier != nil && (publish || c.Err != nil) {
		o.notifier.IndexingCompleted(*c)
	}
}

// embedFiles reads, chunks, embeds and parses paths with a bounded worker
// group. Files that fail are logged and skipped. Cancellation is checked
// before each file; files already started run to completion. The returned
// words keep the order of paths.
func (o *Orchestrator) embedFiles(ctx context.Context, gen uint64, paths []string,
	stat func(string) (walk.FileInfo, error)) ([]types.Word, int) {

	results := make([][]types.Word, len(paths))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(o.opts.Workers)
	for i, p := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				n := done.Add(1)
				o.progress.advance(gen, float64(n)/float64(len(paths)))
			}()
			if ctx.Err() != nil {
				return nil
			}

			fi, err := stat(p)
			if err != nil {
				o.logger.Debug("file skipped", "path", p, "reason", err)
				return nil
			}
			words, err := o.embedFile(ctx, fi)
			if err != nil {
				o.logger.Warn("file not indexed", "path", p, "error", err)
				o.markFailed(fi)
				return nil
			}
			o.clearFailed(fi.Path)
			if len(words) > 0 {
				results[i] = words
				o.indexed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	var words []types.Word
	indexed := 0
	for _, ws := range results {
		if len(ws) > 0 {
			words = append(words, ws...)
			indexed++
		}
	}
	return words, indexed
}

// embedFile turns one file into words. The first word carries the file
// state and symbols. A file without chunks yields a single file word.
func (o *Orchestrator) embedFile(ctx context.Context, fi walk.FileInfo) ([]types.Word, error) {
	data, err := os.ReadFile(filepath.FromSlash(fi.Path))
	if err != nil {
		return nil, err
	}

	chunks := o.chunker.ChunkFile(string(data))
	sum := sha256.Sum256(data)
	state := &types.FileState{
		Path:    types.NormalizePath(fi.Path),
		Size:    fi.Size,
		ModTime: fi.ModTime.UnixNano(),
		Hash:    hex.EncodeToString(sum[:]),
		Chunks:  len(chunks),
	}
	if len(chunks) == 0 {
		return []types.Word{types.FileWord(state)}, nil
	}

	vectors := o.embedder.EmbedBatch(ctx, chunks)
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d chunks, %d vectors", ErrEmbeddingMismatch, len(chunks), len(vectors))
	}

	words := make([]types.Word, len(chunks))
	for i, ch := range chunks {
		words[i] = types.NewWord(fi.Path, ch, vectors[i])
	}

	if o.parser != nil {
		if res := o.parser.Parse(fi.Path, data); res != nil {
			state.Symbols = res.Symbols
			for _, pe := range res.Errors {
				o.logger.Debug("parse error", "path", fi.Path, "error", pe.Error())
			}
		}
	}
	words[0].File = state
	return words, nil
}

// needsIndex reports whether f was never recorded or changed since it was.
// Files that recently failed to index are left alone until they change or
// RetryFailedAfter has passed.
func (o *Orchestrator) needsIndex(ctx context.Context, f walk.FileInfo) bool {
	if o.backingOff(f) {
		return false
	}
	rec, err := o.store.FileRecord(ctx, f.Path)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return !o.store.Exists(ctx, f.Path)
	case err != nil:
		return false
	}
	return rec.Size != f.Size || rec.ModTime != f.ModTime.UnixNano()
}

func (o *Orchestrator) markFailed(fi walk.FileInfo) {
	o.failMu.Lock()
	defer o.failMu.Unlock()
	o.failed[types.NormalizePath(fi.Path)] = failure{size: fi.Size, modTime: fi.ModTime.UnixNano(), at: time.Now()}
}

func (o *Orchestrator) clearFailed(path string) {
	o.failMu.Lock()
	defer o.failMu.Unlock()
	delete(o.failed, types.NormalizePath(path))
}

func (o *Orchestrator) backingOff(f walk.FileInfo) bool {
	o.failMu.Lock()
	defer o.failMu.Unlock()
	fail, ok := o.failed[types.NormalizePath(f.Path)]
	if !ok {
		return false
	}
	if fail.size != f.Size || fail.modTime != f.ModTime.UnixNano() || time.Since(fail.at) >= o.opts.RetryFailedAfter {
		delete(o.failed, types.NormalizePath(f.Path))
		return false
	}
	return true
}

// countDocuments counts the words that become stored documents
func countDocuments(words []types.Word) int {
	n := 0
	for _, w := range words {
		if w.HasRange() {
			n++
		}
	}
	return n
}

func ignoreSkipped(err error) error {
	if errors.Is(err, types.ErrSkipped) {
		return nil
	}
	return err
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = types.NormalizePath(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
