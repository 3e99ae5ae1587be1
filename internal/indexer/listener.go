package indexer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/codeindex/pkg/types"
)

// IncrementalRunner is the part of an Orchestrator a ChangeListener drives.
type IncrementalRunner interface {
	HasIndex(ctx context.Context) bool
	RunIncremental(ctx context.Context, trigger Trigger, addPaths, removePaths []string) (Completion, error)
}

// ChangeListener buffers file events and hands them to an incremental job
// once no event has arrived for the quiet period. A flush that cannot run
// keeps the buffer and waits another quiet period.
type ChangeListener struct {
	ctx    context.Context
	runner IncrementalRunner
	quiet  time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	updates  map[string]struct{}
	removals map[string]struct{}
	timer    *time.Timer
	stopped  bool
}

// NewChangeListener creates a listener whose jobs run under ctx.
func NewChangeListener(ctx context.Context, runner IncrementalRunner, quiet time.Duration, logger *slog.Logger) *ChangeListener {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeListener{
		ctx:      ctx,
		runner:   runner,
		quiet:    quiet,
		logger:   logger,
		updates:  make(map[string]struct{}),
		removals: make(map[string]struct{}),
	}
}

// Observe records ev and restarts the quiet-period timer. The latest event
// for a path wins.
func (l *ChangeListener) Observe(ev Event) {
	p := types.NormalizePath(ev.Path)
	if p == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	switch ev.Kind {
	case Created, Modified:
		l.updates[p] = struct{}{}
		delete(l.removals, p)
	case Deleted:
		l.removals[p] = struct{}{}
		delete(l.updates, p)
	default:
		return
	}
	l.armLocked()
}

// Pending returns the number of buffered paths.
func (l *ChangeListener) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.updates) + len(l.removals)
}

// Stop cancels the timer. Buffered events are dropped.
func (l *ChangeListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	if l.timer != nil {
		l.timer.Stop()
	}
}

func (l *ChangeListener) armLocked() {
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.quiet, l.flush)
}

func (l *ChangeListener) flush() {
	if l.ctx.Err() != nil {
		return
	}

	l.mu.Lock()
	if l.stopped || len(l.updates)+len(l.removals) == 0 {
		l.mu.Unlock()
		return
	}
	updates, removals := keys(l.updates), keys(l.removals)
	l.updates = make(map[string]struct{})
	l.removals = make(map[string]struct{})
	l.mu.Unlock()

	if !l.runner.HasIndex(l.ctx) {
		l.logger.Debug("change flush deferred, no index yet", "pending", len(updates)+len(removals))
		l.restore(updates, removals)
		return
	}

	_, err := l.runner.RunIncremental(l.ctx, TriggerFileChange, updates, removals)
	if errors.Is(err, types.ErrSkipped) {
		l.logger.Debug("change flush deferred, job not admitted", "pending", len(updates)+len(removals))
		l.restore(updates, removals)
		return
	}
	if err != nil {
		l.logger.Warn("change-triggered indexing failed", "error", err)
	}
}

// restore puts a deferred batch back without overriding events that arrived
// while it was out, then re-arms the timer.
func (l *ChangeListener) restore(updates, removals []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || l.ctx.Err() != nil {
		return
	}
	for _, p := range updates {
		if _, newer := l.removals[p]; !newer {
			l.updates[p] = struct{}{}
		}
	}
	for _, p := range removals {
		if _, newer := l.updates[p]; !newer {
			l.removals[p] = struct{}{}
		}
	}
	l.armLocked()
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
