package indexer

import "sync/atomic"

// IndexLock holds a project's Idle/Running state. Jobs never wait on it; a
// job that finds the project Running is skipped.
type IndexLock struct {
	running atomic.Bool
}

// TryAcquire moves the project from Idle to Running
func (l *IndexLock) TryAcquire() bool {
	return l.running.CompareAndSwap(false, true)
}

// Release returns the project to Idle. Only the job that acquired the lock
// calls it.
func (l *IndexLock) Release() {
	l.running.Store(false)
}

// Locked reports whether a job is running
func (l *IndexLock) Locked() bool {
	return l.running.Load()
}

// State is Locked expressed as a State
func (l *IndexLock) State() State {
	if l.Locked() {
		return StateRunning
	}
	return StateIdle
}
