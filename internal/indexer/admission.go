package indexer

import (
	"sync"
	"sync/atomic"
)

// JobKind distinguishes whole-project jobs from partial ones
type JobKind string

const (
	JobFull        JobKind = "full"
	JobIncremental JobKind = "incremental"
)

// Trigger names what started a job
type Trigger string

const (
	TriggerPeriodic   Trigger = "periodic"
	TriggerFileChange Trigger = "file_change"
	TriggerManual     Trigger = "manual"
)

// Limits caps the number of running jobs of each kind.
type Limits struct {
	Full        int
	Incremental int
}

// LimitsFor returns the admission limits applied to jobs started by trigger.
// File changes get the tightest limits since they arrive in bursts.
func LimitsFor(trigger Trigger) Limits {
	switch trigger {
	case TriggerFileChange:
		return Limits{Full: 1, Incremental: 2}
	default:
		return Limits{Full: 2, Incremental: 3}
	}
}

// Admission counts running jobs across every project of the process.
// One instance is shared by all orchestrators.
type Admission struct {
	full        atomic.Int32
	incremental atomic.Int32
}

// NewAdmission creates an empty admission counter
func NewAdmission() *Admission {
	return &Admission{}
}

// Allows reports whether both counters are below the limits.
func (a *Admission) Allows(l Limits) bool {
	return int(a.full.Load()) < l.Full && int(a.incremental.Load()) < l.Incremental
}

// TryAdmit admits a job of the given kind if both counters are below the
// limits. On success the returned release func must be called once the job
// ends; calling it more than once is a no-op.
func (a *Admission) TryAdmit(kind JobKind, l Limits) (func(), bool) {
	counter := &a.incremental
	if kind == JobFull {
		counter = &a.full
	}

	for {
		cur := counter.Load()
		if !a.Allows(l) {
			return nil, false
		}
		if counter.CompareAndSwap(cur, cur+1) {
			break
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { counter.Add(-1) })
	}, true
}

// Running returns the number of running full and incremental jobs.
func (a *Admission) Running() (full, incremental int) {
	return int(a.full.Load()), int(a.incremental.Load())
}
