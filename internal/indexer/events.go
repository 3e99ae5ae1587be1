package indexer

import (
	"time"
)

// EventKind classifies a file-change event
type EventKind int

const (
	Created EventKind = iota + 1
	Modified
	Deleted
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is a single file-system change delivered to a ChangeListener.
type Event struct {
	Kind EventKind
	Path string
}

// Completion describes a finished indexing job.
type Completion struct {
	JobID     string
	Project   string
	Kind      JobKind
	Trigger   Trigger
	Files     int // files embedded by the job
	Removed   int // paths removed from the index
	Documents int // documents handed to the store
	Err       error
	Cancelled bool
	Started   time.Time
	Duration  time.Duration
}

// Succeeded reports whether the job ended without error or cancellation.
func (c Completion) Succeeded() bool {
	return c.Err == nil && !c.Cancelled
}

// Notifier receives one Completion per admitted job.
type Notifier interface {
	IndexingCompleted(Completion)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Completion)

func (f NotifierFunc) IndexingCompleted(c Completion) {
	f(c)
}

// Notifiers fans a completion out to several notifiers in order.
type Notifiers []Notifier

func (ns Notifiers) IndexingCompleted(c Completion) {
	for _, n := range ns {
		if n != nil {
			n.IndexingCompleted(c)
		}
	}
}
