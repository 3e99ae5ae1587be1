package indexer

import (
	"sync"
	"time"
)

// progress holds the completion fraction of the current job.
// Each job gets a generation so that a late reset from a previous job
// cannot clobber the value of the one that replaced it.
type progress struct {
	mu    sync.Mutex
	value float64
	gen   uint64
	grace time.Duration
}

func (p *progress) start() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.value = 0
	return p.gen
}

// advance raises the fraction; lower values are ignored.
func (p *progress) advance(gen uint64, v float64) {
	if v > 1 {
		v = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.gen && v > p.value {
		p.value = v
	}
}

// finish resets the fraction to zero after the grace delay unless another
// job started in the meantime.
func (p *progress) finish(gen uint64) {
	time.AfterFunc(p.grace, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if gen == p.gen {
			p.value = 0
		}
	})
}

func (p *progress) get() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}
