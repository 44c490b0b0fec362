package orchestrator

import "context"

// Pool bounds how many gateway calls (submissions and probes) may be in
// flight at once across all jobs, so a wide job cannot overwhelm the remote
// API. It is the only resource shared between jobs.
type Pool struct {
	sem chan struct{}
}

// NewPool creates a pool admitting up to size concurrent calls.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 8
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free or the context is done.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (p *Pool) Release() {
	<-p.sem
}
