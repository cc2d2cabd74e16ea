package core

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of store calls in flight across all connections.
// Work runs on the caller's goroutine, which is the connection's reader, so a
// slow datastore never holds up event delivery.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewPool creates a pool with size slots; size <= 0 uses 4*GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 4 * runtime.GOMAXPROCS(0)
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return int(p.size)
}

// Do waits for a free slot and runs fn. It returns ctx.Err() when no slot
// frees up before ctx is done.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}
