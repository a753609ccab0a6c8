package fanout

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently executing fan-out calls.
//
// A Pool has no Close: it lives as long as the process.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
	busy atomic.Int64
}

// NewPool creates a pool with size slots. A size <= 0 means runtime.NumCPU().
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

var (
	sharedOnce sync.Once
	shared     *Pool
)

// Shared returns the process-wide pool, sized to runtime.NumCPU().
func Shared() *Pool {
	sharedOnce.Do(func() {
		shared = NewPool(0)
	})
	return shared
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return int(p.size)
}

// Busy returns the number of slots currently held.
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// acquire blocks until a slot is free or ctx is done.
func (p *Pool) acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.busy.Add(1)
	return nil
}

func (p *Pool) release() {
	p.busy.Add(-1)
	p.sem.Release(1)
}
