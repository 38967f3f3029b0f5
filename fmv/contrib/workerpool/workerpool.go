// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool runs data-parallel loops on a fixed set of long-lived
// goroutines. Dispatched kernels that process many independent rows (see
// contrib/vec.DotBatch) share one pool instead of spawning goroutines per
// call.
//
// Usage:
//
//	pool := workerpool.New(0) // GOMAXPROCS workers
//	defer pool.Close()
//
//	pool.ParallelFor(rows, 64, func(start, end int) {
//	    for r := start; r < end; r++ {
//	        out[r] = dot(query, matrix[r*dim:(r+1)*dim])
//	    }
//	})
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent set of worker goroutines.
type Pool struct {
	numWorkers int
	tasks      chan func()

	// mu orders Close against submissions: offer holds it for reading
	// while it sends, Close takes it for writing. It is never held while
	// user code runs.
	mu     sync.RWMutex
	closed bool
}

// New starts a pool with numWorkers goroutines; numWorkers <= 0 means
// GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: numWorkers,
		tasks:      make(chan func(), numWorkers*2),
	}
	for range numWorkers {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	for run := range p.tasks {
		run()
	}
}

// NumWorkers returns the number of worker goroutines.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close stops the workers once queued work drains. It is safe to call more
// than once. A closed pool still accepts ParallelFor and runs it inline.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.tasks)
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// ParallelFor calls fn over disjoint ranges covering [0, n) and returns when
// all have finished. Ranges of at most grain indices are claimed from a
// shared counter, which balances uneven per-index cost. grain <= 0 splits n
// evenly across workers.
//
// The calling goroutine claims ranges too, so ParallelFor makes progress
// even when every worker is busy. fn may itself call ParallelFor on the
// same pool.
func (p *Pool) ParallelFor(n, grain int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if grain <= 0 {
		grain = (n + p.numWorkers - 1) / p.numWorkers
	}
	chunks := (n + grain - 1) / grain
	helpers := min(p.numWorkers, chunks) - 1
	if helpers <= 0 || p.isClosed() {
		fn(0, n)
		return
	}

	var (
		next    atomic.Int64
		pending sync.WaitGroup
	)
	pending.Add(chunks)
	claim := func() {
		for {
			start := int(next.Add(int64(grain))) - grain
			if start >= n {
				return
			}
			fn(start, min(start+grain, n))
			pending.Done()
		}
	}
	p.offer(helpers, claim)
	claim()
	// Every chunk is claimed by now; wait for the ones still running.
	// Helpers that start later find the counter exhausted and return.
	pending.Wait()
}

// offer queues up to k copies of run without blocking. Whatever does not
// fit is left to the caller.
func (p *Pool) offer(k int, run func()) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	for range k {
		select {
		case p.tasks <- run:
		default:
			return
		}
	}
}

var (
	sharedOnce sync.Once
	shared     *Pool
)

// Shared returns a process-wide pool sized to GOMAXPROCS, started on first
// use and never closed.
func Shared() *Pool {
	sharedOnce.Do(func() { shared = New(0) })
	return shared
}
