// Package parallel provides the data-parallel fork-join kernel shared by
// every per-arm and per-point pass in the engine. It is a small,
// purpose-built replacement for the reference implementation's raw
// "#pragma omp parallel for" loops: fixed worker fan-out bounded by
// GOMAXPROCS, coordinated with golang.org/x/sync/errgroup and
// golang.org/x/sync/semaphore rather than an unbounded goroutine-per-item
// spawn.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Range shards the index space 0..n-1 across up to GOMAXPROCS workers and
// calls fn(lo, hi) once per shard, blocking until every shard completes or
// one returns an error. It is the fork-join primitive behind every per-arm
// or per-point pass: sigma estimation, arm evaluation, and the O(k*n)
// best/second-best/assignment recompute all call through Range.
//
// fn must be safe to call concurrently with disjoint [lo, hi) ranges; Range
// makes no ordering guarantee across shards.
func Range(ctx context.Context, n int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		lo, hi := lo, hi
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(lo, hi)
		})
	}
	return g.Wait()
}

// Pool bounds concurrency across many callers that share a CPU budget in
// the same process, e.g. multiple kmedoids Engines each running their own
// internal Range fan-out concurrently. A caller wraps a unit of work in
// Acquire/Release; kmedoids.WithConcurrencyPool wraps an entire Fit call
// this way, so at most maxConcurrent Engines are mid-fit at once no matter
// how many are constructed. Acquire/Release wrap golang.org/x/sync/semaphore,
// grounded on the same weighted-semaphore pattern the teacher uses to bound
// background concurrency.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a Pool that admits at most maxConcurrent callers of
// Acquire at a time. If maxConcurrent <= 0, it defaults to GOMAXPROCS.
func NewPool(maxConcurrent int64) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = int64(runtime.GOMAXPROCS(0))
	}
	return &Pool{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Acquire blocks until a slot is available or ctx is canceled.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release returns a slot acquired via Acquire.
func (p *Pool) Release() {
	p.sem.Release(1)
}
