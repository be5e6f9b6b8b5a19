// Package parallel provides a small bounded-concurrency fan-out helper,
// the same errgroup.Group+SetLimit idiom used everywhere a fixed-size
// worker pool over a static task list is needed (first-success.go,
// cmd-rpc.go) rather than a true work-stealing scheduler. COBS's
// parallel work is always statically partitioned ahead of time (disjoint
// columns at build, disjoint score batches at query; see §5), so a
// bounded pool draining a fixed task list behaves identically to
// work-stealing for this workload.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers returns the default pool size: the number of logical CPUs.
func Workers() int {
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 1
}

// For runs fn(i) for i in [0, n) across at most workers goroutines,
// stopping at the first error and returning it (errgroup.Group
// semantics). workers <= 0 means use Workers().
func For(ctx context.Context, n int, workers int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = Workers()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

// Group is a thin wrapper around errgroup.Group with a worker limit
// pre-applied, for call sites that fan out over a slice of heterogeneous
// jobs rather than a simple index range.
type Group struct {
	g *errgroup.Group
}

// NewGroup starts a bounded group derived from ctx. workers <= 0 means use
// Workers().
func NewGroup(ctx context.Context, workers int) (*Group, context.Context) {
	if workers <= 0 {
		workers = Workers()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	return &Group{g: g}, gctx
}

// Go schedules fn on the group.
func (gr *Group) Go(fn func() error) {
	gr.g.Go(fn)
}

// Wait blocks until every scheduled job has finished and returns the first
// error, if any.
func (gr *Group) Wait() error {
	return gr.g.Wait()
}
