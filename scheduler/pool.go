package scheduler

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Pool is the worker-pool primitive spec.md §6 requires: "a group_task(size,
// body(index)) primitive that blocks the caller until all size invocations
// finish." The core makes no assumption about a specific work-stealing
// implementation; ErrgroupPool is the simple, sufficient one.
type Pool interface {
	// GroupTask invokes body(i) for every i in [0, size) and blocks until
	// all of them return. Every non-nil error is joined into the returned
	// error; every task still runs to completion (the pool does not cancel
	// siblings), per
	// spec.md §7: "the worker pool swallows and records per-task failures
	// and reports them after the batch join."
	GroupTask(ctx context.Context, size int, body func(i int) error) error
}

// ErrgroupPool is a Pool backed by golang.org/x/sync/errgroup, grounded on
// the teacher's own use of errgroup for fan-out/join in
// Argus-Labs-world-engine/v2/cardinal.go's syncLoop (eg.Go/eg.Wait) and on
// zeusync-zeusync/pkg/concurrent/concurrent.go's Concurrent[T] helper.
// SetLimit caps in-flight goroutines; zero means unlimited.
type ErrgroupPool struct {
	limit int
}

// NewErrgroupPool returns a Pool with no concurrency cap.
func NewErrgroupPool() *ErrgroupPool {
	return &ErrgroupPool{}
}

// NewErrgroupPoolWithLimit returns a Pool that runs at most limit task
// bodies concurrently.
func NewErrgroupPoolWithLimit(limit int) *ErrgroupPool {
	return &ErrgroupPool{limit: limit}
}

func (p *ErrgroupPool) GroupTask(ctx context.Context, size int, body func(i int) error) error {
	eg, _ := errgroup.WithContext(ctx)
	if p.limit > 0 {
		eg.SetLimit(p.limit)
	}

	errs := make([]error, size)
	for i := 0; i < size; i++ {
		index := i
		eg.Go(func() error {
			errs[index] = runRecovered(index, body)
			return nil
		})
	}
	_ = eg.Wait()
	return errors.Join(errs...)
}

// runRecovered converts a panicking body into an error, per spec.md §7:
// bodies never observe exceptions originating in other bodies, and a panic
// in one task must not crash the batch join.
func runRecovered(index int, body func(i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Index: index, Value: r}
		}
	}()
	return body(index)
}
