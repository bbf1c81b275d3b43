package services

import (
	"context"
	"sync"
	"sync/atomic"
)

// Dispatcher hands generation work off the request path. Dispatch must
// return without waiting for the work to finish.
type Dispatcher interface {
	Dispatch(ctx context.Context, id, prompt string)
}

// JobRunner executes one generation job to completion.
type JobRunner interface {
	Run(ctx context.Context, id, prompt string)
}

// AsyncDispatcher runs every job on its own goroutine and keeps count of the
// ones in flight so shutdown can drain them.
type AsyncDispatcher struct {
	runner   JobRunner
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

func NewAsyncDispatcher(runner JobRunner) *AsyncDispatcher {
	return &AsyncDispatcher{runner: runner}
}

// Dispatch starts the job detached from ctx's cancellation, so the job
// outlives the request that triggered it. Values such as trace spans are kept.
func (d *AsyncDispatcher) Dispatch(ctx context.Context, id, prompt string) {
	jobCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	d.inFlight.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.inFlight.Add(-1)
		d.runner.Run(jobCtx, id, prompt)
	}()
}

// InFlight returns the number of jobs still running.
func (d *AsyncDispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Wait blocks until every dispatched job has returned or ctx is done.
func (d *AsyncDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
