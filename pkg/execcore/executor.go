package execcore

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// TaskFunc is the unit of work an Executor runs: an analyzer's Analyze call
// closed over its task arguments.
type TaskFunc func() ([]Result, error)

// Future is a pluggable submit-and-await handle (C6). Await blocks until
// the task completes and returns its results or the original error.
type Future interface {
	Await() ([]Result, error)
}

// Executor is the narrow submit/shutdown contract C6 requires. Two
// conforming implementations are provided: ParallelExecutor (the default,
// real worker pool) and SerialExecutor (cooperative, single-goroutine, for
// tests that want to observe single-process invocation order).
type Executor interface {
	// Submit schedules fn for execution and returns a Future for its
	// result. It returns ErrExecutorClosed once Shutdown has been called.
	Submit(fn TaskFunc) (Future, error)

	// Shutdown disallows further submission. Safe to call more than once.
	Shutdown()
}

// immediateFuture wraps an already-computed outcome — used both by
// SerialExecutor and by the scheduler's cache-hit path, which synthesizes
// an already-completed future carrying the cached results.
type immediateFuture struct {
	results []Result
	err     error
}

func (f *immediateFuture) Await() ([]Result, error) {
	return f.results, f.err
}

// NewImmediateFuture returns a Future that is already resolved.
func NewImmediateFuture(results []Result, err error) Future {
	return &immediateFuture{results: results, err: err}
}

// SerialExecutor runs every submitted task synchronously, in Submit itself.
// It provides the "cooperative thread pool" C6 calls for testability:
// tests can substitute it to observe analyzer invocations happening one at
// a time, in submission order.
type SerialExecutor struct {
	closed atomic.Bool
}

// NewSerialExecutor returns a ready SerialExecutor.
func NewSerialExecutor() *SerialExecutor {
	return &SerialExecutor{}
}

// Submit runs fn immediately and returns its already-resolved outcome.
func (e *SerialExecutor) Submit(fn TaskFunc) (Future, error) {
	if e.closed.Load() {
		return nil, ErrExecutorClosed
	}

	results, err := fn()

	return &immediateFuture{results: results, err: err}, nil
}

// Shutdown marks the executor closed. Idempotent.
func (e *SerialExecutor) Shutdown() {
	e.closed.Store(true)
}

type workItem struct {
	fn   TaskFunc
	done chan taskOutcome
}

type taskOutcome struct {
	results []Result
	err     error
}

type channelFuture struct {
	done chan taskOutcome
}

func (f *channelFuture) Await() ([]Result, error) {
	outcome := <-f.done

	return outcome.results, outcome.err
}

// ParallelExecutor is a fixed-size worker pool draining a shared, buffered
// work channel, generalized from pkg/framework's leaf-worker pattern
// (startLeafWorkers/closeWorkersAndWait): each worker ranges over the
// channel until it is closed, and Shutdown closes the channel and waits for
// every worker to drain. In-flight submissions are additionally bounded
// with a weighted semaphore so Submit backpressures the coordinator instead
// of letting the channel grow without limit.
type ParallelExecutor struct {
	workChan chan workItem
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// NewParallelExecutor starts workers goroutines draining a shared work
// channel. workers must be at least 1.
func NewParallelExecutor(workers int) *ParallelExecutor {
	if workers < 1 {
		workers = 1
	}

	e := &ParallelExecutor{
		workChan: make(chan workItem, workers),
		sem:      semaphore.NewWeighted(int64(workers)),
	}

	e.wg.Add(workers)

	for range workers {
		go e.worker()
	}

	return e
}

func (e *ParallelExecutor) worker() {
	defer e.wg.Done()

	for item := range e.workChan {
		results, err := item.fn()
		item.done <- taskOutcome{results: results, err: err}
		close(item.done)
	}
}

// Submit blocks until a worker slot is free, then enqueues fn. It returns
// ErrExecutorClosed if Shutdown has already been called.
func (e *ParallelExecutor) Submit(fn TaskFunc) (Future, error) {
	if e.closed.Load() {
		return nil, ErrExecutorClosed
	}

	if err := e.sem.Acquire(context.Background(), 1); err != nil {
		return nil, err
	}

	done := make(chan taskOutcome, 1)

	e.workChan <- workItem{
		fn: func() ([]Result, error) {
			defer e.sem.Release(1)

			return fn()
		},
		done: done,
	}

	return &channelFuture{done: done}, nil
}

// Shutdown closes the work channel and waits for every worker to drain and
// exit. Idempotent; safe to call even if no task was ever submitted.
func (e *ParallelExecutor) Shutdown() {
	if e.closed.Swap(true) {
		return
	}

	close(e.workChan)
	e.wg.Wait()
}
