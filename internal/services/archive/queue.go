// Package archive copies terminal transcript messages into the document
// database in the background and reads them back as thread history.
package archive

import (
	"context"
	"sync"
)

// Queue is a bounded work queue served by a fixed set of workers.
type Queue[T any] struct {
	jobs       chan T
	workerFunc func(ctx context.Context, job T) error
	onError    func(job T, err error)
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewQueue creates a queue with the given buffer size and worker function.
// onError, if set, receives every job the worker function failed.
func NewQueue[T any](bufferSize int, workerFunc func(ctx context.Context, job T) error, onError func(job T, err error)) *Queue[T] {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue[T]{
		jobs:       make(chan T, bufferSize),
		workerFunc: workerFunc,
		onError:    onError,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue[T]) Start(workerCount int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.stopped {
		return
	}
	q.started = true

	if workerCount <= 0 {
		workerCount = 1
	}
	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

func (q *Queue[T]) worker() {
	defer q.wg.Done()

	for job := range q.jobs {
		if err := q.workerFunc(q.ctx, job); err != nil && q.onError != nil {
			q.onError(job, err)
		}
	}
}

// Enqueue adds a job without blocking. It reports false when the queue is
// full or stopped.
func (q *Queue[T]) Enqueue(job T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}
	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop refuses new jobs and waits until the workers drained the buffer or
// ctx expires, whichever comes first. Jobs still running when ctx expires
// see their context cancelled.
func (q *Queue[T]) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	started := q.started
	close(q.jobs)
	q.mu.Unlock()

	if !started {
		q.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

// Len returns the number of buffered jobs.
func (q *Queue[T]) Len() int {
	return len(q.jobs)
}
