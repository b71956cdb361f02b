// Package executor runs NAND operations across a fixed pool of worker
// goroutines, per spec.md §4.8. Grounded on
// golang.org/x/sync/semaphore.Weighted for the worker-count limit and on
// the teacher's runTasksInParallel (test_runner.go) for the
// first-error/cancel-on-failure idiom.
package executor

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"nandctl/nanderr"
)

// Task is a unit of work submitted to a Pool.
type Task func(ctx context.Context) (interface{}, error)

// Handle represents an in-flight or completed Task.
type Handle struct {
	done   chan struct{}
	result interface{}
	err    error
}

// Wait blocks until the task completes and returns its result.
func (h *Handle) Wait() (interface{}, error) {
	<-h.done
	return h.result, h.err
}

// Pool is a fixed-size worker pool.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu          sync.Mutex
	shutdown    bool
	shutdownErr error
}

// New creates a Pool that runs at most workers tasks concurrently.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Submit schedules task to run, acquiring a worker slot (blocking on ctx
// if the pool is saturated). Fails with nanderr.ShutDown if Shutdown has
// already been called.
func (p *Pool) Submit(ctx context.Context, task Task) (*Handle, error) {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return nil, nanderr.New(nanderr.ShutDown, "executor: pool is shut down")
	}
	p.wg.Add(1)
	p.mu.Unlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return nil, errors.Wrap(err, "executor: acquire worker slot")
	}

	h := &Handle{done: make(chan struct{})}
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer close(h.done)
		h.result, h.err = task(ctx)
	}()
	return h, nil
}

// Shutdown marks the pool closed to new submissions and blocks until all
// in-flight tasks finish.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
	p.wg.Wait()
}

// Wait blocks on every handle in order and collects their results. It
// returns the first error encountered, if any, but still waits for every
// handle so no goroutine is leaked.
func Wait(handles []*Handle) ([]interface{}, error) {
	results := make([]interface{}, len(handles))
	var firstErr error
	for i, h := range handles {
		res, err := h.Wait()
		results[i] = res
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}

// ExecuteParallel runs tasks concurrently on p, cancelling the remaining
// tasks' context as soon as one fails, and returns the first error. This
// generalizes the teacher's runTasksInParallel (fail-fast fan-out with a
// single firstErrorLock) to arbitrary result-bearing tasks.
func ExecuteParallel(ctx context.Context, p *Pool, tasks []Task) ([]interface{}, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var firstErr error

	handles := make([]*Handle, len(tasks))
	for i, task := range tasks {
		wrapped := task
		h, err := p.Submit(runCtx, func(ctx context.Context) (interface{}, error) {
			res, err := wrapped(ctx)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = errors.Wrap(err, "executor: error while running parallel tasks")
					cancel()
				}
				mu.Unlock()
			}
			return res, err
		})
		if err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			handles[i] = &Handle{done: closedChan()}
			continue
		}
		handles[i] = h
	}

	results, _ := Wait(handles)

	mu.Lock()
	defer mu.Unlock()
	return results, firstErr
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
