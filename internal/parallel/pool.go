// Package parallel provides a bounded worker pool for row-parallel table
// evaluation. Rule objects are read-only once built, so rows can be
// checked and repaired independently; this package supplies the controlled
// concurrency without exposing goroutine management to callers.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// ErrPoolShutdown is returned when submitting tasks to a shutdown pool.
var ErrPoolShutdown = fmt.Errorf("worker pool has been shutdown")

// WorkerPool manages a fixed set of goroutines processing submitted tasks.
// Submission applies backpressure through a bounded channel.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a pool with the given number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task := <-wp.taskChan:
			if task != nil {
				task()
			}
		case <-wp.shutdownChan:
			return
		}
	}
}

// Submit queues a task for execution, blocking while the pool is full.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	// Never enqueue into a pool that is already shut down: the buffered
	// channel would accept the task but no worker remains to run it.
	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	default:
	}
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops the pool after currently executing tasks complete.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}

// ForEach runs fn(i) for every i in [0, n), distributing contiguous index
// chunks across the pool's workers and returning when all are done. fn
// must be safe to call concurrently for distinct indexes.
func (wp *WorkerPool) ForEach(ctx context.Context, n int, fn func(i int)) error {
	if n <= 0 {
		return nil
	}
	chunk := (n + wp.maxWorkers - 1) / wp.maxWorkers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		s, e := start, end
		wg.Add(1)
		if err := wp.Submit(ctx, func() {
			defer wg.Done()
			for i := s; i < e; i++ {
				fn(i)
			}
		}); err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}
	wg.Wait()
	return nil
}
