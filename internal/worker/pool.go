// Package worker provides a bounded parallel pool for the per-path stages
// of the pipeline. Tasks are independent; results carry their input index so
// callers can re-sort after the join.
package worker

import (
	"context"
	"sync"
	"time"
)

// Task pairs an input with its position in the submitting slice.
type Task[T any] struct {
	Index int
	Input T
}

// Result is the outcome of one task.
type Result[R any] struct {
	Index   int
	Output  R
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the pool.
type Config[T, R any] struct {
	Workers    int
	Process    func(ctx context.Context, input T) (R, error)
	OnProgress ProgressFunc
}

// Pool runs tasks across a fixed set of workers.
type Pool[T, R any] struct {
	workers    int
	process    func(ctx context.Context, input T) (R, error)
	onProgress ProgressFunc
}

// New creates a pool.
func New[T, R any](cfg Config[T, R]) *Pool[T, R] {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pool[T, R]{
		workers:    workers,
		process:    cfg.Process,
		onProgress: cfg.OnProgress,
	}
}

// Run executes every input and returns the results ordered by input index.
// It blocks until all tasks complete or the context is cancelled; cancelled
// tasks carry the context error.
func (p *Pool[T, R]) Run(ctx context.Context, inputs []T) []Result[R] {
	if len(inputs) == 0 {
		return nil
	}

	taskCh := make(chan Task[T], len(inputs))
	resultCh := make(chan Result[R], len(inputs))

	var (
		completed int
		failed    int
		mu        sync.Mutex
	)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	for i, input := range inputs {
		taskCh <- Task[T]{Index: i, Input: input}
	}
	close(taskCh)

	results := make([]Result[R], len(inputs))
	done := make(chan struct{})
	go func() {
		for result := range resultCh {
			results[result.Index] = result

			mu.Lock()
			completed++
			if result.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()

			if p.onProgress != nil {
				p.onProgress(c, len(inputs), f)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool[T, R]) worker(ctx context.Context, tasks <-chan Task[T], results chan<- Result[R]) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result[R]{Index: task.Index, Err: ctx.Err()}
			continue
		default:
		}

		start := time.Now()
		out, err := p.process(ctx, task.Input)
		results <- Result[R]{
			Index:   task.Index,
			Output:  out,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
