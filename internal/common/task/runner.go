package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codebattle/pkg/utils/logger"

	"go.uber.org/zap"
)

// Runner executes best-effort side effects in the background.
// Failures are logged and never reach the caller that scheduled the task.
type Runner struct {
	sem     chan struct{}
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewRunner creates a runner that allows at most workers tasks in flight.
func NewRunner(workers int, timeout time.Duration) *Runner {
	if workers <= 0 {
		workers = 8
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{sem: make(chan struct{}, workers), timeout: timeout}
}

// Go schedules fn. The task keeps ctx values (trace id, user id) but not its cancellation,
// so it outlives the HTTP request that triggered it.
// Returns false when the runner is already shutting down.
func (r *Runner) Go(ctx context.Context, name string, fn func(context.Context) error) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		logger.Warn(ctx, "task dropped, runner closed", zap.String("task", name))
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()

		taskCtx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()

		start := time.Now()
		if err := r.run(taskCtx, fn); err != nil {
			logger.Warn(taskCtx, "background task failed",
				zap.String("task", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		logger.Debug(taskCtx, "background task done", zap.String("task", name), zap.Duration("elapsed", time.Since(start)))
	}()
	return true
}

func (r *Runner) run(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panic: %v", p)
		}
	}()
	return fn(ctx)
}

// Shutdown stops accepting tasks and waits for in-flight ones until ctx is done.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
