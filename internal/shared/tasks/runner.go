// Package tasks runs fire-and-forget work off the request path.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
)

// ErrClosed is returned by Go after Close has been called.
var ErrClosed = errors.New("task runner closed")

// Runner executes detached tasks with bounded concurrency.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *logging.Logger

	mu     sync.Mutex
	closed bool
}

// NewRunner creates a runner whose tasks inherit parent's values and
// cancellation. At most limit tasks execute at once; the rest queue.
func NewRunner(parent context.Context, limit int64, logger *logging.Logger) *Runner {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(limit),
		logger: logger.Named("tasks"),
	}
}

// Go schedules fn and returns immediately. fn receives the runner's context,
// never the caller's.
func (r *Runner) Go(name string, fn func(ctx context.Context)) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		if err := r.sem.Acquire(r.ctx, 1); err != nil {
			r.logger.Debug("Task dropped before start", zap.String("task", name), zap.Error(err))
			return
		}
		defer r.sem.Release(1)

		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("Task panicked",
					zap.String("task", name),
					zap.String("panic", fmt.Sprint(p)),
				)
			}
		}()

		fn(r.ctx)
	}()
	return nil
}

// Close cancels outstanding tasks and waits for them to return, or for ctx
// to expire.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for tasks: %w", ctx.Err())
	}
}
