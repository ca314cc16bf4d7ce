package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"quill/internal/observability"
)

// Tasks runs fire-and-forget work outside the request lifecycle. Each task
// keeps the values of the context it was started from but not its
// cancellation, so a finished request does not abort it.
type Tasks struct {
	wg sync.WaitGroup
}

// Go starts fn in a new goroutine. A panic in fn is recovered and logged.
func (t *Tasks) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	t.wg.Add(1)
	observability.DetachedTasksInFlight.Inc()

	go func() {
		defer t.wg.Done()
		defer observability.DetachedTasksInFlight.Dec()
		defer func() {
			if r := recover(); r != nil {
				observability.DetachedTaskPanics.WithLabelValues(name).Inc()
				observability.LogAsyncOperationError(ctx, name, fmt.Errorf("panic: %v", r), map[string]any{
					"stack": string(debug.Stack()),
				})
			}
		}()
		fn(ctx)
	}()
}

// Wait blocks until every started task has returned or ctx is done.
func (t *Tasks) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		observability.GlobalLogger.Warn("detached tasks still running at shutdown", slog.String("error", ctx.Err().Error()))
		return ctx.Err()
	}
}
