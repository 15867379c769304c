package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/platinummonkey/stackpulse/pkg/observability"
)

// SafeGo executes fn in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// The goroutine's context is detached from parentCtx's cancellation so that work started
// by a request outlives the request, but it keeps parentCtx's values.
//
// Example:
//
//	async.SafeGo(r.Context(), logger, 2*time.Minute, "scheduled sync", func(ctx context.Context) error {
//	    _, err := orchestrator.UpdateAnalytics(ctx)
//	    return err
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
		defer cancel()

		var err error
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("panic", r).
					WithField("stack", string(debug.Stack())).
					WithField("task", taskName).
					Error("PANIC recovered in background task")
				err = fmt.Errorf("panic in %s: %v", taskName, r)
			}
			done <- err
		}()

		if err = fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Error("Background task failed")
		}
	}()
	return done
}

// Exclusive runs at most one task at a time. Calls made while a task is running are
// skipped rather than queued.
type Exclusive struct {
	running atomic.Bool
}

// TryRun runs fn unless another fn is already running. ran reports whether fn executed.
func (e *Exclusive) TryRun(fn func() error) (ran bool, err error) {
	if !e.running.CompareAndSwap(false, true) {
		return false, nil
	}
	defer e.running.Store(false)
	return true, fn()
}

// Running reports whether a task is in progress
func (e *Exclusive) Running() bool {
	return e.running.Load()
}
