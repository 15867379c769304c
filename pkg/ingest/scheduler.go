package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/stackpulse/pkg/analytics"
	"github.com/platinummonkey/stackpulse/pkg/async"
	"github.com/platinummonkey/stackpulse/pkg/observability"
)

// Updater runs one sync
type Updater interface {
	UpdateAnalytics(ctx context.Context) (*analytics.MetricsDocument, error)
}

// Scheduler triggers syncs on a cron schedule. A trigger that fires while the previous
// sync is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	updater Updater
	timeout time.Duration
	logger  *observability.Logger
	guard   async.Exclusive
}

// NewScheduler parses schedule (standard five field cron syntax) and registers the sync job
func NewScheduler(updater Updater, schedule string, timeout time.Duration, logger *observability.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	cronLogger := observability.NewCronLogger(logger)

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		updater: updater,
		timeout: timeout,
		logger:  logger.WithField("component", "scheduler"),
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		s.RunNow(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule sync %q: %w", schedule, err)
	}
	return s, nil
}

// RunNow runs one sync unless one is already in progress. ran reports whether it ran.
func (s *Scheduler) RunNow(ctx context.Context) (ran bool, err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ran, err = s.guard.TryRun(func() error {
		start := time.Now()
		doc, err := s.updater.UpdateAnalytics(ctx)
		if err != nil {
			return err
		}
		s.logger.WithFields(map[string]interface{}{
			"total_events": doc.Usage.TotalEvents,
			"duration_ms":  time.Since(start).Milliseconds(),
		}).Info("Scheduled sync complete")
		return nil
	})
	if !ran {
		s.logger.Warn("Previous sync still running; skipping trigger")
	}
	if err != nil {
		s.logger.WithError(err).Error("Scheduled sync failed")
	}
	return ran, err
}

// backgroundTimeout bounds background syncs when no sync timeout is configured
const backgroundTimeout = 10 * time.Minute

// RunInBackground starts one sync without blocking. The returned channel yields its error.
func (s *Scheduler) RunInBackground(ctx context.Context, taskName string) <-chan error {
	timeout := backgroundTimeout
	if s.timeout > 0 {
		timeout = s.timeout + time.Second
	}
	return async.SafeGo(ctx, s.logger, timeout, taskName, func(ctx context.Context) error {
		_, err := s.RunNow(ctx)
		return err
	})
}

// Start starts the cron scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running job until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled run time
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
