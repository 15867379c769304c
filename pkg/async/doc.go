// Package async provides safe execution primitives for background tasks.
//
// # Key Types
//
// SafeGo runs a function in a goroutine with panic recovery, a timeout and structured
// error logging. It returns a channel that receives the task's result, which callers
// may ignore for fire-and-forget work.
//
//	async.SafeGo(ctx, logger, 2*time.Minute, "manual refresh", func(ctx context.Context) error {
//		_, err := orchestrator.UpdateAnalytics(ctx)
//		return err
//	})
//
// Exclusive prevents overlapping runs of the same job, such as a scheduled sync firing
// while a previous sync is still in flight.
//
//	var syncs async.Exclusive
//	ran, err := syncs.TryRun(func() error { return job(ctx) })
package async
