package async

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stackpulse/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish")
		return nil
	}
}

func TestSafeGo_Success(t *testing.T) {
	executed := false
	done := SafeGo(context.Background(), testLogger(), time.Second, "test task", func(ctx context.Context) error {
		executed = true
		return nil
	})
	assert.NoError(t, wait(t, done))
	assert.True(t, executed)
}

func TestSafeGo_ReturnsError(t *testing.T) {
	done := SafeGo(context.Background(), testLogger(), time.Second, "test task", func(ctx context.Context) error {
		return errors.New("upstream down")
	})
	assert.EqualError(t, wait(t, done), "upstream down")
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	done := SafeGo(context.Background(), testLogger(), time.Second, "panicky", func(ctx context.Context) error {
		panic("boom")
	})
	err := wait(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in panicky")
}

func TestSafeGo_EnforcesTimeout(t *testing.T) {
	done := SafeGo(context.Background(), testLogger(), 20*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, wait(t, done), context.DeadlineExceeded)
}

func TestSafeGo_OutlivesParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})

	done := SafeGo(parent, testLogger(), time.Second, "detached", func(ctx context.Context) error {
		close(started)
		<-release
		return ctx.Err()
	})

	<-started
	cancel()
	close(release)
	assert.NoError(t, wait(t, done))
}

func TestExclusive_SkipsOverlappingRuns(t *testing.T) {
	var ex Exclusive
	inside := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ran, err := ex.TryRun(func() error {
			close(inside)
			<-release
			return nil
		})
		assert.True(t, ran)
		assert.NoError(t, err)
	}()

	<-inside
	assert.True(t, ex.Running())
	ran, err := ex.TryRun(func() error { return errors.New("should not run") })
	assert.False(t, ran)
	assert.NoError(t, err)

	close(release)
	wg.Wait()
	assert.False(t, ex.Running())

	ran, err = ex.TryRun(func() error { return errors.New("second") })
	assert.True(t, ran)
	assert.EqualError(t, err, "second")
}
