package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"github.com/webriots/fiber/coro"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) resumer(name string, err error) coro.Resumer {
	return resumeFunc(func(_ context.Context, args ...any) ([]any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
		return args, err
	})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type resumeFunc func(ctx context.Context, args ...any) ([]any, error)

func (f resumeFunc) Resume(ctx context.Context, args ...any) ([]any, error) {
	return f(ctx, args...)
}

func TestLoopDeferRunsAtNextCycle(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	loop := New()
	rec := &recorder{}

	loop.Defer(rec.resumer("a", nil))
	loop.Defer(rec.resumer("b", nil))
	r.Equal(2, loop.Pending())
	r.Empty(rec.names())

	n, err := loop.RunCycle(ctx)
	r.NoError(err)
	r.Equal(2, n)
	r.Equal([]string{"a", "b"}, rec.names())
	r.Zero(loop.Pending())

	n, err = loop.RunCycle(ctx)
	r.NoError(err)
	r.Zero(n)
}

func TestLoopCycleBoundary(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	loop := New()
	rec := &recorder{}

	loop.Defer(resumeFunc(func(context.Context, ...any) ([]any, error) {
		loop.Defer(rec.resumer("requeued", nil))
		return nil, nil
	}))

	n, err := loop.RunCycle(ctx)
	r.NoError(err)
	r.Equal(1, n)
	r.Empty(rec.names())
	r.Equal(1, loop.Pending())

	n, err = loop.RunCycle(ctx)
	r.NoError(err)
	r.Equal(1, n)
	r.Equal([]string{"requeued"}, rec.names())
}

func TestLoopDelayOrdering(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	mock := clock.NewMock()
	loop := New(WithClock(mock))
	rec := &recorder{}

	loop.Delay(30*time.Millisecond, rec.resumer("late", nil))
	loop.Delay(10*time.Millisecond, rec.resumer("first", nil))
	loop.Delay(10*time.Millisecond, rec.resumer("second", nil))
	loop.Delay(0, rec.resumer("now", nil))

	n, err := loop.RunCycle(ctx)
	r.NoError(err)
	r.Equal(1, n)
	r.Equal([]string{"now"}, rec.names())

	mock.Add(5 * time.Millisecond)
	n, _ = loop.RunCycle(ctx)
	r.Zero(n)

	mock.Add(5 * time.Millisecond)
	n, _ = loop.RunCycle(ctx)
	r.Equal(2, n)
	r.Equal([]string{"now", "first", "second"}, rec.names())

	mock.Add(time.Second)
	n, _ = loop.RunCycle(ctx)
	r.Equal(1, n)
	r.Equal([]string{"now", "first", "second", "late"}, rec.names())
	r.Zero(loop.Pending())
}

func TestLoopDeferredBeforeTimers(t *testing.T) {
	r := require.New(t)
	mock := clock.NewMock()
	loop := New(WithClock(mock))
	rec := &recorder{}

	loop.Delay(0, rec.resumer("timer", nil))
	loop.Defer(rec.resumer("deferred", nil))

	_, err := loop.RunCycle(context.Background())
	r.NoError(err)
	r.Equal([]string{"deferred", "timer"}, rec.names())
}

func TestLoopErrorsAreLoggedAndCombined(t *testing.T) {
	r := require.New(t)
	core, logs := observer.New(zapcore.WarnLevel)
	loop := New(WithLogger(zap.New(core)))
	rec := &recorder{}
	errA := errors.New("A")
	errB := errors.New("B")

	loop.Defer(rec.resumer("a", errA))
	loop.Defer(rec.resumer("ok", nil))
	loop.Defer(rec.resumer("b", errB))

	n, err := loop.RunCycle(context.Background())
	r.Equal(3, n)
	r.ErrorIs(err, errA)
	r.ErrorIs(err, errB)
	r.Equal([]string{"a", "ok", "b"}, rec.names())
	r.Equal(2, logs.FilterMessage("scheduled resume failed").Len())
}

func TestLoopResumesCoroutines(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	loop := New()

	var got []any
	co := coro.New(ctx, func(ctx context.Context, _ ...any) ([]any, error) {
		got = coro.Yield(ctx)
		return nil, nil
	})
	_, err := co.Resume(ctx)
	r.NoError(err)

	loop.Defer(co, "x", 1)
	r.NoError(loop.RunUntilIdle(ctx))
	r.Equal([]any{"x", 1}, got)
	r.Equal(coro.StatusDead, co.Status())
}

func TestLoopRunUntilIdleWaitsForTimers(t *testing.T) {
	r := require.New(t)
	loop := New()
	rec := &recorder{}

	loop.Delay(5*time.Millisecond, rec.resumer("b", nil))
	loop.Delay(time.Millisecond, rec.resumer("a", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.NoError(loop.RunUntilIdle(ctx))
	r.Equal([]string{"a", "b"}, rec.names())
	r.Zero(loop.Pending())
}

func TestLoopRunUntilIdleCanceled(t *testing.T) {
	r := require.New(t)
	loop := New()
	loop.Delay(time.Hour, (&recorder{}).resumer("never", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := loop.RunUntilIdle(ctx)
	r.ErrorIs(err, context.DeadlineExceeded)
	r.Equal(1, loop.Pending())
}

func TestLoopRun(t *testing.T) {
	r := require.New(t)
	loop := New()
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	loop.Defer(rec.resumer("a", nil))
	loop.Delay(time.Millisecond, resumeFunc(func(context.Context, ...any) ([]any, error) {
		cancel()
		return nil, nil
	}))

	select {
	case err := <-done:
		r.ErrorIs(err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	r.Equal([]string{"a"}, rec.names())
}
