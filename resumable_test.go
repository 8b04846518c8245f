package fiber

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webriots/fiber/coro"
)

func TestResumableBroadcast(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	pool, _ := newTestPool(t, Config{})
	res := NewResumable()

	var order []string
	waiter := func(name string) Func {
		return func(ctx context.Context, _ ...any) ([]any, error) {
			got := res.Yield(ctx)
			order = append(order, name)
			return got, nil
		}
	}
	a, _, err := pool.Spawn(ctx, waiter("a"))
	r.NoError(err)
	b, _, err := pool.Spawn(ctx, waiter("b"))
	r.NoError(err)
	r.False(res.Resumed())

	r.NoError(res.Resume(ctx, "v", 1))
	r.True(res.Resumed())
	r.Equal([]string{"a", "b"}, order)
	r.Equal(coro.StatusDead, a.Status())
	r.Equal(coro.StatusDead, b.Status())
	r.Empty(res.waiters)

	late, out, err := pool.Spawn(ctx, waiter("late"))
	r.NoError(err)
	r.Equal([]any{"v", 1}, out)
	r.Equal(coro.StatusDead, late.Status())
}

func TestResumableResumeTwice(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	yield, resume := NewResumable().Pair()

	r.NoError(resume(ctx))
	r.PanicsWithValue(ErrAlreadyResumed, func() {
		_ = resume(ctx, "again")
	})
	r.PanicsWithValue(coro.ErrYieldOutside, func() {
		yield(ctx)
	})
}

func TestResumableForeignResume(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	pool, _ := newTestPool(t, Config{})
	res := NewResumable()

	h, _, err := pool.Spawn(ctx, func(ctx context.Context, _ ...any) ([]any, error) {
		return res.Yield(ctx), nil
	})
	r.NoError(err)

	_, err = h.Resume(ctx, "not a wake")
	r.ErrorIs(err, ErrForeignResume)

	other := NewResumable()
	h, _, err = pool.Spawn(ctx, func(ctx context.Context, _ ...any) ([]any, error) {
		return res.Yield(ctx), nil
	})
	r.NoError(err)
	_, err = h.Resume(ctx, wake{from: other})
	r.ErrorIs(err, ErrForeignResume)
}

func TestResumableSkipsDeadWaiters(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	pool, _ := newTestPool(t, Config{})
	res := NewResumable()

	closed, _, err := pool.Spawn(ctx, func(ctx context.Context, _ ...any) ([]any, error) {
		res.Yield(ctx)
		t.Error("closed waiter woken")
		return nil, nil
	})
	r.NoError(err)
	var woken bool
	_, _, err = pool.Spawn(ctx, func(ctx context.Context, _ ...any) ([]any, error) {
		res.Yield(ctx)
		woken = true
		return nil, nil
	})
	r.NoError(err)

	r.NoError(closed.Close())
	r.NoError(res.Resume(ctx))
	r.True(woken)
}

func TestResumableCombinesErrors(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	res := NewResumable()
	errA := errors.New("A")
	errB := errors.New("B")

	failing := func(err error) *coro.Coroutine {
		co := coro.New(ctx, func(ctx context.Context, _ ...any) ([]any, error) {
			res.Yield(ctx)
			return nil, err
		})
		_, startErr := co.Resume(ctx)
		r.NoError(startErr)
		return co
	}
	a := failing(errA)
	b := failing(errB)

	err := res.Resume(ctx)
	r.ErrorIs(err, errA)
	r.ErrorIs(err, errB)
	r.Equal(coro.StatusDead, a.Status())
	r.Equal(coro.StatusDead, b.Status())
}

func TestResumableForeignResumeKeepsPoolUsable(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	pool, _ := newTestPool(t, Config{})
	res := NewResumable()

	h, _, err := pool.Spawn(ctx, func(ctx context.Context, _ ...any) ([]any, error) {
		return res.Yield(ctx), nil
	})
	r.NoError(err)

	_, err = h.Resume(ctx, "foreign")
	r.ErrorIs(err, ErrForeignResume)
	r.Empty(res.waiters)
	r.Equal(1, pool.Stats().Idle)

	r.NoError(res.Resume(ctx, "v"))
	r.Equal(1, pool.Stats().Idle)
	requireIdleSuspended(t, pool)

	next, out, err := pool.Spawn(ctx, returning("ok"))
	r.NoError(err)
	r.Equal([]any{"ok"}, out)
	r.Equal(h.ID(), next.ID())
}
