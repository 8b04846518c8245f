package fiber

import (
	"context"

	"github.com/webriots/fiber/coro"
)

// Untracked assigns fn to a pooled fiber and returns the fiber itself.
// The first Resume on the fiber passes its arguments to fn. The outcome
// is discarded: failures go to the pool's FailureHandler, and the fiber
// returns to the pool as soon as fn finishes, so the caller must not
// use it afterwards.
func (p *Pool) Untracked(ctx context.Context, fn Func) *coro.Coroutine {
	co := p.acquire()
	p.assign(ctx, co, &assignment{ctx: ctx, fn: fn})
	return co
}

// Go runs fn with args on a pooled fiber until fn first yields or
// finishes. Work that yields must arrange its own resumption, for
// instance through coro.Current on its context.
func (p *Pool) Go(ctx context.Context, fn Func, args ...any) {
	co := p.Untracked(ctx, fn)
	if _, err := co.Resume(ctx, args...); err != nil {
		p.fatal(co, err)
	}
}

// continuer is the part of Controller used by deferred resumption.
type continuer interface {
	Continue(ctx context.Context, args ...any) []any
}

// continuation returns an untracked fiber that continues c with the
// arguments of its first resumption. Schedulers only ever hold the
// helper fiber, never c itself.
func (p *Pool) continuation(c continuer) *coro.Coroutine {
	return p.Untracked(context.Background(), func(ctx context.Context, args ...any) ([]any, error) {
		return c.Continue(ctx, args...), nil
	})
}

func (p *Pool) scheduler() Scheduler {
	if p.cfg.Scheduler == nil {
		panic(ErrNoScheduler)
	}
	return p.cfg.Scheduler
}
