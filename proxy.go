package fiber

import (
	"context"
	"errors"
	"time"

	"github.com/webriots/fiber/coro"
)

// Proxy gives a coroutine created outside the pool the same interface
// as a Handle. Nothing is pooled or captured: calls go straight to the
// coroutine.
type Proxy struct {
	pool *Pool
	co   *coro.Coroutine
}

// Wrap returns a Proxy for co. Defer and Delay use the pool's
// Scheduler and helper fibers.
func (p *Pool) Wrap(co *coro.Coroutine) *Proxy {
	return &Proxy{pool: p, co: co}
}

// Coroutine returns the wrapped coroutine.
func (x *Proxy) Coroutine() *coro.Coroutine {
	return x.co
}

// Resume resumes the wrapped coroutine with args.
func (x *Proxy) Resume(ctx context.Context, args ...any) ([]any, error) {
	return x.co.Resume(ctx, args...)
}

// Continue is Resume that panics with the error instead of returning
// it.
func (x *Proxy) Continue(ctx context.Context, args ...any) []any {
	values, err := x.co.Resume(ctx, args...)
	if err != nil {
		panic(err)
	}
	return values
}

// Status reports the state of the wrapped coroutine.
func (x *Proxy) Status() coro.Status {
	return x.co.Status()
}

// Close unwinds the wrapped coroutine. See coro.Coroutine.Close.
func (x *Proxy) Close() error {
	return x.co.Close()
}

// Cancel is Close that panics with the error instead of returning it.
func (x *Proxy) Cancel() {
	if err := x.co.Close(); err != nil {
		panic(err)
	}
}

// Defer resumes the coroutine with args at the next cycle of the
// pool's Scheduler. It does nothing once the coroutine is dead.
func (x *Proxy) Defer(args ...any) {
	if x.co.Status() == coro.StatusDead {
		return
	}
	x.pool.scheduler().Defer(x.pool.continuation(x), args...)
}

// Delay resumes the coroutine with args after d. It does nothing once
// the coroutine is dead.
func (x *Proxy) Delay(d time.Duration, args ...any) {
	if x.co.Status() == coro.StatusDead {
		return
	}
	x.pool.scheduler().Delay(d, x.pool.continuation(x), args...)
}

// Traceback returns the panic stack of a coroutine that died from a
// panic, or the live stack of a running one.
func (x *Proxy) Traceback(message string, level int) string {
	if level < 0 {
		panic(ErrNegativeLevel)
	}
	trace := x.co.Traceback()
	var pe *coro.PanicError
	if errors.As(x.co.Err(), &pe) {
		trace = string(pe.Stack)
	}
	return formatTraceback(trace, message, level)
}
