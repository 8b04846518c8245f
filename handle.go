package fiber

import (
	"context"
	"time"

	"github.com/webriots/fiber/coro"
)

// Controller is the interface shared by Handle and Proxy.
type Controller interface {
	Resume(ctx context.Context, args ...any) ([]any, error)
	Continue(ctx context.Context, args ...any) []any
	Status() coro.Status
	Close() error
	Cancel()
	Defer(args ...any)
	Delay(d time.Duration, args ...any)
	Traceback(message string, level int) string
}

var (
	_ Controller = (*Handle)(nil)
	_ Controller = (*Proxy)(nil)
)

// Handle tracks one assignment running on a pooled fiber.
//
// Once the assignment finishes, the handle drops its fiber reference
// and the fiber returns to the pool; from then on every operation
// behaves as on a dead coroutine and never reaches the recycled fiber.
type Handle struct {
	pool     *Pool
	co       *coro.Coroutine
	id       uint32
	finished bool
	awaiting bool
	result   outcome
	trace    string
}

// New assigns fn to a pooled fiber without starting it. The first
// Resume passes its arguments to fn.
func (p *Pool) New(ctx context.Context, fn Func) *Handle {
	co := p.acquire()
	h := &Handle{pool: p, co: co, id: co.ID()}
	p.assign(ctx, co, &assignment{ctx: ctx, fn: fn, done: h})
	return h
}

// Spawn assigns fn to a pooled fiber and resumes it with args right
// away, returning the handle with the result of that first Resume.
func (p *Pool) Spawn(ctx context.Context, fn Func, args ...any) (*Handle, []any, error) {
	h := p.New(ctx, fn)
	out, err := h.Resume(ctx, args...)
	return h, out, err
}

func (h *Handle) report(out outcome) {
	h.finished = true
	h.co = nil
	if out.err != nil {
		h.trace = out.trace
	}
	if h.awaiting {
		h.result = out
	}
}

// ID returns the serial of the fiber the assignment ran on.
func (h *Handle) ID() uint32 {
	return h.id
}

// Resume starts or continues the assignment with args.
//
// It returns the values the callback yielded, or, when the assignment
// finishes during this call, the callback's results or its error. A
// finished handle returns coro.ErrDead and a fiber already on the call
// chain returns coro.ErrNotSuspended. A failure of the pool machinery
// is logged and raised as *InternalError.
func (h *Handle) Resume(ctx context.Context, args ...any) ([]any, error) {
	if h.finished {
		return nil, coro.ErrDead
	}
	co := h.co
	switch co.Status() {
	case coro.StatusDead:
		h.finished = true
		h.co = nil
		return nil, coro.ErrDead
	case coro.StatusRunning, coro.StatusNormal:
		return nil, coro.ErrNotSuspended
	}

	h.awaiting = true
	values, err := co.Resume(ctx, args...)
	h.awaiting = false

	if err != nil {
		h.finished = true
		h.co = nil
		h.pool.fatal(co, err)
	}

	if h.finished {
		out := h.result
		h.result = outcome{}
		return out.values, out.err
	}
	return values, nil
}

// Continue is Resume that panics with the error instead of returning
// it.
func (h *Handle) Continue(ctx context.Context, args ...any) []any {
	values, err := h.Resume(ctx, args...)
	if err != nil {
		panic(err)
	}
	return values
}

// Status reports the state of the assignment's fiber, or StatusDead
// once the assignment has finished.
func (h *Handle) Status() coro.Status {
	if h.finished {
		return coro.StatusDead
	}
	return h.co.Status()
}

// Close terminates the assignment. The fiber is unwound, so deferred
// calls of the callback run, and it never returns to the pool.
//
// Closing a finished handle succeeds without effect. A fiber on the
// current call chain cannot be closed: Close returns
// coro.ErrCloseActive and the handle is unchanged.
func (h *Handle) Close() error {
	if h.finished {
		return nil
	}
	co := h.co
	err := co.Close()
	if co.Status() == coro.StatusDead {
		h.finished = true
		h.co = nil
		h.pool.cfg.Metrics.RecordFiberClosed()
	}
	return err
}

// Cancel is Close that panics with the error instead of returning it.
func (h *Handle) Cancel() {
	if err := h.Close(); err != nil {
		panic(err)
	}
}

// Defer continues the assignment with args at the next cycle of the
// pool's Scheduler. It does nothing once the assignment finished.
func (h *Handle) Defer(args ...any) {
	if h.finished {
		return
	}
	h.pool.scheduler().Defer(h.pool.continuation(h), args...)
}

// Delay continues the assignment with args after d. It does nothing
// once the assignment finished.
func (h *Handle) Delay(d time.Duration, args ...any) {
	if h.finished {
		return
	}
	h.pool.scheduler().Delay(d, h.pool.continuation(h), args...)
}

// Traceback returns a stack trace of the assignment: the trace
// captured when it failed, or the live stack of its fiber. The first
// level-1 lines are dropped and a non-empty message is put on a line
// of its own in front. Traceback panics with ErrNegativeLevel if level
// is negative.
func (h *Handle) Traceback(message string, level int) string {
	if level < 0 {
		panic(ErrNegativeLevel)
	}
	if h.finished {
		return formatTraceback(h.trace, message, level)
	}
	return formatTraceback(h.co.Traceback(), message, level)
}
