package fiber

import (
	"context"
	"runtime/debug"

	"github.com/webriots/fiber/coro"
)

// assignment is the work delivered to a fiber body. done is nil for
// untracked fibers.
type assignment struct {
	ctx  context.Context
	fn   Func
	done reporter
}

// reporter consumes the outcome of an assignment.
type reporter interface {
	report(out outcome)
}

// outcome of one assignment; err is nil on success.
type outcome struct {
	values []any
	err    error
	trace  string
}

// body is the loop run by every pooled fiber. Each cycle parks twice:
// once for the assignment and once for the call arguments. The outcome
// is reported before the fiber goes back on the free list, whether the
// callback succeeded or not.
func (p *Pool) body(ctx context.Context, _ ...any) ([]any, error) {
	self := coro.Current(ctx)
	for {
		a, ok := nextAssignment(coro.Yield(ctx))
		if !ok {
			return nil, errBadAssignment
		}
		args := coro.Yield(ctx)

		out := invoke(a, self, args)
		if self.Closing() {
			// The callback swallowed the close; the fiber must still exit.
			return nil, nil
		}
		p.cfg.Metrics.RecordOutcome(a.done != nil, out.err)
		if a.done != nil {
			a.done.report(out)
		} else if out.err != nil {
			p.cfg.FailureHandler.HandleFailure(a.ctx, self.ID(), out.err, out.trace)
		}

		if p.closed {
			p.cfg.Metrics.RecordFiberClosed()
			return nil, nil
		}
		p.release(self)
	}
}

func nextAssignment(in []any) (*assignment, bool) {
	if len(in) != 1 {
		return nil, false
	}
	a, ok := in[0].(*assignment)
	return a, ok && a != nil
}

// invoke runs the callback, turning returned errors and panics into a
// failed outcome. The unwinding of a closing fiber passes through.
func invoke(a *assignment, self *coro.Coroutine, args []any) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			if self.Closing() {
				panic(r)
			}
			pe := coro.NewPanicError(r)
			out = outcome{err: pe, trace: string(pe.Stack)}
		}
	}()

	values, err := a.fn(coro.WithCoroutine(a.ctx, self), args...)
	if err != nil {
		return outcome{err: err, trace: string(debug.Stack())}
	}
	return outcome{values: values}
}
