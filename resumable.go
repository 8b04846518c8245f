package fiber

import (
	"context"

	"github.com/webriots/fiber/coro"
	"go.uber.org/multierr"
)

// Resumable is a single-fire rendezvous. Coroutines park on it with
// Yield until Resume is called once; Resume wakes every parked
// coroutine with its arguments, and later Yield calls return those
// arguments without parking.
type Resumable struct {
	resumed bool
	values  []any
	waiters []*coro.Coroutine
}

// wake is the value a Resumable passes to the coroutines it wakes.
type wake struct {
	from *Resumable
}

// NewResumable returns a Resumable that has not been resumed.
func NewResumable() *Resumable {
	return &Resumable{}
}

// Yield parks the coroutine bound to ctx until Resume is called and
// returns the Resume arguments. After Resume it returns immediately.
//
// Yield panics with coro.ErrYieldOutside when ctx is not bound to the
// running coroutine, and with ErrForeignResume when the parked
// coroutine is resumed by anything other than this Resumable.
func (r *Resumable) Yield(ctx context.Context) []any {
	co := coro.Current(ctx)
	if co == nil || co.Status() != coro.StatusRunning {
		panic(coro.ErrYieldOutside)
	}
	if r.resumed {
		return r.values
	}

	r.waiters = append(r.waiters, co)
	in := coro.Yield(ctx)
	if w, ok := wakeOf(in); !ok || w.from != r {
		r.drop(co)
		panic(ErrForeignResume)
	}
	return r.values
}

func wakeOf(in []any) (wake, bool) {
	if len(in) != 1 {
		return wake{}, false
	}
	w, ok := in[0].(wake)
	return w, ok
}

// drop removes co from the parked coroutines.
func (r *Resumable) drop(co *coro.Coroutine) {
	for i, w := range r.waiters {
		if w == co {
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			return
		}
	}
}

// Resume stores args and wakes the parked coroutines in the order they
// parked. Waiters that died in the meantime are skipped. Errors returned
// by the woken coroutines are combined.
//
// Resume panics with ErrAlreadyResumed when called a second time.
func (r *Resumable) Resume(ctx context.Context, args ...any) error {
	if r.resumed {
		panic(ErrAlreadyResumed)
	}
	r.resumed = true
	r.values = args

	waiters := r.waiters
	r.waiters = nil

	var errs error
	for _, co := range waiters {
		if co.Status() == coro.StatusDead {
			continue
		}
		_, err := co.Resume(ctx, wake{from: r})
		errs = multierr.Append(errs, err)
	}
	return errs
}

// Resumed reports whether Resume has been called.
func (r *Resumable) Resumed() bool {
	return r.resumed
}

// Pair returns the Yield and Resume methods as functions.
func (r *Resumable) Pair() (func(context.Context) []any, func(context.Context, ...any) error) {
	return r.Yield, r.Resume
}
