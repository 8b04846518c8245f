package coro

import (
	"context"
	"errors"
	"unsafe"

	"code.hybscloud.com/atomix"
)

var (
	// ErrDead is returned when resuming a coroutine that has finished
	// or was closed.
	ErrDead = errors.New("cannot resume dead coroutine")

	// ErrNotSuspended is returned when resuming a coroutine that is
	// running or has resumed another coroutine.
	ErrNotSuspended = errors.New("cannot resume non-suspended coroutine")

	// ErrCloseActive is returned when closing a coroutine that is on
	// the current call chain.
	ErrCloseActive = errors.New("cannot close a running coroutine")

	// ErrYieldOutside is the panic value of Yield when the context is
	// not bound to the running coroutine.
	ErrYieldOutside = errors.New("attempt to yield from outside a coroutine")

	// ErrClosed is the panic value used to unwind a coroutine that is
	// being closed. It surfaces from Yield inside the coroutine.
	ErrClosed = errors.New("coro: coroutine closed")

	_ unsafe.Pointer
)

// coroutine represents a native Go coroutine instance. It's an opaque
// struct used by the runtime functions.
type coroutine struct{}

//go:linkname newcoro runtime.newcoro
func newcoro(func(*coroutine)) *coroutine

//go:linkname coroswitch runtime.coroswitch
func coroswitch(*coroutine)

// Func is the body of a coroutine. The context is bound to the
// coroutine executing fn, so Yield(ctx, ...) suspends it. Arguments of
// the first resumption are passed as args; the returned values are
// handed to the final resumer.
type Func func(ctx context.Context, args ...any) ([]any, error)

// Resumer is anything that can be resumed with a list of values.
type Resumer interface {
	Resume(ctx context.Context, args ...any) ([]any, error)
}

// Coroutine is a stackful cooperative execution context. Control moves
// between a coroutine and its resumer synchronously: Resume blocks
// until the coroutine yields or finishes, and only one side of the
// switch runs at a time.
//
// A Coroutine is not safe for concurrent use. All coroutines resumed
// from one another form a single cooperative chain.
type Coroutine struct {
	c        *coroutine
	fn       Func
	ctx      context.Context
	id       uint32
	gid      uint64
	status   Status
	transfer []any
	err      error
	closing  bool
}

type ctxKey struct{}

var serial atomix.Uint32

// New creates a suspended coroutine running fn. The first call to
// Resume starts fn with the resume arguments.
func New(ctx context.Context, fn Func) *Coroutine {
	co := &Coroutine{
		fn:     fn,
		id:     serial.Add(1),
		status: StatusSuspended,
	}
	co.ctx = WithCoroutine(ctx, co)
	co.c = newcoro(co.run)
	return co
}

// WithCoroutine returns a copy of ctx bound to co. Yield and Current
// use the binding to find the coroutine to suspend.
func WithCoroutine(ctx context.Context, co *Coroutine) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, co)
}

// Current returns the coroutine bound to ctx, or nil.
func Current(ctx context.Context) *Coroutine {
	if ctx == nil {
		return nil
	}
	co, _ := ctx.Value(ctxKey{}).(*Coroutine)
	return co
}

func (co *Coroutine) run(*coroutine) {
	co.gid = goroutineID()
	defer func() {
		if p := recover(); p != nil {
			co.transfer = nil
			if !co.closing || !isCloseSignal(p) {
				co.err = NewPanicError(p)
			}
		}
		co.status = StatusDead
	}()

	if co.closing {
		return
	}

	args := co.transfer
	co.transfer = nil
	out, err := co.fn(co.ctx, args...)
	if err != nil {
		out = nil
	}
	co.transfer, co.err = out, err
}

// Resume starts or continues the coroutine with args. It returns the
// values passed to Yield, or the values returned by the body once it
// finishes. A body that returns an error or panics reports it here,
// with panics wrapped as *PanicError.
//
// If ctx is bound to a running coroutine, that coroutine has status
// StatusNormal until Resume returns.
func (co *Coroutine) Resume(ctx context.Context, args ...any) ([]any, error) {
	switch co.status {
	case StatusDead:
		return nil, ErrDead
	case StatusRunning, StatusNormal:
		return nil, ErrNotSuspended
	}

	caller := Current(ctx)
	if caller != nil && caller.status == StatusRunning {
		caller.status = StatusNormal
	} else {
		caller = nil
	}

	co.status = StatusRunning
	co.transfer = args
	coroswitch(co.c)

	if caller != nil {
		caller.status = StatusRunning
	}

	out := co.transfer
	co.transfer = nil
	if co.status == StatusDead && co.err != nil {
		return nil, co.err
	}
	return out, nil
}

// Yield suspends the coroutine bound to ctx, handing vals to its
// resumer, and returns the arguments of the next resumption.
//
// Yield panics with ErrYieldOutside if ctx is not bound to the running
// coroutine, and with ErrClosed if the coroutine is closed while
// suspended.
func Yield(ctx context.Context, vals ...any) []any {
	co := Current(ctx)
	if co == nil || co.status != StatusRunning {
		panic(ErrYieldOutside)
	}
	return co.yield(vals)
}

func (co *Coroutine) yield(vals []any) []any {
	if co.closing {
		panic(ErrClosed)
	}
	co.transfer = vals
	co.status = StatusSuspended
	coroswitch(co.c)
	if co.closing {
		panic(ErrClosed)
	}
	in := co.transfer
	co.transfer = nil
	return in
}

// Close terminates a suspended coroutine. The body is unwound from its
// suspension point, so its deferred calls run, and the coroutine is
// dead afterwards. An error raised while unwinding is returned.
//
// Closing a dead coroutine is a no-op. Closing a coroutine that is
// running or normal returns ErrCloseActive and changes nothing.
func (co *Coroutine) Close() error {
	switch co.status {
	case StatusDead:
		return nil
	case StatusRunning, StatusNormal:
		return ErrCloseActive
	}

	co.closing = true
	co.status = StatusRunning
	co.transfer = nil
	coroswitch(co.c)
	co.transfer = nil
	return co.err
}

// Closing reports whether the coroutine is being unwound by Close.
// Code that recovers panics inside a coroutine should re-panic while
// Closing is true.
func (co *Coroutine) Closing() bool {
	return co.closing
}

// Status returns the coroutine's current state.
func (co *Coroutine) Status() Status {
	return co.status
}

// Err returns the error the body finished with, if any.
func (co *Coroutine) Err() error {
	if co.status != StatusDead {
		return nil
	}
	return co.err
}

// ID returns the coroutine's serial number.
func (co *Coroutine) ID() uint32 {
	return co.id
}

func isCloseSignal(p any) bool {
	err, ok := p.(error)
	return ok && errors.Is(err, ErrClosed)
}
