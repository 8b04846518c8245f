package fiber

import (
	"errors"
	"fmt"
)

var (
	// ErrNoScheduler is the panic value of Defer and Delay when the
	// pool has no Scheduler configured.
	ErrNoScheduler = errors.New("fiber: no scheduler configured")

	// ErrNegativeLevel is the panic value of Traceback for a negative
	// level.
	ErrNegativeLevel = errors.New("fiber: traceback level must be non-negative")

	// ErrAlreadyResumed is the panic value of a second Resumable.Resume.
	ErrAlreadyResumed = errors.New("fiber: resumable already resumed")

	// ErrForeignResume is the panic value of Resumable.Yield when the
	// parked coroutine was woken by something other than its Resumable.
	ErrForeignResume = errors.New("fiber: resumable waiter resumed by a foreign resume")

	errBadAssignment = errors.New("fiber: body received a malformed assignment")
)

// InternalError reports a failure of the pooling machinery itself, as
// opposed to a failure of the work running on a fiber. It is raised
// with panic by the operation that observed it.
type InternalError struct {
	FiberID uint32
	Err     error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("fiber %d: internal failure: %v", e.FiberID, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
