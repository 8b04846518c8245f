// Package scheduler provides a cooperative run loop that resumes
// coroutines at cycle boundaries or after a delay.
//
// A Loop implements fiber.Scheduler. The goroutine that calls RunCycle,
// Run or RunUntilIdle performs every resumption; other goroutines may
// enqueue work concurrently.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"code.hybscloud.com/iox"
	"github.com/benbjohnson/clock"
	"github.com/webriots/fiber/coro"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Loop holds work for the next cycle and a heap of delayed work.
type Loop struct {
	mu     sync.Mutex
	clock  clock.Clock
	logger *zap.Logger
	next   []entry
	timers timerHeap
	seq    uint64
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the time source used for delays. Tests pass a
// clock.Mock.
func WithClock(c clock.Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithLogger sets the logger for resume failures.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// New creates an empty Loop using the wall clock and no logging unless
// configured otherwise.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	heap.Init(&l.timers)
	return l
}

// Defer queues r to be resumed with args at the next cycle.
func (l *Loop) Defer(r coro.Resumer, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next = append(l.next, entry{r: r, args: args})
}

// Delay queues r to be resumed with args at the first cycle that starts
// at or after d from now. Entries due at the same time run in the order
// they were queued.
func (l *Loop) Delay(d time.Duration, r coro.Resumer, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	heap.Push(&l.timers, &timer{
		entry: entry{r: r, args: args},
		at:    l.clock.Now().Add(d),
		seq:   l.seq,
	})
}

// Pending returns the number of queued and delayed entries.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.next) + len(l.timers)
}

// take removes the work of one cycle: everything deferred so far, then
// every timer that is due.
func (l *Loop) take() []entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	work := l.next
	l.next = nil

	now := l.clock.Now()
	for t := l.timers.peek(); t != nil && !t.at.After(now); t = l.timers.peek() {
		heap.Pop(&l.timers)
		work = append(work, t.entry)
	}
	return work
}

// RunCycle runs one cycle and returns the number of resumptions it
// made. Work queued while the cycle runs waits for the next one. Resume
// errors are logged and returned combined.
func (l *Loop) RunCycle(ctx context.Context) (int, error) {
	work := l.take()

	var errs error
	for i, e := range work {
		if _, err := e.r.Resume(ctx, e.args...); err != nil {
			l.logger.Warn("scheduled resume failed",
				zap.Int("entry", i),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}
	return len(work), errs
}

// Run cycles until ctx is done, backing off while there is nothing to
// run. Resume errors are only logged. It returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	var bo iox.Backoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, _ := l.RunCycle(ctx)
		if n == 0 {
			bo.Wait()
			continue
		}
		bo.Reset()
	}
}

// RunUntilIdle cycles until nothing is queued or delayed, waiting on
// the clock for the earliest timer when only timers remain. It returns
// the combined resume errors, or ctx.Err() if ctx ends first.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	var errs error
	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		n, err := l.RunCycle(ctx)
		errs = multierr.Append(errs, err)
		if n > 0 {
			continue
		}

		wait, ok := l.untilNextTimer()
		if !ok {
			return errs
		}
		t := l.clock.Timer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return multierr.Append(errs, ctx.Err())
		case <-t.C:
		}
	}
}

// untilNextTimer reports how long until the earliest timer is due, or
// false when no work remains at all.
func (l *Loop) untilNextTimer() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.next) > 0 {
		return 0, true
	}
	t := l.timers.peek()
	if t == nil {
		return 0, false
	}
	return max(t.at.Sub(l.clock.Now()), 0), true
}
