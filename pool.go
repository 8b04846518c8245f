package fiber

import (
	"context"

	"github.com/webriots/fiber/coro"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Func is the work run on a fiber. The context is bound to the fiber,
// so coro.Yield(ctx, ...) suspends it.
type Func = coro.Func

// Stats is a snapshot of pool counters.
type Stats struct {
	// Created counts fibers created because the free list was empty.
	Created int
	// Reused counts fibers taken from the free list.
	Reused int
	// Idle is the current free list size.
	Idle int
}

// Pool recycles fibers. Idle fibers sit on a free list used as a stack,
// so the most recently released fiber is handed out first.
//
// A Pool belongs to a single cooperative chain and is not safe for
// concurrent use by multiple goroutines.
type Pool struct {
	cfg    Config
	logger *zap.Logger
	free   []*coro.Coroutine
	closed bool
	stats  Stats
}

// NewPool creates an empty pool. A nil cfg uses DefaultConfig.
func NewPool(cfg *Config) *Pool {
	c := cfg.withDefaults()
	return &Pool{
		cfg:    c,
		logger: c.Logger,
	}
}

// acquire pops an idle fiber or creates one. The fiber is returned
// waiting for its assignment. Entries that are no longer suspended are
// dropped.
func (p *Pool) acquire() *coro.Coroutine {
	for n := len(p.free); n > 0; n = len(p.free) {
		co := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		if co.Status() != coro.StatusSuspended {
			p.logger.Error("dropped unusable idle fiber",
				zap.Uint32("fiber", co.ID()),
				zap.Stringer("status", co.Status()),
			)
			p.cfg.Metrics.RecordIdleFibers(len(p.free))
			continue
		}
		p.stats.Reused++
		p.cfg.Metrics.RecordFiberReused()
		p.cfg.Metrics.RecordIdleFibers(len(p.free))
		return co
	}

	co := coro.New(context.Background(), p.body)
	if _, err := co.Resume(context.Background()); err != nil {
		p.fatal(co, err)
	}
	p.stats.Created++
	p.cfg.Metrics.RecordFiberCreated()
	p.logger.Debug("fiber created", zap.Uint32("fiber", co.ID()))
	return co
}

// release puts a fiber back on the free list. The fiber must be about
// to suspend waiting for its next assignment.
func (p *Pool) release(co *coro.Coroutine) {
	p.free = append(p.free, co)
	p.cfg.Metrics.RecordIdleFibers(len(p.free))
}

// assign hands a to an acquired fiber, leaving it waiting for the
// call arguments.
func (p *Pool) assign(ctx context.Context, co *coro.Coroutine, a *assignment) {
	if _, err := co.Resume(ctx, a); err != nil {
		p.fatal(co, err)
	}
}

// fatal reports a defect of the pooling machinery. It never returns.
func (p *Pool) fatal(co *coro.Coroutine, err error) {
	p.logger.Error("fiber pool internal failure",
		zap.Uint32("fiber", co.ID()),
		zap.Error(err),
		zap.Stack("stack"),
	)
	panic(&InternalError{FiberID: co.ID(), Err: err})
}

// Close terminates every idle fiber. Fibers still busy finish their
// assignment and then exit instead of returning to the free list.
// Errors raised while unwinding idle fibers are combined.
func (p *Pool) Close() error {
	p.closed = true
	free := p.free
	p.free = nil

	var errs error
	for _, co := range free {
		errs = multierr.Append(errs, co.Close())
		p.cfg.Metrics.RecordFiberClosed()
	}
	p.cfg.Metrics.RecordIdleFibers(0)
	p.logger.Info("fiber pool closed", zap.Int("fibers", len(free)))
	return errs
}

// Stats returns the pool counters.
func (p *Pool) Stats() Stats {
	s := p.stats
	s.Idle = len(p.free)
	return s
}
