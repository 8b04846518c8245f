// Package fiber provides a pool of reusable coroutines ("fibers") for
// spawning short-lived cooperative tasks without paying for a fresh
// execution context each time.
//
// A Pool hands out fibers that run a persistent body loop: the loop
// waits for an assignment, waits for its arguments, runs the callback
// with failure isolation, reports the outcome and then returns the
// fiber to the pool, ready for the next assignment.
//
// Tracked work goes through a Handle, created with Pool.New or
// Pool.Spawn. A Handle resumes, inspects, closes and reschedules its
// fiber, and becomes permanently inert once the assignment finishes,
// so a stale Handle never observes a fiber that was recycled for other
// work. Untracked work (Pool.Untracked, Pool.Go) skips the Handle and
// discards the outcome.
//
// Handle.Defer and Handle.Delay resume a fiber later through a
// Scheduler, such as the run loop in the scheduler package.
//
// Resumable splits a synchronization point into a Yield that parks the
// calling coroutine and a one-shot Resume that wakes every parked
// coroutine with the same values.
//
// Everything here follows the cooperative model of package coro: a
// Pool, its Handles and its fibers belong to one chain of coroutines
// and must not be used from several goroutines at once.
package fiber
