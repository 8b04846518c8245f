// Package coro provides stackful coroutines for Go, enabling
// cooperative multitasking with functions that can suspend their
// execution and resume later with new input.
//
// A coroutine is created with New and driven with Resume. Inside the
// body, Yield suspends the coroutine, hands values to the resumer and
// returns the values of the next Resume. The body finds its coroutine
// through the context it receives; Current and WithCoroutine expose
// that binding.
//
// Every coroutine has a Status: suspended, running, normal (it resumed
// another coroutine and is waiting for it) or dead. Close unwinds a
// suspended coroutine so that its deferred calls run and it can never
// be resumed again.
//
// Panics inside a coroutine are recovered and reported by Resume as
// *PanicError values carrying the stack of the panic, so a failing
// coroutine never takes down its resumer.
package coro
