package coro

import (
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
)

// PanicError carries a value recovered from a panic together with the
// stack of the panicking goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("%v", p.Value)
}

// ErrorWithStack returns the panic message followed by its stack.
func (p *PanicError) ErrorWithStack() string {
	return fmt.Sprintf("%v\n\n%s", p.Value, p.Stack)
}

// Unwrap returns the panic value when it is an error.
func (p *PanicError) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

// DebugString renders the error chain depth first, writing each
// PanicError with its stack. Errors already visited are skipped.
func (p *PanicError) DebugString() string {
	var sb strings.Builder
	visited := map[error]struct{}{}
	pending := []error{p}
	for len(pending) > 0 {
		e := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if e == nil {
			continue
		}
		if _, ok := visited[e]; ok {
			continue
		}
		visited[e] = struct{}{}

		if pe, ok := e.(*PanicError); ok {
			sb.WriteString(pe.ErrorWithStack())
		} else {
			sb.WriteString(e.Error())
		}
		pending = append(pending, children(e)...)
	}
	return sb.String()
}

// children returns the errors wrapped by e, last first, so popping
// them off a stack visits them in order.
func children(e error) []error {
	var out []error
	switch u := e.(type) {
	case interface{ Unwrap() []error }:
		out = append(out, u.Unwrap()...)
	case interface{ Unwrap() error }:
		out = append(out, u.Unwrap())
	}
	slices.Reverse(out)
	return out
}

// NewPanicError wraps a recovered value, capturing the current stack.
// Call it from the deferred function that recovered v so the stack
// still contains the panicking frames.
func NewPanicError(v any) *PanicError {
	if pe, ok := v.(*PanicError); ok {
		return pe
	}
	return &PanicError{
		Value: v,
		Stack: debug.Stack(),
	}
}
