package fiber

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webriots/fiber/coro"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

// newTestPool returns a pool logging into an observer.
func newTestPool(t *testing.T, cfg Config) (*Pool, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	if cfg.Logger == nil {
		cfg.Logger = zap.New(core)
	}
	return NewPool(&cfg), logs
}

func returning(values ...any) Func {
	return func(context.Context, ...any) ([]any, error) {
		return values, nil
	}
}

// requireIdleSuspended checks that every idle fiber waits for an
// assignment.
func requireIdleSuspended(t *testing.T, p *Pool) {
	t.Helper()
	for _, co := range p.free {
		require.Equal(t, coro.StatusSuspended, co.Status(), "idle fiber %d", co.ID())
	}
}

// recovered runs f and returns the value it panicked with.
func recovered(f func()) (v any) {
	defer func() { v = recover() }()
	f()
	return nil
}

type failure struct {
	fiberID uint32
	err     error
	trace   string
}

type recordingHandler struct {
	failures []failure
}

func (h *recordingHandler) HandleFailure(_ context.Context, fiberID uint32, err error, trace string) {
	h.failures = append(h.failures, failure{fiberID: fiberID, err: err, trace: trace})
}
