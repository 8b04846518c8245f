package fiber

import (
	"context"
	"time"

	"github.com/webriots/fiber/coro"
	"go.uber.org/zap"
)

// Scheduler resumes fibers at a later point of the host's run loop.
type Scheduler interface {
	// Defer resumes r with args at the next cycle boundary.
	Defer(r coro.Resumer, args ...any)

	// Delay resumes r with args once d has elapsed.
	Delay(d time.Duration, r coro.Resumer, args ...any)
}

// FailureHandler receives failures of untracked fibers, whose outcome
// has no other consumer.
//
// Implementations are called on the failing fiber and must not block.
type FailureHandler interface {
	HandleFailure(ctx context.Context, fiberID uint32, err error, trace string)
}

// DefaultFailureHandler logs failures at warning level.
type DefaultFailureHandler struct {
	Logger *zap.Logger
}

// HandleFailure logs err with the fiber id and trace.
func (h *DefaultFailureHandler) HandleFailure(ctx context.Context, fiberID uint32, err error, trace string) {
	logger := h.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Warn("untracked fiber failed",
		zap.Uint32("fiber", fiberID),
		zap.Error(err),
		zap.String("trace", trace),
	)
}

// Config holds the collaborators of a Pool. All fields are optional.
type Config struct {
	// Logger receives pool diagnostics. Defaults to a production zap
	// logger.
	Logger *zap.Logger

	// Metrics records pool activity. Defaults to NilMetrics.
	Metrics Metrics

	// Scheduler backs Handle.Defer and Handle.Delay. Without one those
	// calls panic with ErrNoScheduler.
	Scheduler Scheduler

	// FailureHandler receives failures of untracked fibers. Defaults to
	// DefaultFailureHandler using Logger.
	FailureHandler FailureHandler
}

// DefaultConfig returns a config with default collaborators.
func DefaultConfig() *Config {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return &Config{
		Logger:         logger,
		Metrics:        &NilMetrics{},
		FailureHandler: &DefaultFailureHandler{Logger: logger},
	}
}

func (c *Config) withDefaults() Config {
	cfg := Config{}
	if c != nil {
		cfg = *c
	}
	if cfg.Logger == nil {
		cfg.Logger = DefaultConfig().Logger
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NilMetrics{}
	}
	if cfg.FailureHandler == nil {
		cfg.FailureHandler = &DefaultFailureHandler{Logger: cfg.Logger}
	}
	return cfg
}
