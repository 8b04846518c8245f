// Package prometheus exports fiber pool metrics as Prometheus
// collectors.
package prometheus

import (
	"errors"
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/webriots/fiber"
	"github.com/webriots/fiber/coro"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// Pool is added as the constant "pool" label when not empty, so
	// several pools can share a registry.
	Pool string
}

// MetricsExporter adapts fiber.Metrics to Prometheus collectors.
type MetricsExporter struct {
	createdTotal  prom.Counter
	reusedTotal   prom.Counter
	closedTotal   prom.Counter
	outcomesTotal *prom.CounterVec
	idle          prom.Gauge
}

var _ fiber.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers the collectors. Collectors
// already registered under the same names are reused.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "fiber"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	var labels prom.Labels
	if opts.Pool != "" {
		labels = prom.Labels{"pool": opts.Pool}
	}

	created := prom.NewCounter(prom.CounterOpts{
		Namespace:   namespace,
		Name:        "created_total",
		Help:        "Total number of fibers created because the free list was empty.",
		ConstLabels: labels,
	})
	reused := prom.NewCounter(prom.CounterOpts{
		Namespace:   namespace,
		Name:        "reused_total",
		Help:        "Total number of fibers taken from the free list.",
		ConstLabels: labels,
	})
	closed := prom.NewCounter(prom.CounterOpts{
		Namespace:   namespace,
		Name:        "closed_total",
		Help:        "Total number of fibers that were closed or exited.",
		ConstLabels: labels,
	})
	outcomes := prom.NewCounterVec(prom.CounterOpts{
		Namespace:   namespace,
		Name:        "outcomes_total",
		Help:        "Total number of finished assignments.",
		ConstLabels: labels,
	}, []string{"kind", "result"})
	idle := prom.NewGauge(prom.GaugeOpts{
		Namespace:   namespace,
		Name:        "idle",
		Help:        "Current number of idle fibers.",
		ConstLabels: labels,
	})

	var err error
	if created, err = registerCollector(reg, created); err != nil {
		return nil, err
	}
	if reused, err = registerCollector(reg, reused); err != nil {
		return nil, err
	}
	if closed, err = registerCollector(reg, closed); err != nil {
		return nil, err
	}
	if outcomes, err = registerCollector(reg, outcomes); err != nil {
		return nil, err
	}
	if idle, err = registerCollector(reg, idle); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		createdTotal:  created,
		reusedTotal:   reused,
		closedTotal:   closed,
		outcomesTotal: outcomes,
		idle:          idle,
	}, nil
}

// RecordFiberCreated counts a new fiber.
func (m *MetricsExporter) RecordFiberCreated() {
	if m == nil {
		return
	}
	m.createdTotal.Inc()
}

// RecordFiberReused counts a fiber taken from the free list.
func (m *MetricsExporter) RecordFiberReused() {
	if m == nil {
		return
	}
	m.reusedTotal.Inc()
}

// RecordIdleFibers sets the free list size.
func (m *MetricsExporter) RecordIdleFibers(n int) {
	if m == nil {
		return
	}
	m.idle.Set(float64(n))
}

// RecordFiberClosed counts a fiber that left the pool for good.
func (m *MetricsExporter) RecordFiberClosed() {
	if m == nil {
		return
	}
	m.closedTotal.Inc()
}

// RecordOutcome counts a finished assignment by kind and result.
func (m *MetricsExporter) RecordOutcome(tracked bool, err error) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(kindLabel(tracked), resultLabel(err)).Inc()
}

func kindLabel(tracked bool) string {
	if tracked {
		return "tracked"
	}
	return "untracked"
}

func resultLabel(err error) string {
	var pe *coro.PanicError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &pe):
		return "panic"
	default:
		return "error"
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
