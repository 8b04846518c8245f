package fiber

// Metrics collects pool activity for monitoring systems.
//
// Methods are called inline on the pool's cooperative chain and should
// be fast and non-blocking.
type Metrics interface {
	// RecordFiberCreated records a fiber created because the free list
	// was empty.
	RecordFiberCreated()

	// RecordFiberReused records a fiber taken from the free list.
	RecordFiberReused()

	// RecordIdleFibers records the free list size after it changed.
	RecordIdleFibers(n int)

	// RecordFiberClosed records a fiber terminated for good.
	RecordFiberClosed()

	// RecordOutcome records a finished assignment. err is nil on
	// success.
	RecordOutcome(tracked bool, err error)
}

// NilMetrics discards everything.
type NilMetrics struct{}

func (m *NilMetrics) RecordFiberCreated()                   {}
func (m *NilMetrics) RecordFiberReused()                    {}
func (m *NilMetrics) RecordIdleFibers(n int)                {}
func (m *NilMetrics) RecordFiberClosed()                    {}
func (m *NilMetrics) RecordOutcome(tracked bool, err error) {}
