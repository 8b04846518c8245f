package coro

// Status is the lifecycle state of a coroutine.
type Status uint8

const (
	// StatusSuspended: created and not started, or parked in Yield.
	StatusSuspended Status = iota
	// StatusRunning: currently executing.
	StatusRunning
	// StatusNormal: active, but waiting on a coroutine it resumed.
	StatusNormal
	// StatusDead: finished, failed or closed.
	StatusDead
)

func (s Status) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusNormal:
		return "normal"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}
