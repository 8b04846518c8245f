package scheduler

import (
	"time"

	"github.com/webriots/fiber/coro"
)

// entry is one resumption waiting in a Loop.
type entry struct {
	r    coro.Resumer
	args []any
}

// timer is a delayed entry. seq orders timers due at the same instant
// by insertion.
type timer struct {
	entry
	at    time.Time
	seq   uint64
	index int
}

// timerHeap implements heap.Interface ordered by due time.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

func (h timerHeap) peek() *timer {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
