package sched

import (
	"container/heap"
	"time"
)

// Virtual is a deterministic Scheduler for tests: time only advances when
// Advance is called, and due callbacks fire in scheduled order, each running
// to completion before the next (matching the single-threaded contract
// real callers depend on).
type Virtual struct {
	now     time.Duration
	next    Handle
	pending pendingHeap
	live    map[Handle]bool
}

type pendingEntry struct {
	at  time.Duration
	seq uint64
	h   Handle
	fn  func()
}

type pendingHeap []pendingEntry

func (h pendingHeap) Len() int { return len(h) }
func (h pendingHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h pendingHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *pendingHeap) Push(x any)        { *h = append(*h, x.(pendingEntry)) }
func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// NewVirtual constructs a virtual-time scheduler starting at t=0.
func NewVirtual() *Virtual {
	return &Virtual{live: make(map[Handle]bool)}
}

// Now returns the current virtual time.
func (v *Virtual) Now() time.Duration { return v.now }

func (v *Virtual) After(d time.Duration, fn func()) Handle {
	v.next++
	h := v.next
	if d < 0 {
		d = 0
	}
	heap.Push(&v.pending, pendingEntry{at: v.now + d, seq: uint64(h), h: h, fn: fn})
	v.live[h] = true
	return h
}

func (v *Virtual) Cancel(h Handle) {
	if h == 0 {
		return
	}
	delete(v.live, h)
}

// Advance moves virtual time forward by d, running every callback due at or
// before the new time, in scheduled order, each to completion. Callbacks
// scheduled by other callbacks during this Advance are also run if they fall
// within the new time horizon.
func (v *Virtual) Advance(d time.Duration) {
	target := v.now + d
	for v.pending.Len() > 0 && v.pending[0].at <= target {
		e := heap.Pop(&v.pending).(pendingEntry)
		v.now = e.at
		if v.live[e.h] {
			delete(v.live, e.h)
			e.fn()
		}
	}
	v.now = target
}

// Pending reports how many live callbacks are still scheduled.
func (v *Virtual) Pending() int {
	n := 0
	for _, alive := range v.live {
		if alive {
			n++
		}
	}
	return n
}
