// Package sched provides the cooperative single-threaded delayed-callback
// facility the rest of the core is built against. Every callback runs to
// completion with no concurrent mutation of node state; tests substitute a
// virtual-time implementation so retry schedules can be checked
// deterministically without sleeping.
package sched

import (
	"sync"
	"time"
)

// Handle identifies a scheduled callback. The zero Handle is not live; it is
// safe to Cancel it as a no-op (§5 cancellation semantics).
type Handle uint64

// Scheduler schedules and cancels delayed callbacks. Implementations MUST
// run at most one callback at a time and MUST run callbacks to completion
// without interleaving.
type Scheduler interface {
	// After schedules fn to run after d elapses and returns a handle for it.
	After(d time.Duration, fn func()) Handle
	// Cancel cancels the callback referred to by h, if it is still live.
	// Cancelling a non-live or zero handle is a silent no-op.
	Cancel(h Handle)
}

// Real is a Scheduler backed by the runtime's timers, for production use.
// Every OS timer fires on its own goroutine; Real hands the due callback to
// dispatch rather than running it inline, so a caller running other event
// sources (button, radio) can serialize everything onto one dispatcher
// goroutine, per §5's single-dispatcher requirement for OS-thread
// implementations.
type Real struct {
	mu       sync.Mutex
	next     Handle
	timers   map[Handle]*time.Timer
	dispatch func(func())
}

// NewReal constructs a production scheduler. dispatch receives every due
// callback; a caller with no other event sources to serialize against can
// pass a dispatch that just invokes its argument directly.
func NewReal(dispatch func(func())) *Real {
	return &Real{timers: make(map[Handle]*time.Timer), dispatch: dispatch}
}

func (r *Real) After(d time.Duration, fn func()) Handle {
	r.mu.Lock()
	r.next++
	h := r.next
	r.mu.Unlock()

	t := time.AfterFunc(d, func() {
		r.mu.Lock()
		_, live := r.timers[h]
		delete(r.timers, h)
		r.mu.Unlock()
		if live {
			r.dispatch(fn)
		}
	})

	r.mu.Lock()
	r.timers[h] = t
	r.mu.Unlock()
	return h
}

func (r *Real) Cancel(h Handle) {
	if h == 0 {
		return
	}
	r.mu.Lock()
	t, ok := r.timers[h]
	delete(r.timers, h)
	r.mu.Unlock()
	if ok {
		t.Stop()
	}
}
