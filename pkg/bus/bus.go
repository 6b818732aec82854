// Package bus implements the two event-bus variants of spec §4.6:
// Sequential, for single-threaded runs, and Concurrent, for the parallel
// execution modes. Both always register the exit-status and summary
// listeners first, ahead of any user listener (spec §4.6 built-in
// invariant).
//
// Grounded on original_source/core/lib/src/runtime/mod.rs's
// EventBus/SyncEventBus split; realized in Go as a single mutex-guarded
// dispatch loop for Concurrent rather than a second zero-cost type (see
// SPEC_FULL.md "Open Question decisions").
package bus

import (
	"sync"

	"github.com/gherkindog/gherkindog/pkg/event"
)

// Bus publishes events to a fixed, ordered list of listeners.
type Bus interface {
	Send(event.Event)
}

// New builds a Bus appropriate to concurrent, with builtins registered
// first followed by the user-supplied listeners, in order.
func New(concurrent bool, builtins []event.Listener, userListeners []event.Listener) Bus {
	all := make([]event.Listener, 0, len(builtins)+len(userListeners))
	all = append(all, builtins...)
	all = append(all, userListeners...)

	if concurrent {
		return &ConcurrentBus{listeners: all}
	}
	return &SequentialBus{listeners: all}
}

// SequentialBus delivers synchronously to each listener, in registration
// order, before Send returns. Listeners may be non-thread-safe: Send is
// only ever called from one goroutine in Sequential execution mode.
type SequentialBus struct {
	listeners []event.Listener
}

func (b *SequentialBus) Send(e event.Event) {
	for _, l := range b.listeners {
		l.OnEvent(e)
	}
}

// ConcurrentBus accepts Send from any goroutine. A single mutex
// serializes dispatch so that no two events' listener callbacks
// interleave, and so that events from a single scenario (always sent
// from the same goroutine) are delivered to each listener in the order
// they were sent. No cross-scenario ordering is promised, matching spec
// §4.6/§5.
type ConcurrentBus struct {
	mu        sync.Mutex
	listeners []event.Listener
}

func (b *ConcurrentBus) Send(e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range b.listeners {
		l.OnEvent(e)
	}
}
