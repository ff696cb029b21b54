// Package relay moves captured input events from the hook thread to a single
// consumer with at-most-once delivery and explicit ownership transfer.
package relay

import (
	"sync"
	"sync/atomic"

	"kvmlink/internal/event"
)

// RelayedEvent is one owned canonical event in flight between the hook thread
// and the consumer. Whoever holds it must call Release exactly once: the
// consumer after use, or the producer when Send reports the event as
// undelivered.
type RelayedEvent struct {
	Event    event.Event
	Category event.Category

	relay    *Relay
	released bool
}

// Release returns the event to its relay's pool. Calling it more than once is
// a no-op; the leak accounting only moves on the first call.
func (re *RelayedEvent) Release() {
	if re == nil || re.released {
		return
	}
	re.released = true
	re.Event = nil
	re.relay.outstanding.Add(-1)
	re.relay.pool.Put(re)
}

// ControlCommand mutates a capture session's runtime behavior. Commands travel
// on their own channel so an event burst cannot starve a pending Stop.
type ControlCommand interface {
	isControl()
}

// Stop asks the servicing thread to uninstall its hooks and exit.
type Stop struct{}

func (Stop) isControl() {}

// SetShouldConsume toggles whether captured input is swallowed from the local
// hook chain.
type SetShouldConsume struct {
	Consume bool
}

func (SetShouldConsume) isControl() {}

// SetCapturedCategories replaces the set of captured input categories.
type SetCapturedCategories struct {
	Categories event.CategorySet
}

func (SetCapturedCategories) isControl() {}

// Relay is a single-producer single-consumer handoff channel. Send never
// blocks; under backpressure events are dropped and returned to the producer.
type Relay struct {
	events   chan *RelayedEvent
	controls chan ControlCommand

	pool        sync.Pool
	outstanding atomic.Int64
	dropped     atomic.Uint64
	closed      atomic.Bool
}

// New creates a relay whose event channel buffers up to buffer events.
func New(buffer int) *Relay {
	r := &Relay{
		events:   make(chan *RelayedEvent, buffer),
		controls: make(chan ControlCommand, 8),
	}
	r.pool.New = func() any { return &RelayedEvent{relay: r} }
	return r
}

// NewEvent allocates an owned event for handoff. The caller owns it until a
// successful Send.
func (r *Relay) NewEvent(ev event.Event) *RelayedEvent {
	re := r.pool.Get().(*RelayedEvent)
	re.Event = ev
	re.Category = ev.Category()
	re.released = false
	r.outstanding.Add(1)
	return re
}

// Send hands the event to the consumer without blocking. It returns false
// when the event was not delivered (channel full or relay closed); ownership
// then stays with the caller, which must Release the event itself.
func (r *Relay) Send(re *RelayedEvent) bool {
	if r.closed.Load() {
		r.dropped.Add(1)
		return false
	}
	select {
	case r.events <- re:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Receive blocks until an event arrives or the relay is closed and drained.
// On ok the caller owns the event and must Release it after use.
func (r *Relay) Receive() (*RelayedEvent, bool) {
	re, ok := <-r.events
	return re, ok
}

// PostControl queues a control command for the servicing thread. It never
// blocks: once the relay is closed nobody drains the queue anymore, so a
// command that does not fit is dropped and reported as false.
func (r *Relay) PostControl(cmd ControlCommand) bool {
	if r.closed.Load() {
		return false
	}
	select {
	case r.controls <- cmd:
		return true
	default:
		return false
	}
}

// Controls exposes the control command channel to the servicing thread.
func (r *Relay) Controls() <-chan ControlCommand {
	return r.controls
}

// Close marks the relay closed and wakes the consumer once in-flight events
// drain. Only the producer may call it, after its last Send.
func (r *Relay) Close() {
	if r.closed.CompareAndSwap(false, true) {
		close(r.events)
	}
}

// Outstanding reports the number of allocated events not yet released. It is
// zero when every event took exactly one of the two release paths.
func (r *Relay) Outstanding() int64 {
	return r.outstanding.Load()
}

// Dropped reports how many events were not delivered to the consumer.
func (r *Relay) Dropped() uint64 {
	return r.dropped.Load()
}
