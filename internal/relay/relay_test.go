package relay

import (
	"testing"

	"kvmlink/internal/event"
)

func TestSendReceiveRelease(t *testing.T) {
	r := New(4)

	re := r.NewEvent(event.MouseMove{X: 10, Y: 20})
	if got := r.Outstanding(); got != 1 {
		t.Fatalf("Outstanding() = %d, want 1", got)
	}
	if !r.Send(re) {
		t.Fatal("Send() = false, want true")
	}

	got, ok := r.Receive()
	if !ok {
		t.Fatal("Receive() ok = false, want true")
	}
	if got.Event != (event.MouseMove{X: 10, Y: 20}) {
		t.Errorf("Receive() event = %v", got.Event)
	}
	if got.Category != event.CategoryMouse {
		t.Errorf("Receive() category = %v, want mouse", got.Category)
	}

	got.Release()
	if n := r.Outstanding(); n != 0 {
		t.Errorf("Outstanding() after release = %d, want 0", n)
	}
}

func TestReceiveOrderIsFIFO(t *testing.T) {
	r := New(8)

	sent := []event.Event{
		event.MouseMove{X: 1, Y: 1},
		event.KeyTransition{VirtualKey: 0x41, Pressed: true},
		event.MouseWheel{Delta: -1},
		event.KeyTransition{VirtualKey: 0x41, Pressed: false},
	}
	for _, ev := range sent {
		if !r.Send(r.NewEvent(ev)) {
			t.Fatalf("Send(%v) = false", ev)
		}
	}

	for i, want := range sent {
		re, ok := r.Receive()
		if !ok {
			t.Fatalf("Receive() #%d ok = false", i)
		}
		if re.Event != want {
			t.Errorf("Receive() #%d = %v, want %v", i, re.Event, want)
		}
		re.Release()
	}

	if n := r.Outstanding(); n != 0 {
		t.Errorf("Outstanding() = %d, want 0", n)
	}
}

func TestSendDropsWhenFull(t *testing.T) {
	r := New(1)

	first := r.NewEvent(event.MouseMove{X: 1})
	if !r.Send(first) {
		t.Fatal("first Send() = false, want true")
	}

	second := r.NewEvent(event.MouseMove{X: 2})
	if r.Send(second) {
		t.Fatal("second Send() = true, want false on full channel")
	}
	if n := r.Dropped(); n != 1 {
		t.Errorf("Dropped() = %d, want 1", n)
	}

	// Ownership of the undelivered event stayed with the producer.
	second.Release()

	re, ok := r.Receive()
	if !ok {
		t.Fatal("Receive() ok = false")
	}
	if re.Event != (event.MouseMove{X: 1}) {
		t.Errorf("Receive() = %v, want the delivered event", re.Event)
	}
	re.Release()

	if n := r.Outstanding(); n != 0 {
		t.Errorf("Outstanding() = %d, want 0", n)
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	r := New(4)
	r.Close()

	re := r.NewEvent(event.MouseWheel{Delta: 1})
	if r.Send(re) {
		t.Fatal("Send() after Close = true, want false")
	}
	re.Release()

	if _, ok := r.Receive(); ok {
		t.Error("Receive() on closed relay ok = true, want false")
	}
	if n := r.Outstanding(); n != 0 {
		t.Errorf("Outstanding() = %d, want 0", n)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := New(4)

	re := r.NewEvent(event.MouseMove{X: 5, Y: 5})
	re.Release()
	re.Release()

	if n := r.Outstanding(); n != 0 {
		t.Errorf("Outstanding() after double release = %d, want 0", n)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r := New(1)
	r.Close()
	r.Close()
}

func TestControlsBypassEventBackpressure(t *testing.T) {
	r := New(1)

	// Fill the event channel so event delivery is blocked.
	if !r.Send(r.NewEvent(event.MouseMove{X: 1})) {
		t.Fatal("Send() = false")
	}

	if !r.PostControl(Stop{}) {
		t.Fatal("PostControl() = false while events were backed up")
	}

	select {
	case cmd := <-r.Controls():
		if _, ok := cmd.(Stop); !ok {
			t.Errorf("Controls() delivered %T, want Stop", cmd)
		}
	default:
		t.Fatal("control command was not deliverable while events were backed up")
	}
}

func TestPostControlNeverBlocks(t *testing.T) {
	r := New(1)

	// With nobody draining, posts beyond the queue capacity are dropped
	// instead of blocking the caller forever.
	posted := 0
	for i := 0; i < 4*cap(r.controls); i++ {
		if r.PostControl(SetShouldConsume{Consume: true}) {
			posted++
		}
	}
	if posted != cap(r.controls) {
		t.Errorf("posted %d commands, want queue capacity %d", posted, cap(r.controls))
	}
}

func TestPostControlAfterCloseIsDropped(t *testing.T) {
	r := New(1)
	r.Close()

	if r.PostControl(Stop{}) {
		t.Error("PostControl() after Close = true, want false")
	}
}

func TestEventReuseAfterRelease(t *testing.T) {
	r := New(4)

	re := r.NewEvent(event.KeyTransition{VirtualKey: 0x1B, Pressed: true})
	if !r.Send(re) {
		t.Fatal("Send() = false")
	}
	got, _ := r.Receive()
	got.Release()

	// A recycled event must carry fresh contents, not the old ones.
	re2 := r.NewEvent(event.MouseWheel{Delta: 3})
	if re2.Event != (event.MouseWheel{Delta: 3}) {
		t.Errorf("recycled event = %v, want MouseWheel", re2.Event)
	}
	if re2.Category != event.CategoryMouse {
		t.Errorf("recycled category = %v, want mouse", re2.Category)
	}
	re2.Release()

	if n := r.Outstanding(); n != 0 {
		t.Errorf("Outstanding() = %d, want 0", n)
	}
}
