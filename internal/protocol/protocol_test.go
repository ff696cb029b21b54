package protocol

import (
	"testing"

	"kvmlink/internal/event"
	"kvmlink/internal/relay"
)

func TestEventRoundTrip(t *testing.T) {
	cases := []event.Event{
		event.MouseMove{X: -5, Y: 2160},
		event.MouseButton{Button: event.ButtonMouse4, Pressed: true},
		event.MouseWheel{Delta: -3},
		event.KeyTransition{VirtualKey: 0x5B, Pressed: false},
	}

	for _, ev := range cases {
		data, err := MarshalEvent(ev)
		if err != nil {
			t.Fatalf("MarshalEvent(%v) error = %v", ev, err)
		}
		msg, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal(%v) error = %v", ev, err)
		}
		if msg.Control != nil {
			t.Errorf("Unmarshal(%v) produced a control command", ev)
		}
		if msg.Event != ev {
			t.Errorf("round trip = %v, want %v", msg.Event, ev)
		}
	}
}

func TestControlRoundTrip(t *testing.T) {
	cases := []relay.ControlCommand{
		relay.Stop{},
		relay.SetShouldConsume{Consume: true},
		relay.SetCapturedCategories{Categories: event.AllCategories},
	}

	for _, cmd := range cases {
		data, err := MarshalControl(cmd)
		if err != nil {
			t.Fatalf("MarshalControl(%v) error = %v", cmd, err)
		}
		msg, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal(%v) error = %v", cmd, err)
		}
		if msg.Event != nil {
			t.Errorf("Unmarshal(%v) produced an event", cmd)
		}
		if msg.Control != cmd {
			t.Errorf("round trip = %v, want %v", msg.Control, cmd)
		}
	}
}

func TestUnmarshalRejectsShortMessages(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x00},
		// MouseMove tag with a truncated payload.
		{0x00, 0x01, 0x00, 0x00, 0x00},
		// SetShouldConsume tag with no payload.
		{0x00, 0x06},
	}
	for _, data := range cases {
		if _, err := Unmarshal(data); err == nil {
			t.Errorf("Unmarshal(% x) = nil error, want failure", data)
		}
	}
}

func TestUnmarshalRejectsUnknownTag(t *testing.T) {
	if _, err := Unmarshal([]byte{0xFF, 0xFF}); err == nil {
		t.Error("Unmarshal(unknown tag) = nil error, want failure")
	}
}
