// Package inject replays canonical input events as ordered low-level device
// events on a virtual input device.
package inject

import (
	"fmt"

	"kvmlink/internal/event"
)

// Low-level event types and codes, following the Linux input event model.
const (
	TypeSync     uint16 = 0x00
	TypeKey      uint16 = 0x01
	TypeRelative uint16 = 0x02
	TypeAbsolute uint16 = 0x03

	CodeSyncReport uint16 = 0x00
	CodeAbsX       uint16 = 0x00
	CodeAbsY       uint16 = 0x01
	CodeRelWheel   uint16 = 0x08

	CodeBtnLeft   uint16 = 0x110
	CodeBtnRight  uint16 = 0x111
	CodeBtnMiddle uint16 = 0x112
	CodeBtnSide   uint16 = 0x113
	CodeBtnExtra  uint16 = 0x114
)

// LowLevelEvent is one device event write.
type LowLevelEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Device is a borrowed handle to a virtual input device. The engine only
// writes to it; creating and destroying the device happens elsewhere.
type Device interface {
	WriteEvent(LowLevelEvent) error
}

// EmitError reports the first failed emission within a batch. Events before
// Index have already taken effect on the device and are not rolled back;
// events after it were never emitted.
type EmitError struct {
	Index int
	Err   error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit failed at event %d: %v", e.Index, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

// Emit writes the events to the device strictly in order, stopping at the
// first failure.
func Emit(dev Device, events []LowLevelEvent) error {
	for i, ev := range events {
		if err := dev.WriteEvent(ev); err != nil {
			return &EmitError{Index: i, Err: err}
		}
	}
	return nil
}

// EmitEvent expands one canonical event and emits the result.
func EmitEvent(dev Device, ev event.Event) error {
	return Emit(dev, Expand(ev))
}

// Expand maps a canonical event to its low-level emission sequence. It is a
// pure function of the event and total: every variant yields a non-empty
// sequence terminated by a sync report.
func Expand(ev event.Event) []LowLevelEvent {
	var out []LowLevelEvent

	switch v := ev.(type) {
	case event.MouseMove:
		out = append(out,
			LowLevelEvent{Type: TypeAbsolute, Code: CodeAbsX, Value: v.X},
			LowLevelEvent{Type: TypeAbsolute, Code: CodeAbsY, Value: v.Y},
		)

	case event.MouseButton:
		if code, ok := buttonToCode(v.Button); ok {
			out = append(out, LowLevelEvent{Type: TypeKey, Code: code, Value: pressValue(v.Pressed)})
		}

	case event.MouseWheel:
		out = append(out, LowLevelEvent{Type: TypeRelative, Code: CodeRelWheel, Value: int32(v.Delta)})

	case event.KeyTransition:
		if code, ok := virtualKeyToCode(v.VirtualKey); ok {
			out = append(out, LowLevelEvent{Type: TypeKey, Code: code, Value: pressValue(v.Pressed)})
		}
	}

	return append(out, LowLevelEvent{Type: TypeSync, Code: CodeSyncReport, Value: 0})
}

func buttonToCode(button uint16) (uint16, bool) {
	switch button {
	case event.ButtonLeft:
		return CodeBtnLeft, true
	case event.ButtonRight:
		return CodeBtnRight, true
	case event.ButtonMiddle:
		return CodeBtnMiddle, true
	case event.ButtonMouse4:
		return CodeBtnSide, true
	case event.ButtonMouse5:
		return CodeBtnExtra, true
	}
	return 0, false
}

func pressValue(pressed bool) int32 {
	if pressed {
		return 1
	}
	return 0
}
