// Package protocol defines the wire format for messages exchanged between
// the capturing host and injecting agents. Each message is either one
// canonical event or one control command, encoded as a tag followed by a
// fixed-size big-endian payload.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"kvmlink/internal/event"
	"kvmlink/internal/relay"
)

// Tag identifies the payload carried by a message.
type Tag uint16

const (
	TagMouseMove Tag = iota + 1
	TagMouseButton
	TagMouseWheel
	TagKeyTransition

	TagStop
	TagSetShouldConsume
	TagSetCapturedCategories
)

// Message is one decoded wire message. Exactly one field is non-nil.
type Message struct {
	Event   event.Event
	Control relay.ControlCommand
}

var ErrShortMessage = errors.New("message payload is shorter than its tag requires")

// MarshalEvent encodes one canonical event.
func MarshalEvent(ev event.Event) ([]byte, error) {
	switch v := ev.(type) {
	case event.MouseMove:
		buf := makeMessage(TagMouseMove, 8)
		binary.BigEndian.PutUint32(buf[2:], uint32(v.X))
		binary.BigEndian.PutUint32(buf[6:], uint32(v.Y))
		return buf, nil

	case event.MouseButton:
		buf := makeMessage(TagMouseButton, 3)
		binary.BigEndian.PutUint16(buf[2:], v.Button)
		buf[4] = boolByte(v.Pressed)
		return buf, nil

	case event.MouseWheel:
		buf := makeMessage(TagMouseWheel, 2)
		binary.BigEndian.PutUint16(buf[2:], uint16(v.Delta))
		return buf, nil

	case event.KeyTransition:
		buf := makeMessage(TagKeyTransition, 5)
		binary.BigEndian.PutUint32(buf[2:], v.VirtualKey)
		buf[6] = boolByte(v.Pressed)
		return buf, nil
	}
	return nil, fmt.Errorf("unexpected event type %T", ev)
}

// MarshalControl encodes one control command.
func MarshalControl(cmd relay.ControlCommand) ([]byte, error) {
	switch c := cmd.(type) {
	case relay.Stop:
		return makeMessage(TagStop, 0), nil

	case relay.SetShouldConsume:
		buf := makeMessage(TagSetShouldConsume, 1)
		buf[2] = boolByte(c.Consume)
		return buf, nil

	case relay.SetCapturedCategories:
		buf := makeMessage(TagSetCapturedCategories, 1)
		buf[2] = byte(c.Categories)
		return buf, nil
	}
	return nil, fmt.Errorf("unexpected control command type %T", cmd)
}

// Unmarshal decodes one wire message.
func Unmarshal(data []byte) (Message, error) {
	if len(data) < 2 {
		return Message{}, ErrShortMessage
	}
	tag := Tag(binary.BigEndian.Uint16(data))
	payload := data[2:]

	switch tag {
	case TagMouseMove:
		if len(payload) < 8 {
			return Message{}, ErrShortMessage
		}
		return Message{Event: event.MouseMove{
			X: int32(binary.BigEndian.Uint32(payload)),
			Y: int32(binary.BigEndian.Uint32(payload[4:])),
		}}, nil

	case TagMouseButton:
		if len(payload) < 3 {
			return Message{}, ErrShortMessage
		}
		return Message{Event: event.MouseButton{
			Button:  binary.BigEndian.Uint16(payload),
			Pressed: payload[2] != 0,
		}}, nil

	case TagMouseWheel:
		if len(payload) < 2 {
			return Message{}, ErrShortMessage
		}
		return Message{Event: event.MouseWheel{
			Delta: int16(binary.BigEndian.Uint16(payload)),
		}}, nil

	case TagKeyTransition:
		if len(payload) < 5 {
			return Message{}, ErrShortMessage
		}
		return Message{Event: event.KeyTransition{
			VirtualKey: binary.BigEndian.Uint32(payload),
			Pressed:    payload[4] != 0,
		}}, nil

	case TagStop:
		return Message{Control: relay.Stop{}}, nil

	case TagSetShouldConsume:
		if len(payload) < 1 {
			return Message{}, ErrShortMessage
		}
		return Message{Control: relay.SetShouldConsume{Consume: payload[0] != 0}}, nil

	case TagSetCapturedCategories:
		if len(payload) < 1 {
			return Message{}, ErrShortMessage
		}
		return Message{Control: relay.SetCapturedCategories{
			Categories: event.CategorySet(payload[0]),
		}}, nil
	}

	return Message{}, fmt.Errorf("unexpected message tag %d", tag)
}

func makeMessage(tag Tag, payloadLen int) []byte {
	buf := make([]byte, 2+payloadLen)
	binary.BigEndian.PutUint16(buf, uint16(tag))
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
