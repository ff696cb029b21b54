// Package event defines the canonical input event model shared by the
// capture and injection sides.
package event

// Category identifies the class of device an event originated from.
type Category uint8

const (
	CategoryMouse Category = iota + 1
	CategoryKeyboard
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMouse:
		return "mouse"
	case CategoryKeyboard:
		return "keyboard"
	}
	return "unknown"
}

// CategorySet is a set of capture categories.
type CategorySet uint8

// Set returns s with c added.
func (s CategorySet) Set(c Category) CategorySet {
	return s | 1<<c
}

// Has reports whether c is in the set.
func (s CategorySet) Has(c Category) bool {
	return s&(1<<c) != 0
}

// AllCategories contains every capture category.
const AllCategories = CategorySet(1<<CategoryMouse | 1<<CategoryKeyboard)

// Code discriminates the variant carried by an Event.
type Code uint16

const (
	CodeMouseMove Code = iota + 1
	CodeMouseButton
	CodeMouseWheel
	CodeKeyTransition
)

// Event is the canonical representation of one input occurrence. Exactly one
// variant implements it per occurrence; the compiler rules out decoding the
// wrong variant.
type Event interface {
	Code() Code
	Category() Category
}

// MouseMove is an absolute cursor position in screen coordinates.
type MouseMove struct {
	X int32
	Y int32
}

func (MouseMove) Code() Code { return CodeMouseMove }

func (MouseMove) Category() Category { return CategoryMouse }

// MouseButton is a button transition for an extended mouse button.
type MouseButton struct {
	Button  uint16
	Pressed bool
}

func (MouseButton) Code() Code { return CodeMouseButton }

func (MouseButton) Category() Category { return CategoryMouse }

// Extended mouse button identifiers.
const (
	ButtonLeft uint16 = iota + 1
	ButtonRight
	ButtonMiddle
	ButtonMouse4
	ButtonMouse5
)

// MouseWheel is a signed scroll distance, positive away from the user.
type MouseWheel struct {
	Delta int16
}

func (MouseWheel) Code() Code { return CodeMouseWheel }

func (MouseWheel) Category() Category { return CategoryMouse }

// KeyTransition is a key going down or up, identified by virtual key code.
type KeyTransition struct {
	VirtualKey uint32
	Pressed    bool
}

func (KeyTransition) Code() Code { return CodeKeyTransition }

func (KeyTransition) Category() Category { return CategoryKeyboard }
