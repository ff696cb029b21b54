//go:build linux

package inject

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux implementation of the virtual input device using the uinput kernel
// interface.

const (
	uinputPath = "/dev/uinput"

	busVirtual = 0x06

	// uinput ioctl requests
	uiSetEvBit   = 0x40045564 // _IOW('U', 100, int)
	uiSetKeyBit  = 0x40045565 // _IOW('U', 101, int)
	uiSetRelBit  = 0x40045566 // _IOW('U', 102, int)
	uiSetAbsBit  = 0x40045567 // _IOW('U', 103, int)
	uiDevCreate  = 0x5501     // _IO('U', 1)
	uiDevDestroy = 0x5502     // _IO('U', 2)

	// absolute axis range advertised for the pointer
	absAxisMax = 0xFFFF
)

type uinputUserDev struct {
	name [80]byte
	id   struct {
		bustype uint16
		vendor  uint16
		product uint16
		version uint16
	}
	ffEffectsMax uint32
	absmax       [64]int32
	absmin       [64]int32
	absfuzz      [64]int32
	absflat      [64]int32
}

type rawInputEvent struct {
	time  unix.Timeval
	etype uint16
	code  uint16
	value int32
}

// UinputDevice is a virtual keyboard/pointer registered with the kernel.
type UinputDevice struct {
	file *os.File
}

var _ Device = (*UinputDevice)(nil)

// OpenUinput creates a virtual input device able to carry every low-level
// event Expand can produce.
func OpenUinput(name string) (*UinputDevice, error) {
	f, err := os.OpenFile(uinputPath, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", uinputPath, err)
	}
	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	fd := int(f.Fd())

	for _, t := range []uint16{TypeSync, TypeKey, TypeRelative, TypeAbsolute} {
		if err := unix.IoctlSetInt(fd, uiSetEvBit, int(t)); err != nil {
			return nil, fmt.Errorf("failed to enable event type %#x: %w", t, err)
		}
	}

	keyCodes := []uint16{CodeBtnLeft, CodeBtnRight, CodeBtnMiddle, CodeBtnSide, CodeBtnExtra}
	for _, code := range vkToKey {
		keyCodes = append(keyCodes, code)
	}
	for _, code := range keyCodes {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, int(code)); err != nil {
			return nil, fmt.Errorf("failed to enable key code %d: %w", code, err)
		}
	}

	if err := unix.IoctlSetInt(fd, uiSetRelBit, int(CodeRelWheel)); err != nil {
		return nil, fmt.Errorf("failed to enable wheel axis: %w", err)
	}

	for _, axis := range []uint16{CodeAbsX, CodeAbsY} {
		if err := unix.IoctlSetInt(fd, uiSetAbsBit, int(axis)); err != nil {
			return nil, fmt.Errorf("failed to enable absolute axis %d: %w", axis, err)
		}
	}

	var dev uinputUserDev
	copy(dev.name[:], name)
	dev.id.bustype = busVirtual
	dev.id.vendor = 0x1
	dev.id.product = 0x1
	dev.id.version = 1
	dev.absmax[CodeAbsX] = absAxisMax
	dev.absmax[CodeAbsY] = absAxisMax

	buf := (*[unsafe.Sizeof(dev)]byte)(unsafe.Pointer(&dev))[:]
	if _, err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write device descriptor: %w", err)
	}

	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return nil, fmt.Errorf("failed to create uinput device: %w", err)
	}

	ok = true
	return &UinputDevice{file: f}, nil
}

// WriteEvent writes one low-level event to the device.
func (d *UinputDevice) WriteEvent(ev LowLevelEvent) error {
	raw := rawInputEvent{etype: ev.Type, code: ev.Code, value: ev.Value}
	buf := (*[unsafe.Sizeof(raw)]byte)(unsafe.Pointer(&raw))[:]
	if _, err := d.file.Write(buf); err != nil {
		return fmt.Errorf("failed to write input event: %w", err)
	}
	return nil
}

// Close destroys the virtual device.
func (d *UinputDevice) Close() error {
	if err := unix.IoctlSetInt(int(d.file.Fd()), uiDevDestroy, 0); err != nil {
		d.file.Close()
		return fmt.Errorf("failed to destroy uinput device: %w", err)
	}
	return d.file.Close()
}
