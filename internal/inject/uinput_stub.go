//go:build !linux

package inject

import "errors"

// ErrUnsupported indicates no virtual input device backend exists on this
// platform.
var ErrUnsupported = errors.New("virtual input device is only supported on Linux")

// UinputDevice is a placeholder device for non-Linux builds.
type UinputDevice struct{}

// OpenUinput returns ErrUnsupported on non-Linux platforms.
func OpenUinput(name string) (*UinputDevice, error) {
	return nil, ErrUnsupported
}

// WriteEvent returns ErrUnsupported.
func (d *UinputDevice) WriteEvent(ev LowLevelEvent) error {
	return ErrUnsupported
}

// Close is a no-op.
func (d *UinputDevice) Close() error {
	return nil
}
