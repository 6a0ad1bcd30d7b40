// Package permissions probes operating-system access to capture devices.
package permissions

import (
	"errors"
	"fmt"
)

// Device is a capture device that may require operator approval.
type Device int

const (
	Camera Device = iota
	Microphone
)

func (d Device) String() string {
	switch d {
	case Camera:
		return "camera"
	case Microphone:
		return "microphone"
	}
	return fmt.Sprintf("device(%d)", int(d))
}

// ErrDenied reports that the operator has not granted access to a device.
var ErrDenied = errors.New("device access denied")

// Check returns nil when the device may be opened, or an error wrapping
// ErrDenied.
func Check(d Device) error {
	if !platformAuthorized(d) {
		return fmt.Errorf("%s: %w", d, ErrDenied)
	}
	return nil
}
