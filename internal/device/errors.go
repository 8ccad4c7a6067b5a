package device

import "errors"

// Domain-specific errors for device operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDeviceNotFound is returned when a device does not exist in the fleet.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidAction is returned for a control action outside the fixed vocabulary.
	ErrInvalidAction = errors.New("device: invalid action")

	// ErrInvalidMode is returned for a mode other than auto or manual.
	ErrInvalidMode = errors.New("device: invalid mode")

	// ErrInvalidOverride is returned for an override value other than on or off.
	ErrInvalidOverride = errors.New("device: invalid override value")
)
