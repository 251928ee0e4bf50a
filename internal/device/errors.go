package device

import "errors"

// Domain errors for device operations.
var (
	// ErrDeviceNotFound is returned when a device does not exist.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceExists is returned when registering a DUID twice.
	ErrDeviceExists = errors.New("device already exists")

	// ErrSlugConflict is returned when two device names map to the same slug.
	ErrSlugConflict = errors.New("device slug already in use")

	// ErrInvalidDevice is returned when device data fails validation.
	ErrInvalidDevice = errors.New("invalid device")
)
