package device

import (
	"fmt"
	"strings"
)

// Device is one vacuum known to the bridge.
type Device struct {
	// DUID is the cloud device identifier; it is one segment of every
	// state id belonging to the device.
	DUID string `json:"duid"`

	// Name is the user-facing name ("Living Room").
	Name string `json:"name"`

	// Model is the capability model ID ("roborock.vacuum.s6").
	Model string `json:"model"`
}

// ReservedSlug is taken by the bridge status topic (<root>/bridge/status)
// and cannot name a device.
const ReservedSlug = "bridge"

// Slug returns the topic segment for the device.
func (d Device) Slug() string {
	return Slug(d.Name)
}

// Slug converts a device name into a topic segment: lowercase, with
// spaces replaced by underscores.
//
// Examples:
//   - "Living Room" → "living_room"
//   - "S6 MaxV" → "s6_maxv"
func Slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// Validate checks that the device can be addressed by state ids and topics.
func (d Device) Validate() error {
	if d.DUID == "" {
		return fmt.Errorf("%w: duid is required", ErrInvalidDevice)
	}
	if strings.Contains(d.DUID, ".") {
		return fmt.Errorf("%w: duid %q must not contain '.'", ErrInvalidDevice, d.DUID)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDevice)
	}
	if strings.ContainsAny(d.Name, "/+#") {
		return fmt.Errorf("%w: name %q must not contain MQTT topic characters", ErrInvalidDevice, d.Name)
	}
	if d.Slug() == ReservedSlug {
		return fmt.Errorf("%w: name %q maps to the reserved topic segment %q", ErrInvalidDevice, d.Name, ReservedSlug)
	}
	if d.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidDevice)
	}
	return nil
}
