package mqtt

import (
	"fmt"
	"strings"
)

// DefaultRoot is the topic root used when none is configured.
const DefaultRoot = "roborock"

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Device state topics have at least four levels:
//
//	topics := mqtt.Topics{Root: "roborock"}
//	topics.State("living_room", "deviceStatus", "battery")
//	// Returns: "roborock/living_room/deviceStatus/battery"
type Topics struct {
	Root string
}

func (t Topics) root() string {
	if t.Root == "" {
		return DefaultRoot
	}
	return t.Root
}

// =============================================================================
// Device Topics
// =============================================================================

// State returns the topic for one state value of a device. Additional
// field levels become further topic levels.
//
// Example: roborock/living_room/consumables/main_brush_work_time
func (t Topics) State(slug, section string, field ...string) string {
	parts := append([]string{t.root(), slug, section}, field...)
	return strings.Join(parts, "/")
}

// Section returns a pattern matching every field of one device section.
//
// Pattern: roborock/living_room/commands/#
func (t Topics) Section(slug, section string) string {
	return fmt.Sprintf("%s/%s/%s/#", t.root(), slug, section)
}

// Device returns a pattern matching every topic of one device.
//
// Pattern: roborock/living_room/#
func (t Topics) Device(slug string) string {
	return fmt.Sprintf("%s/%s/#", t.root(), slug)
}

// Split breaks a device topic into slug, section and field levels.
// ok is false when the topic is outside the root or has fewer than
// four levels.
func (t Topics) Split(topic string) (slug, section string, field []string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.root()+"/")
	if !found {
		return "", "", nil, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 3 {
		return "", "", nil, false
	}
	for _, p := range parts {
		if p == "" {
			return "", "", nil, false
		}
	}
	return parts[0], parts[1], parts[2:], true
}

// =============================================================================
// System Topics
// =============================================================================

// Status returns the bridge connection status topic (LWT, online, offline).
//
// Example: roborock/bridge/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/bridge/status", t.root())
}

// All returns a pattern matching every topic under the root.
// Use with caution - this receives ALL bridge traffic.
//
// Pattern: roborock/#
func (t Topics) All() string {
	return t.root() + "/#"
}
