package bridge

import (
	"fmt"
	"strings"

	"github.com/nerrad567/robovac-bridge/internal/device"
	"github.com/nerrad567/robovac-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/robovac-bridge/internal/state"
)

// wildcard is the pattern segment matching any section or field.
const wildcard = "*"

// Outbound publishing is suppressed for these sections (write-only command
// channels) and for these leading field names (internal bookkeeping).
var (
	excludedSections = map[string]bool{
		"commands":          true,
		"reset_consumables": true,
		"map":               true,
		"firmwareFeatures":  true,
	}
	excludedFields = map[string]bool{
		"Records": true,
		"msg_seq": true,
		"msg_ver": true,
	}
)

// Mapper translates between state ids and broker topics.
//
//	Devices.abc123.deviceStatus.battery ↔ roborock/living_room/deviceStatus/battery
type Mapper struct {
	namespace string
	topics    mqtt.Topics
	devices   *device.Registry
}

// NewMapper creates a mapper for ids under namespace.
func NewMapper(namespace string, topics mqtt.Topics, devices *device.Registry) *Mapper {
	return &Mapper{namespace: namespace, topics: topics, devices: devices}
}

// Namespace returns the id namespace served by the mapper.
func (m *Mapper) Namespace() string {
	return m.namespace
}

// Topic returns the broker topic for id. Dots inside the field become
// further topic levels.
func (m *Mapper) Topic(id state.ID) (string, error) {
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", state.ErrInvalidID, id.String())
	}
	d, err := m.devices.Get(id.DUID)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownDevice, id.DUID)
	}
	return m.topics.State(d.Slug(), id.Section, id.FieldPath()...), nil
}

// Excluded reports whether writes to id stay local.
func (m *Mapper) Excluded(id state.ID) bool {
	if id.Namespace != m.namespace {
		return true
	}
	if excludedSections[id.Section] {
		return true
	}
	return excludedFields[id.FieldPath()[0]]
}

// Resolve returns the state id addressed by a topic.
//
// The slug is matched by scanning the registered devices; device counts
// are small.
//
// Returns:
//   - state.ID: id with the matched device's DUID
//   - error: ErrMalformedTopic or ErrUnknownDevice
func (m *Mapper) Resolve(topic string) (state.ID, error) {
	slug, section, field, ok := m.topics.Split(topic)
	if !ok {
		return state.ID{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}
	for _, level := range append([]string{section}, field...) {
		if strings.ContainsAny(level, ".+#") {
			return state.ID{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
		}
	}

	d, err := m.devices.FindBySlug(slug)
	if err != nil {
		return state.ID{}, fmt.Errorf("%w: slug %q", ErrUnknownDevice, slug)
	}

	return state.ID{
		Namespace: m.namespace,
		DUID:      d.DUID,
		Section:   section,
		Field:     strings.Join(field, "."),
	}, nil
}

// SubscriptionTopic derives the wildcard topic for an id pattern.
//
// The pattern is a dotted id whose field part is ignored and replaced by a
// multi-level wildcard. A "*" section becomes a single-level wildcard; a
// pattern ending at "*" after the DUID covers the whole device.
//
// Examples:
//   - "Devices.abc123.commands.*" → "roborock/living_room/commands/#"
//   - "Devices.abc123.*" → "roborock/living_room/#"
//   - "Devices.abc123.*.*" → "roborock/living_room/+/#"
func (m *Mapper) SubscriptionTopic(pattern string) (string, error) {
	parts := strings.SplitN(pattern, ".", 4)
	if len(parts) < 3 || parts[0] != m.namespace || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	d, err := m.devices.Get(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownDevice, parts[1])
	}

	section := parts[2]
	if section == wildcard && len(parts) == 3 {
		return m.topics.Device(d.Slug()), nil
	}
	if section == wildcard {
		section = "+"
	}
	return m.topics.Section(d.Slug(), section), nil
}
