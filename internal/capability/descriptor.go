package capability

import "fmt"

// FieldType is the value type of a state field.
type FieldType string

// Field types understood by the bridge.
const (
	TypeNumber  FieldType = "number"
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
	TypeJSON    FieldType = "json"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeNumber, TypeString, TypeBoolean, TypeJSON:
		return true
	}
	return false
}

// Descriptor is the static metadata of one state field.
//
// The JSON form is the shape external consumers see in capability exports
// and in persisted state documents.
type Descriptor struct {
	Type    FieldType `json:"type"`
	Name    string    `json:"name"`
	Write   bool      `json:"write"`
	States  EnumTable `json:"states,omitempty"`
	Unit    string    `json:"unit,omitempty"`
	Divider float64   `json:"divider,omitempty"`
	Default any       `json:"def,omitempty"`

	// Envelope marks fields the device reports as a one-element JSON array
	// whose enum table is keyed by the array literal.
	Envelope bool `json:"envelope,omitempty"`
}

// Scale converts a raw device reading into display units.
// Without a divider the raw value is returned unchanged.
func (d Descriptor) Scale(raw float64) float64 {
	if d.Divider == 0 {
		return raw
	}
	return raw / d.Divider
}

// clone returns a copy that shares no mutable state with d.
func (d Descriptor) clone() Descriptor {
	d.States = d.States.Clone()
	return d
}

// FieldDef is a field as written in a model record. States names an enum
// table rather than holding it.
type FieldDef struct {
	Type     FieldType `yaml:"type"`
	Name     string    `yaml:"name"`
	Write    bool      `yaml:"write"`
	States   string    `yaml:"states"`
	Unit     string    `yaml:"unit"`
	Divider  float64   `yaml:"divider"`
	Default  any       `yaml:"def"`
	Envelope bool      `yaml:"envelope"`
}

// descriptor resolves the definition against the enum tables visible at
// the defining layer.
func (f FieldDef) descriptor(tables map[string]EnumTable) (Descriptor, error) {
	d := Descriptor{
		Type:     f.Type,
		Name:     f.Name,
		Write:    f.Write,
		Unit:     f.Unit,
		Divider:  f.Divider,
		Default:  normalizeDefault(f.Default),
		Envelope: f.Envelope,
	}
	if f.States != "" {
		table, ok := tables[f.States]
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownEnum, f.States)
		}
		d.States = table.Clone()
	}
	return d, nil
}

// normalizeDefault brings YAML integers in line with the float64 numbers
// the state store holds.
func normalizeDefault(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return v
}
