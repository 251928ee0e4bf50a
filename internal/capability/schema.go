package capability

import (
	"fmt"
	"maps"
	"slices"
)

// Schema is the merged capability set of a model lineage.
// It is immutable once built.
type Schema struct {
	model    string
	sections map[string]map[string]Descriptor
}

// Build merges a lineage of models, base first.
//
// A descendant's field replaces the ancestor's definition wholesale; new
// sections and fields are added. Named enum tables accumulate the same way
// and a field's states reference binds to the tables visible at the layer
// that defines it, so later redefinitions of a table do not reach back
// into fields inherited from an ancestor.
//
// Parameters:
//   - lineage: models ordered from base to most derived
//
// Returns:
//   - *Schema: merged schema named after the last model
//   - error: ErrUnknownEnum for an unresolvable states reference
func Build(lineage []Model) (*Schema, error) {
	s := &Schema{sections: make(map[string]map[string]Descriptor)}
	tables := make(map[string]EnumTable)

	for _, m := range lineage {
		s.model = m.ID
		for name, table := range m.States {
			tables[name] = table.Clone()
		}
		for section, fields := range m.Sections {
			dst, ok := s.sections[section]
			if !ok {
				dst = make(map[string]Descriptor, len(fields))
				s.sections[section] = dst
			}
			for field, def := range fields {
				d, err := def.descriptor(tables)
				if err != nil {
					return nil, fmt.Errorf("%s %s.%s: %w", m.ID, section, field, err)
				}
				dst[field] = d
			}
		}
	}
	return s, nil
}

// Model returns the ID of the most derived model in the lineage.
func (s *Schema) Model() string {
	return s.model
}

// Sections returns the section names in sorted order.
func (s *Schema) Sections() []string {
	return slices.Sorted(maps.Keys(s.sections))
}

// Fields returns the field names of a section in sorted order.
func (s *Schema) Fields(section string) []string {
	return slices.Sorted(maps.Keys(s.sections[section]))
}

// Lookup returns the descriptor of one field.
func (s *Schema) Lookup(section, field string) (Descriptor, bool) {
	d, ok := s.sections[section][field]
	if !ok {
		return Descriptor{}, false
	}
	return d.clone(), true
}

// Len returns the total number of fields.
func (s *Schema) Len() int {
	n := 0
	for _, fields := range s.sections {
		n += len(fields)
	}
	return n
}

// Export returns a copy of the schema shaped for JSON consumers:
// section → field → descriptor.
func (s *Schema) Export() map[string]map[string]Descriptor {
	out := make(map[string]map[string]Descriptor, len(s.sections))
	for section, fields := range s.sections {
		copied := make(map[string]Descriptor, len(fields))
		for field, d := range fields {
			copied[field] = d.clone()
		}
		out[section] = copied
	}
	return out
}
