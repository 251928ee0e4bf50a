package state

import (
	"fmt"
	"strings"
)

// ID addresses one state: Namespace.DUID.Section.Field.
//
// Field may itself contain dots; each dot becomes a further topic level.
type ID struct {
	Namespace string
	DUID      string
	Section   string
	Field     string
}

// ParseID splits a dotted state id.
//
// Examples:
//   - "Devices.abc123.deviceStatus.battery"
//   - "Devices.abc123.cleaningRecords.0.3" (Field "0.3")
func ParseID(s string) (ID, error) {
	parts := strings.SplitN(s, ".", 4)
	if len(parts) != 4 {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	id := ID{Namespace: parts[0], DUID: parts[1], Section: parts[2], Field: parts[3]}
	if !id.Valid() {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// Valid reports whether every segment is present and Field has no empty
// path elements.
func (id ID) Valid() bool {
	if id.Namespace == "" || id.DUID == "" || id.Section == "" || id.Field == "" {
		return false
	}
	if strings.Contains(id.Namespace, ".") || strings.Contains(id.DUID, ".") || strings.Contains(id.Section, ".") {
		return false
	}
	for _, p := range id.FieldPath() {
		if p == "" {
			return false
		}
	}
	return true
}

// FieldPath returns Field split into its levels.
func (id ID) FieldPath() []string {
	return strings.Split(id.Field, ".")
}

// String returns the dotted form.
func (id ID) String() string {
	return id.Namespace + "." + id.DUID + "." + id.Section + "." + id.Field
}
