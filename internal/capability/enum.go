package capability

import (
	"bytes"
	"encoding/json"
	"maps"
	"reflect"
	"slices"
)

// EnumTable maps wire values to human-readable labels.
//
// Keys are the string form of the value as it appears on the device side
// ("101", "-1", or a JSON literal for structured values). Tables compare by
// value, so two lineage layers that spell the same table identically are
// interchangeable.
type EnumTable map[string]string

// Label returns the label for a wire value.
//
// An exact key match wins. Otherwise, when the wire value is a JSON object
// or array, keys are compared by parsed JSON value so that whitespace and
// member order do not matter.
func (t EnumTable) Label(wire string) (string, bool) {
	if label, ok := t[wire]; ok {
		return label, true
	}

	want, ok := structuredJSON(wire)
	if !ok {
		return "", false
	}
	for _, key := range t.Keys() {
		if got, ok := structuredJSON(key); ok && reflect.DeepEqual(want, got) {
			return t[key], true
		}
	}
	return "", false
}

// Key returns the wire value carrying the given label.
//
// When several keys share a label the lowest key in sort order is
// returned, so the result is stable across runs.
func (t EnumTable) Key(label string) (string, bool) {
	for _, key := range t.Keys() {
		if t[key] == label {
			return key, true
		}
	}
	return "", false
}

// Keys returns the wire values in sorted order.
func (t EnumTable) Keys() []string {
	return slices.Sorted(maps.Keys(t))
}

// Equal reports whether two tables hold the same pairs.
func (t EnumTable) Equal(other EnumTable) bool {
	return maps.Equal(t, other)
}

// Clone returns an independent copy. A nil table stays nil.
func (t EnumTable) Clone() EnumTable {
	return maps.Clone(t)
}

// structuredJSON parses s when it is a JSON object or array.
func structuredJSON(s string) (any, bool) {
	trimmed := bytes.TrimSpace([]byte(s))
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, false
	}
	return v, true
}
