package state

import (
	"encoding/json"
	"reflect"
)

// Normalize converts every numeric kind to float64, recursing into slices
// and maps, so that values compare equal regardless of how they were
// produced (Go literal, JSON decode, YAML default).
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64:
		return v
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	}
	return v
}

// equal compares two normalized values.
func equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
