package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nerrad567/robovac-bridge/internal/capability"
	"github.com/nerrad567/robovac-bridge/internal/state"
)

// Codec converts state values to broker payloads and back.
//
// Outbound values are stringified and, when the field has an enum table,
// replaced by their label. Inbound payloads go the other way: a label is
// replaced by its wire value, which is then parsed as JSON.
type Codec struct{}

// Encode returns the payload for val.
//
// Array-envelope fields are always published as a one-element array
// literal unless the literal has a label. A value that already is a
// one-element array is unwrapped first so it is not wrapped twice.
//
// A nil descriptor publishes the raw stringified value.
func (Codec) Encode(val any, d *capability.Descriptor) string {
	if d == nil {
		return stringify(val)
	}

	raw := stringify(val)
	if d.Envelope {
		raw = "[" + stringify(unwrapEnvelope(val)) + "]"
	}
	if label, ok := d.States.Label(raw); ok {
		return label
	}
	return raw
}

// Decode returns the state value carried by payload.
//
// A payload matching an enum label is replaced by its wire value first.
// The result is parsed as JSON; if that fails the string itself is the
// value. A payload that matches no label is not an error.
func (Codec) Decode(payload []byte, d *capability.Descriptor) any {
	s := string(payload)
	if d != nil {
		if key, ok := d.States.Key(s); ok {
			s = key
		}
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// stringify renders a value the way it travels on the broker.
func stringify(val any) string {
	switch v := state.Normalize(val).(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// unwrapEnvelope strips one level of single-element array, whether held
// as a value or as its JSON text.
func unwrapEnvelope(val any) any {
	switch v := val.(type) {
	case []any:
		if len(v) == 1 {
			return v[0]
		}
	case string:
		var arr []any
		if err := json.Unmarshal([]byte(v), &arr); err == nil && len(arr) == 1 {
			return arr[0]
		}
	}
	return val
}
