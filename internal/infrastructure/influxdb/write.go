package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementState  = "vacuum_state"
	measurementBridge = "bridge_events"
)

// StateSample is one confirmed numeric state value of a vacuum.
type StateSample struct {
	DUID    string
	Device  string // slug
	Section string
	Field   string
	Unit    string
	Value   float64
}

// WriteState records a confirmed state value.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Values are expected already scaled by the descriptor divider.
//
// Example:
//
//	client.WriteState(influxdb.StateSample{
//	    DUID: "abc123", Device: "living_room",
//	    Section: "deviceStatus", Field: "battery", Unit: "%", Value: 80,
//	})
func (c *Client) WriteState(s StateSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statePoint(s, time.Now()))
}

// WriteConnectionEvent records a broker connection transition
// ("connected", "disconnected").
func (c *Client) WriteConnectionEvent(clientID, event string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(connectionPoint(clientID, event, time.Now()))
}

func statePoint(s StateSample, ts time.Time) *write.Point {
	tags := map[string]string{
		"duid":    s.DUID,
		"device":  s.Device,
		"section": s.Section,
		"field":   s.Field,
	}
	if s.Unit != "" {
		tags["unit"] = s.Unit
	}

	return write.NewPoint(measurementState, tags, map[string]any{"value": s.Value}, ts)
}

func connectionPoint(clientID, event string, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementBridge,
		map[string]string{"client_id": clientID},
		map[string]any{"event": event},
		ts,
	)
}
