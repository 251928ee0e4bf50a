// Package influxdb records vacuum telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched metric writing and health monitoring.
//
// # Purpose
//
// When enabled, every confirmed numeric state change (battery, consumable
// work times, cleaning totals) is written as a point in the "vacuum_state"
// measurement, scaled by the capability divider so that hours and square
// metres land in the database rather than raw seconds and mm². Broker
// connection transitions go to "bridge_events".
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteState(influxdb.StateSample{
//	    DUID: "abc123", Device: "living_room",
//	    Section: "consumables", Field: "main_brush_work_time",
//	    Unit: "h", Value: 12.5,
//	})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// Writes are non-blocking; failures are delivered to the SetOnError callback.
package influxdb
