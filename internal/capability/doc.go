// Package capability describes what each supported vacuum model reports
// and accepts.
//
// Models are data records embedded from models/*.yaml. Each record names
// an optional parent and lists the sections, fields and enum tables it adds
// or overrides. A model's Schema is the merge of its lineage, base first:
//
//	roborock.vacuum.s4 → s5 → s6 → a10
//
// # Usage
//
//	reg, err := capability.LoadRegistry(log)
//	if err != nil {
//	    return err
//	}
//	schema, err := reg.Schema("roborock.vacuum.s6")
//	d, ok := schema.Lookup("deviceStatus", "fan_power")
//	label, _ := d.States.Label("101") // "Quiet"
//
// Schemas are immutable and cached; they are safe to share between
// goroutines.
package capability
