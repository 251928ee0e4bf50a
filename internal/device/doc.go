// Package device holds the vacuums the bridge serves.
//
// A device is identified by its DUID inside state ids
// ("Devices.<duid>.deviceStatus.battery") and by the slug of its name on
// the broker ("roborock/living_room/deviceStatus/battery"). The Registry
// translates between the two.
package device
