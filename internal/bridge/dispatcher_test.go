package bridge

import (
	"testing"

	"github.com/nerrad567/robovac-bridge/internal/capability"
	"github.com/nerrad567/robovac-bridge/internal/state"
)

func TestDispatcher_NoPrefixNoHandler(t *testing.T) {
	store := state.NewStore(nil)
	id := state.ID{Namespace: "Devices", DUID: "abc123", Section: "deviceStatus", Field: "battery"}
	store.Declare(id, capability.Descriptor{Type: capability.TypeNumber, Name: "Battery"})

	d := NewDispatcher(testMapper(t), store, "", nil, nil)

	var applied []bool
	d.applied = func(_ state.ID, _ state.Entry, changed bool) {
		applied = append(applied, changed)
	}

	d.Handle("root/living_room/deviceStatus/battery", []byte("42"))
	d.Handle("root/living_room/deviceStatus/battery", []byte("42"))

	e, ok := store.Read(id)
	if !ok || e.Val != float64(42) || !e.Ack {
		t.Errorf("battery = %+v, %v; want 42 ack=true", e, ok)
	}
	if len(applied) != 2 || !applied[0] || applied[1] {
		t.Errorf("applied changed flags = %v, want [true false]", applied)
	}

	if got := d.Qualify(id); got != "Devices.abc123.deviceStatus.battery" {
		t.Errorf("Qualify() = %q", got)
	}
}

func TestDispatcher_QualifyWithPrefix(t *testing.T) {
	d := NewDispatcher(testMapper(t), state.NewStore(nil), "roborock.0", nil, nil)
	id := state.ID{Namespace: "Devices", DUID: "abc123", Section: "commands", Field: "app_start"}

	if got := d.Qualify(id); got != "roborock.0.Devices.abc123.commands.app_start" {
		t.Errorf("Qualify() = %q", got)
	}
}
