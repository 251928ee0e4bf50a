package state

import (
	"context"
	"sync"
	"testing"

	"github.com/nerrad567/robovac-bridge/internal/capability"
)

func mustID(t *testing.T, s string) ID {
	t.Helper()
	id, err := ParseID(s)
	if err != nil {
		t.Fatalf("ParseID(%q) error = %v", s, err)
	}
	return id
}

// memStorage is an in-memory Storage for tests.
type memStorage struct {
	mu          sync.Mutex
	data        []byte
	quarantined bool
	loadErr     error
}

func (m *memStorage) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.data == nil {
		return nil, ErrNoSnapshot
	}
	return m.data, nil
}

func (m *memStorage) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}

func (m *memStorage) Quarantine(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quarantined = true
	return nil
}

func TestStore_WriteChanged(t *testing.T) {
	s := NewStore(nil)
	id := mustID(t, "Devices.abc123.deviceStatus.battery")

	steps := []struct {
		name        string
		val         any
		ack         bool
		wantChanged bool
	}{
		{name: "new entry", val: 80, ack: true, wantChanged: true},
		{name: "same value and ack", val: 80, ack: true, wantChanged: false},
		{name: "same value as float", val: 80.0, ack: true, wantChanged: false},
		{name: "ack differs", val: 80, ack: false, wantChanged: true},
		{name: "value differs", val: 79, ack: false, wantChanged: true},
	}

	for _, step := range steps {
		_, changed := s.Write(id, step.val, step.ack)
		if changed != step.wantChanged {
			t.Errorf("%s: changed = %v, want %v", step.name, changed, step.wantChanged)
		}
	}

	e, ok := s.Read(id)
	if !ok || e.Val != float64(79) || e.Ack {
		t.Errorf("Read() = %+v, %v", e, ok)
	}
}

func TestStore_WriteStructuredValue(t *testing.T) {
	s := NewStore(nil)
	id := mustID(t, "Devices.abc123.commands.app_zoned_clean")

	s.Write(id, []any{[]any{25500, 25500, 26500, 26500, 1}}, false)
	_, changed := s.Write(id, []any{[]any{25500.0, 25500.0, 26500.0, 26500.0, 1.0}}, false)
	if changed {
		t.Error("numerically equal nested value reported as changed")
	}
}

func TestStore_Trigger(t *testing.T) {
	s := NewStore(nil)
	id := mustID(t, "Devices.abc123.commands.app_start")

	e, changed := s.Trigger(id, true)
	if !changed || e.Val != true || !e.Ack {
		t.Errorf("Trigger() = %+v, %v; want val=true ack=true changed", e, changed)
	}
}

func TestStore_ReadAbsent(t *testing.T) {
	s := NewStore(nil)
	id := mustID(t, "Devices.abc123.commands.app_goto_target")

	if _, ok := s.Read(id); ok {
		t.Error("Read() of unknown id should be absent")
	}

	// Declared without a default: entry exists but holds no value.
	s.Declare(id, capability.Descriptor{Type: capability.TypeJSON, Write: true})
	if _, ok := s.Read(id); ok {
		t.Error("Read() of value-less entry should be absent")
	}
	if _, ok := s.Descriptor(id); !ok {
		t.Error("Descriptor() should report declared metadata")
	}
}

func TestStore_Declare(t *testing.T) {
	s := NewStore(nil)
	id := mustID(t, "Devices.abc123.commands.set_custom_mode")
	d := capability.Descriptor{Type: capability.TypeNumber, Name: "Suction Power", Write: true, Default: 101}

	s.Declare(id, d)
	e, ok := s.Read(id)
	if !ok || e.Val != float64(101) || e.Ack {
		t.Fatalf("after Declare: %+v, %v; want default 101, ack=false", e, ok)
	}
	if e.Descriptor == nil || e.Descriptor.Name != "Suction Power" {
		t.Errorf("Descriptor = %+v", e.Descriptor)
	}

	s.Write(id, 104, true)
	renamed := d
	renamed.Name = "Fan"
	s.Declare(id, renamed)
	s.Declare(id, renamed)

	e, _ = s.Read(id)
	if e.Val != float64(104) || !e.Ack {
		t.Errorf("Declare overwrote value: %+v", e)
	}
	if e.Descriptor.Name != "Fan" {
		t.Errorf("Declare did not update metadata: %+v", e.Descriptor)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_WriteKeepsDescriptor(t *testing.T) {
	s := NewStore(nil)
	id := mustID(t, "Devices.abc123.deviceStatus.state")
	s.Declare(id, capability.Descriptor{Type: capability.TypeNumber, Name: "State"})

	e, _ := s.Write(id, 8, true)
	if e.Descriptor == nil || e.Descriptor.Name != "State" {
		t.Errorf("Write() dropped descriptor: %+v", e)
	}
}

func TestStore_Delete(t *testing.T) {
	storage := &memStorage{}
	s := NewStore(storage)
	gone := mustID(t, "Devices.abc123.deviceStatus.battery")
	kept := mustID(t, "Devices.abc123.deviceStatus.state")

	s.Write(gone, 80, true)
	s.Write(kept, 8, true)
	s.Delete(gone)

	if _, ok := s.Read(gone); ok {
		t.Error("Read() after Delete should be absent")
	}
	if err := s.Persist(context.Background()); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	restored := NewStore(storage)
	if err := restored.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if _, ok := restored.Read(gone); ok {
		t.Error("deleted entry was persisted")
	}
	if _, ok := restored.Read(kept); !ok {
		t.Error("kept entry missing after restore")
	}
}

func TestStore_WriteAfterDelete(t *testing.T) {
	s := NewStore(nil)
	id := mustID(t, "Devices.abc123.deviceStatus.battery")
	s.Declare(id, capability.Descriptor{Name: "Battery", Type: capability.TypeNumber})
	s.Write(id, 80, true)
	s.Delete(id)

	e, changed := s.Write(id, 80, true)
	if !changed {
		t.Error("Write() after Delete changed = false, want true")
	}
	if e.Descriptor != nil {
		t.Errorf("Write() after Delete kept descriptor %+v", e.Descriptor)
	}
	if _, ok := s.Descriptor(id); ok {
		t.Error("Descriptor() after Delete should be absent")
	}
}

func TestStore_PersistRestoreResetsAck(t *testing.T) {
	storage := &memStorage{}
	s := NewStore(storage)
	ctx := context.Background()

	battery := mustID(t, "Devices.abc123.deviceStatus.battery")
	fan := mustID(t, "Devices.abc123.commands.set_custom_mode")
	s.Declare(fan, capability.Descriptor{Type: capability.TypeNumber, Name: "Suction Power", Default: 101})
	s.Write(battery, 80, true)
	s.Write(fan, 103, true)

	if err := s.Persist(ctx); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	restored := NewStore(storage)
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	for _, id := range restored.IDs() {
		e, _ := restored.Read(id)
		if e.Ack {
			t.Errorf("%s restored with ack=true", id)
		}
	}

	e, _ := restored.Read(fan)
	if e.Val != float64(103) || e.Descriptor == nil || e.Descriptor.Name != "Suction Power" {
		t.Errorf("restored fan = %+v", e)
	}

	// Same value, confirmed again: a change because ack flipped.
	if _, changed := restored.Write(battery, 80, true); !changed {
		t.Error("first confirmed write after restore should be a change")
	}
}

func TestStore_RestoreMissing(t *testing.T) {
	s := NewStore(&memStorage{})
	s.Write(mustID(t, "Devices.x.deviceStatus.battery"), 1, true)

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want empty store", s.Len())
	}
}

func TestStore_RestoreCorrupt(t *testing.T) {
	storage := &memStorage{data: []byte("{not json")}
	s := NewStore(storage)

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want empty store", s.Len())
	}
	if !storage.quarantined {
		t.Error("corrupt document was not quarantined")
	}
}

func TestStore_RestoreSkipsInvalidIDs(t *testing.T) {
	storage := &memStorage{data: []byte(`{
  "bad": {"val": 1, "ack": true},
  "Devices.abc123.deviceStatus.battery": {"val": 80, "ack": true}
}`)}
	s := NewStore(storage)

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(&memStorage{})
	id := mustID(t, "Devices.abc123.deviceStatus.battery")

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				s.Write(id, i*j, j%2 == 0)
				s.Read(id)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Persist(context.Background())
	}()
	wg.Wait()
}
