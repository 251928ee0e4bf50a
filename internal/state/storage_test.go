package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/robovac-bridge/internal/infrastructure/config"
	"github.com/nerrad567/robovac-bridge/internal/infrastructure/database"
	_ "github.com/nerrad567/robovac-bridge/migrations"
)

func TestFileStorage_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "states.json")
	fs := NewFileStorage(path)
	ctx := context.Background()

	if _, err := fs.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Load() before save error = %v, want ErrNoSnapshot", err)
	}

	if err := fs.Save(ctx, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := fs.Save(ctx, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	data, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != `{"a":2}` {
		t.Errorf("Load() = %s", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory holds %d files, want only the document", len(entries))
	}
}

func TestFileStorage_PersistIndented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.json")
	s := NewStore(NewFileStorage(path))
	s.Write(mustID(t, "Devices.abc123.deviceStatus.battery"), 80, true)

	if err := s.Persist(context.Background()); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "\n  \"Devices.abc123.deviceStatus.battery\": {\n    \"val\": 80,") {
		t.Errorf("document not indented as expected:\n%s", data)
	}
}

func TestFileStorage_CorruptPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore(NewFileStorage(path))
	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	kept, err := os.ReadFile(path + ".corrupt")
	if err != nil {
		t.Fatalf("corrupt copy missing: %v", err)
	}
	if string(kept) != "garbage" {
		t.Errorf("corrupt copy = %q", kept)
	}

	// The next persist writes a fresh document without touching the copy.
	s.Write(mustID(t, "Devices.abc123.deviceStatus.battery"), 80, true)
	if err := s.Persist(context.Background()); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if kept, _ := os.ReadFile(path + ".corrupt"); string(kept) != "garbage" {
		t.Error("corrupt copy overwritten")
	}
}

func openSnapshotDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "robovac.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestSQLiteStorage_SaveLoad(t *testing.T) {
	storage := NewSQLiteStorage(openSnapshotDB(t))
	ctx := context.Background()

	if _, err := storage.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Load() before save error = %v, want ErrNoSnapshot", err)
	}
	if _, err := storage.SavedAt(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("SavedAt() before save error = %v, want ErrNoSnapshot", err)
	}

	if err := storage.Save(ctx, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := storage.Save(ctx, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	data, err := storage.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != `{"a":2}` {
		t.Errorf("Load() = %s", data)
	}
	if at, err := storage.SavedAt(ctx); err != nil || at.IsZero() {
		t.Errorf("SavedAt() = %v, %v", at, err)
	}
}

func TestSQLiteStorage_StoreRoundTrip(t *testing.T) {
	storage := NewSQLiteStorage(openSnapshotDB(t))
	ctx := context.Background()
	id := mustID(t, "Devices.abc123.consumables.filter_life")

	s := NewStore(storage)
	s.Write(id, 92, true)
	if err := s.Persist(ctx); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	restored := NewStore(storage)
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	e, ok := restored.Read(id)
	if !ok || e.Val != float64(92) || e.Ack {
		t.Errorf("restored = %+v, %v", e, ok)
	}
}
