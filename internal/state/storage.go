package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage holds the persisted state document. Documents are loaded and
// saved whole.
type Storage interface {
	// Load returns the document, or ErrNoSnapshot when none was saved.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the document.
	Save(ctx context.Context, data []byte) error
}

// Quarantiner is implemented by storages that can set an unreadable
// document aside instead of letting the next Save overwrite it.
type Quarantiner interface {
	Quarantine(ctx context.Context) error
}

// corruptSuffix is appended to a quarantined state file.
const corruptSuffix = ".corrupt"

// FileStorage keeps the state document in a JSON file.
type FileStorage struct {
	path string
}

// NewFileStorage creates a file storage at path (e.g. "./data/states.json").
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the document path.
func (f *FileStorage) Path() string {
	return f.path
}

// Load reads the document.
func (f *FileStorage) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}
	return data, nil
}

// Save writes the document atomically: a temp file in the same directory
// is written, synced and renamed over the target.
func (f *FileStorage) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: creating directory: %w", ErrStorageFailed, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrStorageFailed, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: writing: %w", ErrStorageFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: syncing: %w", ErrStorageFailed, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: closing: %w", ErrStorageFailed, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: renaming: %w", ErrStorageFailed, err)
	}
	return nil
}

// Quarantine renames the document to <path>.corrupt, replacing any
// earlier quarantined copy.
func (f *FileStorage) Quarantine(_ context.Context) error {
	if err := os.Rename(f.path, f.path+corruptSuffix); err != nil {
		return fmt.Errorf("%w: quarantining: %w", ErrStorageFailed, err)
	}
	return nil
}
