package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/robovac-bridge/internal/infrastructure/database"
)

// SQLiteStorage keeps the state document as the single row of the
// state_snapshot table. The table is created by the migrations package.
type SQLiteStorage struct {
	db *database.DB
}

// NewSQLiteStorage creates a storage on an open, migrated database.
func NewSQLiteStorage(db *database.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// Load reads the snapshot row.
func (s *SQLiteStorage) Load(ctx context.Context) ([]byte, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM state_snapshot WHERE id = 1`,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}
	return doc, nil
}

// Save upserts the snapshot row.
func (s *SQLiteStorage) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state_snapshot (id, document, saved_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			saved_at = excluded.saved_at`,
		data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}
	return nil
}

// SavedAt returns when the snapshot was last written.
func (s *SQLiteStorage) SavedAt(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT saved_at FROM state_snapshot WHERE id = 1`,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}
	return time.Parse(time.RFC3339Nano, raw)
}
