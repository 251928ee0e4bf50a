package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/robovac-bridge/internal/capability"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Entry is the value held for one state id.
//
// Ack distinguishes a value confirmed by the device side (true) from a
// pending request or a value restored from a previous run (false).
type Entry struct {
	Val        any                    `json:"val"`
	Ack        bool                   `json:"ack"`
	Descriptor *capability.Descriptor `json:"descriptor,omitempty"`
}

// Store is the in-memory state tree.
//
// It is persisted wholesale by Persist and reloaded wholesale by Restore.
// There is no incremental persistence.
//
// All public methods are thread-safe.
type Store struct {
	mu      sync.Mutex
	entries map[ID]Entry
	storage Storage
	logger  Logger
}

// NewStore creates an empty store backed by storage.
// A nil storage makes Persist and Restore no-ops.
func NewStore(storage Storage) *Store {
	return &Store{
		entries: make(map[ID]Entry),
		storage: storage,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Read returns the entry for id. It reports false when there is no entry
// or the entry holds no value.
func (s *Store) Read(id ID) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.Val == nil {
		return Entry{}, false
	}
	return e, true
}

// Write stores a value.
//
// Returns:
//   - Entry: the entry after the write
//   - bool: true when the entry is new or its value or ack changed
func (s *Store) Write(id ID, val any, ack bool) (Entry, bool) {
	val = Normalize(val)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries[id]
	next := Entry{Val: val, Ack: ack, Descriptor: prev.Descriptor}
	s.entries[id] = next

	changed := !existed || prev.Ack != ack || !equal(prev.Val, val)
	return next, changed
}

// Trigger records a plain boolean write with no explicit ack. The write
// counts as confirmed user intent and is stored with ack=true.
func (s *Store) Trigger(id ID, on bool) (Entry, bool) {
	return s.Write(id, on, true)
}

// Declare attaches metadata to id.
//
// An existing entry keeps its value and ack; only the descriptor is
// replaced. A new entry starts at the descriptor default with ack=false.
// Declaring the same descriptor twice has no further effect.
func (s *Store) Declare(id ID, d capability.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	desc := d
	if e, ok := s.entries[id]; ok {
		e.Descriptor = &desc
		s.entries[id] = e
		return
	}
	s.entries[id] = Entry{Val: Normalize(d.Default), Ack: false, Descriptor: &desc}
}

// Descriptor returns the metadata declared for id.
func (s *Store) Descriptor(id ID) (capability.Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.Descriptor == nil {
		return capability.Descriptor{}, false
	}
	return *e.Descriptor, true
}

// Delete removes id with its descriptor. Later reads report it absent
// and Persist omits it. A later Write creates a fresh undeclared entry
// and reports it changed; Declare restores the metadata.
func (s *Store) Delete(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// IDs returns every id in the store, sorted by dotted form.
func (s *Store) IDs() []ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]ID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Persist writes the whole store to its storage as one JSON document
// keyed by dotted id.
func (s *Store) Persist(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	s.mu.Lock()
	doc := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		doc[id.String()] = e
	}
	logger := s.logger
	s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding snapshot: %w", ErrStorageFailed, err)
	}
	if err := s.storage.Save(ctx, data); err != nil {
		return err
	}

	logger.Info("state persisted", "entries", len(doc))
	return nil
}

// Restore replaces the store contents with the persisted document.
//
// Every restored entry has ack forced to false, so that a value written
// again after restart is reported as changed and reaches the broker.
//
// A missing document leaves the store empty. A document that cannot be
// decoded also leaves the store empty; the error is logged and storages
// implementing Quarantiner move the document aside first so the next
// Persist does not overwrite it.
//
// Returns:
//   - error: only when the storage itself fails
func (s *Store) Restore(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	data, err := s.storage.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		s.replace(nil)
		s.getLogger().Info("no persisted state, starting empty")
		return nil
	}
	if err != nil {
		return err
	}

	var doc map[string]Entry
	if err := json.Unmarshal(data, &doc); err != nil {
		s.getLogger().Error("persisted state is corrupt, starting empty", "error", err)
		if q, ok := s.storage.(Quarantiner); ok {
			if qerr := q.Quarantine(ctx); qerr != nil {
				s.getLogger().Error("preserving corrupt state failed", "error", qerr)
			}
		}
		s.replace(nil)
		return nil
	}

	entries := make(map[ID]Entry, len(doc))
	for key, e := range doc {
		id, err := ParseID(key)
		if err != nil {
			s.getLogger().Warn("skipping persisted state with invalid id", "id", key)
			continue
		}
		e.Val = Normalize(e.Val)
		e.Ack = false
		entries[id] = e
	}
	s.replace(entries)

	s.getLogger().Info("state restored", "entries", len(entries))
	return nil
}

func (s *Store) replace(entries map[ID]Entry) {
	if entries == nil {
		entries = make(map[ID]Entry)
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
}

func (s *Store) getLogger() Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger
}
