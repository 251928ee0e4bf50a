package capability

import (
	"fmt"
	"slices"
	"sync"
)

// Logger defines the logging interface used by the registry.
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

// Registry holds model records and the schemas built from them.
//
// Thread Safety: All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	models  map[string]Model
	order   []string
	schemas map[string]*Schema
	logger  Logger
}

// NewRegistry creates a registry holding the given models.
func NewRegistry(models ...Model) *Registry {
	r := &Registry{
		models:  make(map[string]Model),
		schemas: make(map[string]*Schema),
		logger:  noopLogger{},
	}
	for _, m := range models {
		r.Register(m)
	}
	return r
}

// LoadRegistry creates a registry from the embedded model records.
//
// Parameters:
//   - logger: receives static data drift warnings; nil disables logging
//
// Returns:
//   - *Registry: registry holding every embedded model
//   - error: if a record cannot be decoded
func LoadRegistry(logger Logger) (*Registry, error) {
	models, err := EmbeddedModels()
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	r.SetLogger(logger)
	for _, m := range models {
		r.Register(m)
	}
	r.getLogger().Debug("capability models loaded", "count", len(models))
	return r, nil
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

func (r *Registry) getLogger() Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

// Register adds a model. A model with an already registered ID replaces
// the earlier record; this is logged as data drift, not treated as an error.
// Cached schemas are discarded.
func (r *Registry) Register(m Model) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[m.ID]; exists {
		r.logger.Warn("duplicate capability model, replacing earlier record", "model", m.ID)
	} else {
		r.order = append(r.order, m.ID)
	}
	r.models[m.ID] = m
	clear(r.schemas)
}

// Models returns the registered model IDs in registration order.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Model returns a registered model record.
func (r *Registry) Model(id string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	return m, ok
}

// Lineage returns the chain of models ending at id, base first.
//
// Returns:
//   - []Model: base model first, id last
//   - error: ErrUnknownModel if id is not registered, ErrInvalidLineage
//     for a cycle or a missing parent
func (r *Registry) Lineage(id string) ([]Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lineageLocked(id)
}

func (r *Registry) lineageLocked(id string) ([]Model, error) {
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}

	chain := []Model{m}
	seen := map[string]bool{id: true}
	for m.Parent != "" {
		if seen[m.Parent] {
			return nil, fmt.Errorf("%w: cycle at %s", ErrInvalidLineage, m.Parent)
		}
		parent, ok := r.models[m.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: %s has unknown parent %s", ErrInvalidLineage, m.ID, m.Parent)
		}
		seen[m.Parent] = true
		chain = append(chain, parent)
		m = parent
	}

	slices.Reverse(chain)
	return chain, nil
}

// Schema returns the merged schema for a model, building it on first use.
func (r *Registry) Schema(id string) (*Schema, error) {
	r.mu.RLock()
	s, ok := r.schemas[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.schemas[id]; ok {
		return s, nil
	}
	lineage, err := r.lineageLocked(id)
	if err != nil {
		return nil, err
	}
	s, err = Build(lineage)
	if err != nil {
		return nil, err
	}
	r.schemas[id] = s
	return s, nil
}
