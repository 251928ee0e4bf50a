package device

import (
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
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

// Registry maps DUIDs to devices and resolves topic slugs back to devices.
//
// Devices are registered once at startup from configuration; there is no
// discovery.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device // by DUID
	order   []string          // DUIDs in registration order
	logger  Logger
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]Device),
		logger:  noopLogger{},
	}
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

// Register adds a device.
//
// Two devices whose names produce the same slug cannot be told apart on
// the broker, so the second one is rejected.
//
// Returns:
//   - error: ErrInvalidDevice, ErrDeviceExists or ErrSlugConflict
func (r *Registry) Register(d Device) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[d.DUID]; exists {
		return fmt.Errorf("%w: %s", ErrDeviceExists, d.DUID)
	}
	slug := d.Slug()
	for _, other := range r.devices {
		if other.Slug() == slug {
			return fmt.Errorf("%w: %q used by %s", ErrSlugConflict, slug, other.DUID)
		}
	}

	r.devices[d.DUID] = d
	r.order = append(r.order, d.DUID)
	r.logger.Info("device registered", "duid", d.DUID, "slug", slug, "model", d.Model)
	return nil
}

// Get returns the device with the given DUID.
func (r *Registry) Get(duid string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[duid]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, duid)
	}
	return d, nil
}

// FindBySlug returns the device whose name produces the given slug.
// Devices are scanned in registration order.
func (r *Registry) FindBySlug(slug string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, duid := range r.order {
		if d := r.devices[duid]; d.Slug() == slug {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: slug %q", ErrDeviceNotFound, slug)
}

// List returns all devices sorted by DUID.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].DUID < devices[j].DUID })
	return devices
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
