package bridge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/robovac-bridge/internal/capability"
	"github.com/nerrad567/robovac-bridge/internal/device"
	"github.com/nerrad567/robovac-bridge/internal/infrastructure/config"
	"github.com/nerrad567/robovac-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/robovac-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/robovac-bridge/internal/state"
)

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic. It must not wait for the broker.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Telemetry records confirmed numeric state. It is satisfied by
// *influxdb.Client and is optional.
type Telemetry interface {
	WriteState(s influxdb.StateSample)
}

// Logger defines the logging interface used by the bridge.
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

// Options holds everything needed to create a bridge.
type Options struct {
	// Config is the bridge section of config.yaml.
	Config config.BridgeConfig

	// QoS is used for every publish and subscribe.
	QoS byte

	// MQTTClient is the broker connection.
	MQTTClient MQTTClient

	// Store holds device state. Restore it before registering devices so
	// that declarations keep the persisted values.
	Store *state.Store

	// Capabilities resolves device models to schemas.
	Capabilities *capability.Registry

	// Devices is optional; a fresh registry is created when nil.
	Devices *device.Registry

	// OnChange is called for every state update arriving from the broker.
	OnChange ChangeHandler

	// Telemetry is optional.
	Telemetry Telemetry

	// Logger is optional.
	Logger Logger
}

// Bridge mirrors the state store onto the broker and back.
//
// Application writes go store → mapper → codec → publish. Broker messages
// go dispatcher → codec → store → change handler. Both directions are
// serialised by one mutex so the store never sees interleaved updates.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg          config.BridgeConfig
	qos          byte
	mqtt         MQTTClient
	store        *state.Store
	capabilities *capability.Registry
	devices      *device.Registry
	telemetry    Telemetry

	mapper        *Mapper
	codec         Codec
	subscriptions *Subscriptions
	dispatcher    *Dispatcher

	// pending holds ids whose last publish failed. They are sent again
	// on the next write or reconnect. Guarded by mu.
	pending map[state.ID]struct{}

	mu     sync.Mutex
	logger Logger
}

// New creates a bridge. Devices are added with RegisterDevice.
func New(opts Options) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if opts.Capabilities == nil {
		return nil, fmt.Errorf("capability registry is required")
	}
	if opts.Config.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}

	devices := opts.Devices
	if devices == nil {
		devices = device.NewRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	b := &Bridge{
		cfg:          opts.Config,
		qos:          opts.QoS,
		mqtt:         opts.MQTTClient,
		store:        opts.Store,
		capabilities: opts.Capabilities,
		devices:      devices,
		telemetry:    opts.Telemetry,
		pending:      make(map[state.ID]struct{}),
		logger:       logger,
	}

	b.mapper = NewMapper(opts.Config.Namespace, mqtt.Topics{Root: opts.Config.Topic}, devices)
	b.dispatcher = NewDispatcher(b.mapper, b.store, opts.Config.InstancePrefix, opts.OnChange, &b.mu)
	b.dispatcher.logger = logger
	b.dispatcher.applied = func(id state.ID, entry state.Entry, changed bool) {
		if changed {
			b.record(id, entry)
		}
	}
	b.subscriptions = NewSubscriptions(b.mqtt, b.mapper, b.qos, b.dispatcher.Handle)
	b.subscriptions.SetLogger(logger)

	return b, nil
}

// RegisterDevice adds a device, declares every field of its model in the
// store and subscribes to the configured sections.
//
// Parameters:
//   - d: device with a registered capability model
//
// Returns:
//   - error: unknown model, invalid device or duplicate registration
func (b *Bridge) RegisterDevice(d device.Device) error {
	schema, err := b.capabilities.Schema(d.Model)
	if err != nil {
		return fmt.Errorf("device %s: %w", d.DUID, err)
	}
	if err := b.devices.Register(d); err != nil {
		return err
	}

	b.mu.Lock()
	for _, section := range schema.Sections() {
		for _, field := range schema.Fields(section) {
			desc, _ := schema.Lookup(section, field)
			b.store.Declare(state.ID{
				Namespace: b.cfg.Namespace,
				DUID:      d.DUID,
				Section:   section,
				Field:     field,
			}, desc)
		}
	}
	b.mu.Unlock()

	for _, pattern := range b.subscribePatterns(d) {
		if err := b.subscriptions.Subscribe(pattern); err != nil {
			b.logger.Warn("subscription pattern rejected", "pattern", pattern, "error", err)
		}
	}

	b.logger.Info("device ready",
		"duid", d.DUID,
		"slug", d.Slug(),
		"model", d.Model,
		"fields", schema.Len())
	return nil
}

// subscribePatterns returns the id patterns subscribed for a device.
func (b *Bridge) subscribePatterns(d device.Device) []string {
	patterns := make([]string, 0, len(b.cfg.SubscribeSections))
	for _, section := range b.cfg.SubscribeSections {
		if section == wildcard {
			patterns = append(patterns, b.cfg.Namespace+"."+d.DUID+"."+wildcard)
			continue
		}
		patterns = append(patterns, b.cfg.Namespace+"."+d.DUID+"."+section+"."+wildcard)
	}
	return patterns
}

// Write stores a value and, when it changed and the state is mirrored,
// publishes it. The publish does not wait for the broker. A value whose
// earlier publish failed is published even when unchanged.
//
// id may carry the instance prefix.
//
// Returns:
//   - state.Entry: the entry after the write
//   - bool: whether val or ack changed
//   - error: only for an unparseable id
func (b *Bridge) Write(id string, val any, ack bool) (state.Entry, bool, error) {
	sid, err := b.parseID(id)
	if err != nil {
		return state.Entry{}, false, err
	}

	b.mu.Lock()
	entry, changed := b.store.Write(sid, val, ack)
	if _, unsent := b.pending[sid]; changed || unsent {
		b.publish(sid, entry)
	}
	b.mu.Unlock()

	if changed && ack {
		b.record(sid, entry)
	}
	return entry, changed, nil
}

// Trigger writes a plain boolean command with no explicit ack; it is
// stored as confirmed.
func (b *Bridge) Trigger(id string, on bool) (state.Entry, bool, error) {
	return b.Write(id, on, true)
}

// Read returns the entry for id.
func (b *Bridge) Read(id string) (state.Entry, bool) {
	sid, err := b.parseID(id)
	if err != nil {
		return state.Entry{}, false
	}
	return b.store.Read(sid)
}

// Descriptor returns the capability metadata declared for id. States that
// no registered model declares report false.
func (b *Bridge) Descriptor(id string) (capability.Descriptor, bool) {
	sid, err := b.parseID(id)
	if err != nil {
		return capability.Descriptor{}, false
	}
	return b.store.Descriptor(sid)
}

// States returns the stored entries of one device keyed by
// "<section>.<field>". Entries without a value are left out.
func (b *Bridge) States(duid string) (map[string]state.Entry, error) {
	if _, err := b.devices.Get(duid); err != nil {
		return nil, err
	}

	out := make(map[string]state.Entry)
	for _, id := range b.store.IDs() {
		if id.Namespace != b.cfg.Namespace || id.DUID != duid {
			continue
		}
		if entry, ok := b.store.Read(id); ok {
			out[id.Section+"."+id.Field] = entry
		}
	}
	return out, nil
}

// Qualify returns id with the instance prefix, the form the change
// handler receives.
func (b *Bridge) Qualify(id string) string {
	return b.prefix() + strings.TrimPrefix(id, b.prefix())
}

// Stats is a point-in-time summary of the bridge.
type Stats struct {
	Devices       int `json:"devices"`
	States        int `json:"states"`
	Subscriptions int `json:"subscriptions"`
	Pending       int `json:"pending"`
}

// Stats returns the current bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Devices:       b.devices.Len(),
		States:        b.store.Len(),
		Subscriptions: len(b.subscriptions.Topics()),
		Pending:       b.Pending(),
	}
}

// Subscribe listens on the topic derived from an id pattern such as
// "Devices.abc123.commands.*".
func (b *Bridge) Subscribe(pattern string) error {
	return b.subscriptions.Subscribe(strings.TrimPrefix(pattern, b.prefix()))
}

// Resubscribe reissues every recorded subscription and republishes the
// current value of every state whose publish failed while the broker was
// unreachable. Wire it to the broker connect callback.
func (b *Bridge) Resubscribe() {
	b.subscriptions.Resubscribe()
	b.flushPending()
}

// flushPending republishes failed states in id order.
func (b *Bridge) flushPending() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return
	}
	ids := make([]state.ID, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	b.logger.Info("republishing unsent states", "count", len(ids))
	for _, id := range ids {
		entry, ok := b.store.Read(id)
		if !ok {
			delete(b.pending, id)
			continue
		}
		b.publish(id, entry)
	}
}

// Pending returns the number of states waiting to be republished.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// HandleMessage applies one inbound broker message.
func (b *Bridge) HandleMessage(topic string, payload []byte) {
	b.dispatcher.Handle(topic, payload)
}

// Subscriptions returns the recorded subscription topics.
func (b *Bridge) Subscriptions() []string {
	return b.subscriptions.Topics()
}

// Devices returns the device registry.
func (b *Bridge) Devices() *device.Registry {
	return b.devices
}

// Persist flushes the store to its storage.
func (b *Bridge) Persist(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Persist(ctx)
}

// publish sends the encoded entry unless the id is excluded. A failed
// publish marks the id pending.
// Callers hold b.mu so publishes leave in write order.
func (b *Bridge) publish(id state.ID, entry state.Entry) {
	delete(b.pending, id)
	if b.mapper.Excluded(id) {
		return
	}

	topic, err := b.mapper.Topic(id)
	if err != nil {
		b.logger.Warn("not publishing state", "id", id.String(), "error", err)
		return
	}

	payload := b.codec.Encode(entry.Val, entry.Descriptor)
	if err := b.mqtt.Publish(topic, []byte(payload), b.qos, b.cfg.Retain); err != nil {
		b.pending[id] = struct{}{}
		b.logger.Warn("publish failed, will retry on reconnect", "topic", topic, "error", err)
		return
	}
	b.logger.Debug("published", "topic", topic, "payload", payload)
}

// record sends a confirmed numeric value to telemetry, scaled by the
// descriptor divider.
func (b *Bridge) record(id state.ID, entry state.Entry) {
	if b.telemetry == nil || !entry.Ack || entry.Descriptor == nil {
		return
	}
	if entry.Descriptor.Type != capability.TypeNumber || len(entry.Descriptor.States) > 0 {
		return
	}
	v, ok := entry.Val.(float64)
	if !ok {
		return
	}
	d, err := b.devices.Get(id.DUID)
	if err != nil {
		return
	}

	b.telemetry.WriteState(influxdb.StateSample{
		DUID:    id.DUID,
		Device:  d.Slug(),
		Section: id.Section,
		Field:   id.Field,
		Unit:    entry.Descriptor.Unit,
		Value:   entry.Descriptor.Scale(v),
	})
}

// parseID accepts a dotted id with or without the instance prefix.
func (b *Bridge) parseID(id string) (state.ID, error) {
	return state.ParseID(strings.TrimPrefix(id, b.prefix()))
}

func (b *Bridge) prefix() string {
	if b.cfg.InstancePrefix == "" {
		return ""
	}
	return b.cfg.InstancePrefix + "."
}
