package bridge

import (
	"fmt"
	"sync"

	"github.com/nerrad567/robovac-bridge/internal/state"
)

// ChangeHandler receives a state update that arrived from the broker.
// id is fully qualified: the instance prefix, when configured, is
// restored in front of the dotted state id.
type ChangeHandler func(id string, entry state.Entry)

// Dispatcher applies inbound broker messages to the state store.
type Dispatcher struct {
	mapper  *Mapper
	store   *state.Store
	codec   Codec
	prefix  string
	handler ChangeHandler

	// mu serialises store mutation with the rest of the bridge.
	mu *sync.Mutex

	// applied, when set, is told about every stored update.
	applied func(id state.ID, entry state.Entry, changed bool)

	logger Logger
}

// NewDispatcher creates a dispatcher. mu is shared with the code that
// writes to the store from the application side.
func NewDispatcher(mapper *Mapper, store *state.Store, prefix string, handler ChangeHandler, mu *sync.Mutex) *Dispatcher {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Dispatcher{
		mapper:  mapper,
		store:   store,
		prefix:  prefix,
		handler: handler,
		mu:      mu,
		logger:  noopLogger{},
	}
}

// Handle processes one inbound message.
//
// The payload is decoded against the state's descriptor and stored with
// ack=true. The change handler then runs exactly once. Messages for
// unknown devices, malformed topics or undeclared states are logged and
// dropped without reaching the handler.
func (d *Dispatcher) Handle(topic string, payload []byte) {
	d.mu.Lock()
	id, entry, changed, err := d.apply(topic, payload)
	d.mu.Unlock()

	if err != nil {
		d.logger.Warn("dropping inbound message", "topic", topic, "error", err)
		return
	}
	d.logger.Debug("inbound state", "id", id.String(), "val", entry.Val, "changed", changed)

	if d.applied != nil {
		d.applied(id, entry, changed)
	}
	if d.handler != nil {
		d.handler(d.Qualify(id), entry)
	}
}

// apply resolves, decodes and stores. Callers hold d.mu.
func (d *Dispatcher) apply(topic string, payload []byte) (state.ID, state.Entry, bool, error) {
	id, err := d.mapper.Resolve(topic)
	if err != nil {
		return state.ID{}, state.Entry{}, false, err
	}

	desc, ok := d.store.Descriptor(id)
	if !ok {
		return state.ID{}, state.Entry{}, false, fmt.Errorf("%w: %s", ErrUndeclaredState, id)
	}

	entry, changed := d.store.Write(id, d.codec.Decode(payload, &desc), true)
	return id, entry, changed, nil
}

// Qualify returns the id as handed to the change handler.
func (d *Dispatcher) Qualify(id state.ID) string {
	if d.prefix == "" {
		return id.String()
	}
	return d.prefix + "." + id.String()
}
