package bridge

import (
	"slices"
	"sync"
)

// Subscriptions records the topics the bridge listens on and replays them
// after the broker connection is re-established.
//
// Thread Safety: All methods are safe for concurrent use.
type Subscriptions struct {
	client  MQTTClient
	mapper  *Mapper
	qos     byte
	handler func(topic string, payload []byte)

	mu     sync.Mutex
	topics []string
	seen   map[string]bool

	logger Logger
}

// NewSubscriptions creates a subscription manager delivering every message
// to handler.
func NewSubscriptions(client MQTTClient, mapper *Mapper, qos byte, handler func(topic string, payload []byte)) *Subscriptions {
	return &Subscriptions{
		client:  client,
		mapper:  mapper,
		qos:     qos,
		handler: handler,
		seen:    make(map[string]bool),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger.
func (s *Subscriptions) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Subscribe derives the topic for an id pattern, records it and subscribes.
//
// Subscribing to an already recorded topic does nothing. A broker failure
// is logged and the topic stays recorded, so the next reconnect retries it.
//
// Returns:
//   - error: only when the pattern cannot be mapped to a topic
func (s *Subscriptions) Subscribe(pattern string) error {
	topic, err := s.mapper.SubscriptionTopic(pattern)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.seen[topic] {
		s.mu.Unlock()
		return nil
	}
	s.seen[topic] = true
	s.topics = append(s.topics, topic)
	logger := s.logger
	s.mu.Unlock()

	if !s.client.IsConnected() {
		logger.Debug("subscription recorded, waiting for broker", "topic", topic)
		return nil
	}
	s.issue(topic, logger)
	return nil
}

// Resubscribe reissues every recorded topic in recording order. It is
// called when the broker connection comes up.
func (s *Subscriptions) Resubscribe() {
	s.mu.Lock()
	topics := slices.Clone(s.topics)
	logger := s.logger
	s.mu.Unlock()

	for _, topic := range topics {
		s.issue(topic, logger)
	}
	logger.Info("subscriptions restored", "count", len(topics))
}

// Topics returns the recorded topics in recording order.
func (s *Subscriptions) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.topics)
}

func (s *Subscriptions) issue(topic string, logger Logger) {
	if err := s.client.Subscribe(topic, s.qos, s.handler); err != nil {
		logger.Warn("subscribe failed", "topic", topic, "error", err)
		return
	}
	logger.Debug("subscribed", "topic", topic)
}
