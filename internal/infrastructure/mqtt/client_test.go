package mqtt

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/robovac-bridge/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for tests that never dial.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "robovac-test",
			TLS:      false,
		},
		QoS:       1,
		KeepAlive: 30,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (l *mockLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	l.infos = append(l.infos, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "robot", Password: "secret"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "robovac-test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "robovac-test")
	}
	if opts.Username != "robot" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want robot/secret", opts.Username, opts.Password)
	}
	if !opts.Order {
		t.Error("Order = false, want in-order delivery")
	}
	if !opts.AutoReconnect || !opts.ConnectRetry {
		t.Error("AutoReconnect and ConnectRetry should both be enabled")
	}
	if opts.ResumeSubs {
		t.Error("ResumeSubs = true, want false")
	}
	if opts.KeepAlive != 30 {
		t.Errorf("KeepAlive = %d, want 30", opts.KeepAlive)
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	cfg.KeepAlive = 0

	opts := buildClientOptions(cfg)

	if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers[0] = %v, want ssl://127.0.0.1:8883", opts.Servers[0])
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config should enforce the minimum version")
	}
	if opts.KeepAlive != int64(defaultKeepAlive.Seconds()) {
		t.Errorf("KeepAlive = %d, want default %v", opts.KeepAlive, defaultKeepAlive)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, Topics{Root: "vacs"}, "robovac-test")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "vacs/bridge/status" {
		t.Errorf("WillTopic = %q, want %q", opts.WillTopic, "vacs/bridge/status")
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}
	if !strings.Contains(string(opts.WillPayload), `"status":"offline"`) {
		t.Errorf("WillPayload = %s, want offline status", opts.WillPayload)
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("abc")
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, `"client_id":"abc"`) {
		t.Errorf("buildOnlinePayload() = %s", online)
	}

	offline := buildOfflinePayload("abc")
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("buildOfflinePayload() = %s", offline)
	}
}

// =============================================================================
// Disconnected Client Tests
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	if (&Client{}).IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}

	if New(testConfig(), Topics{}).IsConnected() {
		t.Error("IsConnected() should be false before Connect")
	}
}

func TestPublishValidation(t *testing.T) {
	client := New(testConfig(), Topics{})

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{name: "empty topic", topic: "", payload: []byte("x"), qos: 0, want: ErrInvalidTopic},
		{name: "invalid qos", topic: "a/b", payload: []byte("x"), qos: 3, want: ErrInvalidQoS},
		{name: "oversized payload", topic: "a/b", payload: make([]byte, maxPayloadSize+1), qos: 0, want: ErrPublishFailed},
		{name: "not connected", topic: "a/b", payload: []byte("x"), qos: 0, want: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
			if err := client.PublishAsync(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("PublishAsync() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := New(testConfig(), Topics{})
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 0, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("a/#", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("a/#", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("a/#", 0, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(empty) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("a/#"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestDeliver_RecoversPanic(t *testing.T) {
	client := New(testConfig(), Topics{})
	logger := &mockLogger{}
	client.SetLogger(logger)

	client.deliver(func(string, []byte) error {
		panic("boom")
	}, "roborock/x/commands/app_start", []byte("true"))

	if len(logger.errors) != 1 {
		t.Errorf("logged errors = %v, want one panic report", logger.errors)
	}
}

func TestDeliver_LogsHandlerError(t *testing.T) {
	client := New(testConfig(), Topics{})
	logger := &mockLogger{}
	client.SetLogger(logger)

	var gotTopic, gotPayload string
	client.deliver(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return errors.New("handler error")
	}, "roborock/x/commands/app_start", []byte("true"))

	if gotTopic != "roborock/x/commands/app_start" || gotPayload != "true" {
		t.Errorf("handler got (%q, %q)", gotTopic, gotPayload)
	}
	if len(logger.warns) != 1 {
		t.Errorf("logged warnings = %v, want one", logger.warns)
	}
}

func TestDeliver_NoLogger(t *testing.T) {
	client := New(testConfig(), Topics{})

	// Must not panic without a logger.
	client.deliver(func(string, []byte) error {
		panic("boom")
	}, "t", nil)
}

func TestHandleDisconnect_InvokesCallback(t *testing.T) {
	client := New(testConfig(), Topics{})

	var got error
	client.SetOnDisconnect(func(err error) { got = err })

	lost := errors.New("EOF")
	client.handleDisconnect(lost)

	if !errors.Is(got, lost) {
		t.Errorf("onDisconnect got %v, want %v", got, lost)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after disconnect")
	}
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{Root: "roborock"}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "State", got: topics.State("living_room", "deviceStatus", "battery"), expected: "roborock/living_room/deviceStatus/battery"},
		{name: "State deep field", got: topics.State("living_room", "cleaningRecords", "0", "area"), expected: "roborock/living_room/cleaningRecords/0/area"},
		{name: "Section", got: topics.Section("living_room", "commands"), expected: "roborock/living_room/commands/#"},
		{name: "Device", got: topics.Device("living_room"), expected: "roborock/living_room/#"},
		{name: "Status", got: topics.Status(), expected: "roborock/bridge/status"},
		{name: "All", got: topics.All(), expected: "roborock/#"},
		{name: "default root", got: Topics{}.Status(), expected: DefaultRoot + "/bridge/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestTopicsSplit(t *testing.T) {
	topics := Topics{Root: "roborock"}

	tests := []struct {
		topic   string
		slug    string
		section string
		field   string
		ok      bool
	}{
		{topic: "roborock/living_room/commands/app_start", slug: "living_room", section: "commands", field: "app_start", ok: true},
		{topic: "roborock/living_room/cleaningRecords/0/area", slug: "living_room", section: "cleaningRecords", field: "0/area", ok: true},
		{topic: "roborock/living_room/commands", ok: false},
		{topic: "roborock/bridge/status", ok: false},
		{topic: "other/living_room/commands/app_start", ok: false},
		{topic: "roborock/living_room//app_start", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			slug, section, field, ok := topics.Split(tt.topic)
			if ok != tt.ok {
				t.Fatalf("Split() ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if slug != tt.slug || section != tt.section || strings.Join(field, "/") != tt.field {
				t.Errorf("Split() = (%q, %q, %v), want (%q, %q, %q)", slug, section, field, tt.slug, tt.section, tt.field)
			}
		})
	}
}
