//go:build integration

package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/robovac-bridge/internal/infrastructure/config"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func connectIntegration(t *testing.T, clientID string) *Client {
	t.Helper()

	client := New(integrationConfig(clientID), Topics{Root: "robovac-int"})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIntegration_ConnectAndClose(t *testing.T) {
	client := connectIntegration(t, "robovac-int-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !errors.Is(client.HealthCheck(context.Background()), ErrNotConnected) {
		t.Error("HealthCheck() after Close should report ErrNotConnected")
	}
}

func TestIntegration_OnConnectFires(t *testing.T) {
	client := New(integrationConfig("robovac-int-onconnect"), Topics{Root: "robovac-int"})

	called := make(chan struct{}, 1)
	client.SetOnConnect(func() {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	select {
	case <-called:
	case <-time.After(5 * time.Second):
		t.Error("OnConnect callback not invoked")
	}
}

func TestIntegration_StatusRetained(t *testing.T) {
	_ = connectIntegration(t, "robovac-int-status")
	observer := connectIntegration(t, "robovac-int-status-observer")

	received := make(chan string, 4)
	err := observer.Subscribe(observer.Topics().Status(), 1, func(_ string, p []byte) error {
		received <- string(p)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg == "" {
			t.Error("empty retained status")
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for retained status")
	}
}

func TestIntegration_MessageRoundtrip(t *testing.T) {
	pub := connectIntegration(t, "robovac-int-pub")
	sub := connectIntegration(t, "robovac-int-sub")

	topics := sub.Topics()
	received := make(chan string, 1)
	var once sync.Once

	err := sub.Subscribe(topics.Section("living_room", "commands"), 1, func(topic string, p []byte) error {
		once.Do(func() { received <- topic + "=" + string(p) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	topic := topics.State("living_room", "commands", "app_start")
	if err := pub.PublishAsync(topic, []byte("true"), 1, false); err != nil {
		t.Fatalf("PublishAsync() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg != topic+"=true" {
			t.Errorf("Received = %q, want %q", msg, topic+"=true")
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for message")
	}
}

func TestIntegration_ConnectTimeoutKeepsRetrying(t *testing.T) {
	cfg := integrationConfig("robovac-int-refused")
	cfg.Broker.Port = 19998

	client := New(cfg, Topics{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := client.Connect(ctx); !errors.Is(err, ErrTimeout) {
		t.Errorf("Connect() error = %v, want ErrTimeout", err)
	}
	_ = client.Close()
}
