// Package mqtt provides MQTT client connectivity for the vacuum bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and connect retry
//   - Message publishing, blocking or fire-and-forget
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge mirrors vacuum state onto topics below a configurable root:
//
//	<root>/<device-slug>/<section>/<field>
//	<root>/bridge/status
//
// Inbound messages are delivered one at a time in broker order
// (paho OrderMatters). Subscriptions are owned by the caller, which
// reissues them from the SetOnConnect callback.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) for brokers outside the host
//   - Credentials are passed to the broker unchanged
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT, mqtt.Topics{Root: cfg.Bridge.Topic})
//	client.SetLogger(log)
//	client.SetOnConnect(subs.Resubscribe)
//	if err := client.Connect(ctx); err != nil {
//	    if !errors.Is(err, mqtt.ErrTimeout) {
//	        return err
//	    }
//	    log.Warn("broker not reachable yet, retrying in background")
//	}
//	defer client.Close()
//
//	topic := client.Topics().State("living_room", "deviceStatus", "battery")
//	client.PublishAsync(topic, []byte("80"), 0, false)
package mqtt
