// Package bridge mirrors vacuum state onto MQTT and back.
//
// # Outbound
//
// Bridge.Write stores a value. When the value or its ack changed and the
// state is not excluded (command channels, bookkeeping fields), the Codec
// encodes it and it is published to
//
//	<root>/<device-slug>/<section>/<field>
//
// Enum fields publish their label ("Balanced" rather than 102).
//
// # Inbound
//
// Messages on subscribed topics are resolved back to a state id through
// the device registry, decoded (label to wire value, then JSON), stored
// with ack=true and handed to the change handler.
//
// # Subscriptions
//
// Subscribed topics are recorded. Wire Bridge.Resubscribe to the broker
// connect callback so they are reissued after every reconnect.
//
// # Thread Safety
//
// All Bridge methods are safe for concurrent use. Message handling must
// not block the MQTT client: publishes are asynchronous and the change
// handler runs outside the bridge lock.
package bridge
