// Package api implements the local HTTP API and WebSocket stream of the bridge.
//
// This package provides:
//   - REST endpoints to list devices, read and write state entries and
//     export merged capability schemas
//   - A WebSocket hub that relays state changes to subscribed clients
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Optional TLS
//
// # Architecture
//
// The server is a second application layer next to the broker. Writes go
// through the same bridge as every other write, so they are published to
// MQTT exactly like writes from any other caller. Changes arriving from
// the broker reach WebSocket clients through the bridge change handler:
//
//	hub := api.NewHub(cfg.WebSocket, log)
//	b, _ := bridge.New(bridge.Options{
//	    OnChange: func(id string, e state.Entry) {
//	        hub.Broadcast(api.ChannelStateChanged, api.NewStateEvent(id, e))
//	    },
//	    ...
//	})
//
// # Security
//
// There is no authentication. Bind the listener to a trusted interface.
package api
