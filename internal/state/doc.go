// Package state holds the bridge's state tree and persists it between runs.
//
// Every state is addressed by an ID of the form
//
//	<namespace>.<duid>.<section>.<field>
//
// and carries a value, an ack flag and optionally the capability
// descriptor declared for it.
//
// # Acknowledgement
//
// A value with ack=true was confirmed by the device side; ack=false marks a
// pending request or a value restored from disk. Restore clears every ack,
// which makes the first confirmed write after a restart a change even when
// the value is the same, so the broker is brought back in sync.
//
// # Persistence
//
// The store is snapshotted whole. FileStorage writes a JSON file
// atomically; SQLiteStorage upserts a single row via the database package.
//
// # Thread Safety
//
// All Store methods are safe for concurrent use.
package state
