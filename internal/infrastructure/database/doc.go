// Package database provides SQLite connectivity for the bridge.
//
// This package manages:
//   - Database connection with optional WAL mode
//   - Schema migrations embedded in the binary (see the migrations package)
//   - Connection lifecycle and health checks
//
// The state store uses it for the "sqlite" persistence backend, where the
// whole state document is kept as a single snapshot row.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Migrations are additive only.
package database
