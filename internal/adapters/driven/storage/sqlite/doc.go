// Package sqlite provides a SQLite-based implementation of the
// AuthorizationStore driven port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// The authorizations table has a unique index on (owner_id, service_identifier).
//
// # Data Location
//
// By default, the database is stored at ~/.delegate/data/authorizations.db
//
// # Secrets
//
// Token columns are written exactly as received. Wrap the store with
// storage/sealed to keep them encrypted at rest.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
