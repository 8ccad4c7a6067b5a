// Package database manages the SQLite connection and schema migrations.
//
// SQLite is a deliberate choice for HomeSync: a single local file, no
// external service, and WAL mode gives concurrent readers alongside the
// single writer. Migrations are embedded into the binary and applied at
// startup, each in its own transaction.
package database
