// Package client bootstraps the local SQLite database used by the companion
// client: it opens the file, applies connection pragmas and runs the embedded
// goose migrations (see InitDatabase and RunMigrations).
//
// The returned *sql.DB is limited to a single open connection. The record
// store serializes its own access, so a second connection would only add
// SQLITE_BUSY contention.
package client
