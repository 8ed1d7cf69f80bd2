// Package dbopen opens SQLite databases with the pragmas a concurrent
// service needs. Pragmas are applied via Exec after opening, so they take
// effect regardless of which database/sql driver is registered (DSN-style
// pragma parameters are driver-specific and silently ignored by some).
//
// Default pragmas:
//
//	foreign_keys = ON
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
//
// The caller registers the driver:
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("presskit.db")
//
// In tests:
//
//	db := dbopen.OpenMemory(t)
package dbopen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const driverName = "sqlite"

type options struct {
	busyTimeoutMs int
	synchronous   string
	foreignKeys   bool
	mkdirAll      bool
	schemas       []string
	ping          bool
}

// Option customises Open behaviour.
type Option func(*options)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeoutMs = ms } }

// WithSynchronous sets PRAGMA synchronous. Default: "NORMAL".
func WithSynchronous(mode string) Option { return func(o *options) { o.synchronous = mode } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// WithSchema queues DDL to execute after the pragmas are applied. Schemas
// run in the order the options were given; use IF NOT EXISTS statements so
// reopening an existing database is safe.
func WithSchema(ddl string) Option { return func(o *options) { o.schemas = append(o.schemas, ddl) } }

// WithoutPing skips the db.Ping() verification after opening.
func WithoutPing() Option { return func(o *options) { o.ping = false } }

// WithoutForeignKeys disables PRAGMA foreign_keys.
func WithoutForeignKeys() Option { return func(o *options) { o.foreignKeys = false } }

// Open opens the SQLite database at path, applies the pragmas, and runs any
// queued schema DDL. On any failure the half-opened handle is closed.
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := options{
		busyTimeoutMs: 10_000,
		synchronous:   "NORMAL",
		foreignKeys:   true,
		ping:          true,
	}
	for _, fn := range opts {
		fn(&o)
	}

	if o.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}

	fk := "ON"
	if !o.foreignKeys {
		fk = "OFF"
	}
	pragmas := []string{
		"PRAGMA foreign_keys = " + fk,
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeoutMs),
		"PRAGMA synchronous = " + o.synchronous,
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: %s: %w", p, err)
		}
	}

	for _, ddl := range o.schemas {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: schema: %w", err)
		}
	}

	if o.ping {
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: ping: %w", err)
		}
	}

	return db, nil
}

// OpenMemory opens an in-memory SQLite database for testing. It caps the
// pool at one connection, because every new connection to ":memory:" gets
// its own empty database. Closing is registered via t.Cleanup.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
