// Package index provides a SQLite-backed index of dated agenda entries.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	position   INTEGER NOT NULL DEFAULT 0,
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
	path             TEXT NOT NULL REFERENCES documents(path) ON DELETE CASCADE,
	seq              INTEGER NOT NULL,
	file             TEXT NOT NULL,
	line             INTEGER NOT NULL,
	col              INTEGER NOT NULL DEFAULT 0,
	ts               INTEGER NOT NULL,
	has_time         INTEGER NOT NULL DEFAULT 0,
	weekday          TEXT NOT NULL DEFAULT '',
	repeater         TEXT NOT NULL DEFAULT '',
	weekday_mismatch INTEGER NOT NULL DEFAULT 0,
	text             TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (path, seq)
);

CREATE TABLE IF NOT EXISTS problems (
	path   TEXT NOT NULL REFERENCES documents(path) ON DELETE CASCADE,
	seq    INTEGER NOT NULL,
	file   TEXT NOT NULL,
	line   INTEGER NOT NULL,
	col    INTEGER NOT NULL DEFAULT 0,
	raw    TEXT NOT NULL DEFAULT '',
	cause  TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (path, seq)
);

CREATE INDEX IF NOT EXISTS idx_entries_ts ON entries(ts);
CREATE INDEX IF NOT EXISTS idx_documents_position ON documents(position);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database connection is still usable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
