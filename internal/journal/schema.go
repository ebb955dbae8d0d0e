// Package journal records move outcomes in SQLite so that UI surfaces can
// show recent activity. Rules are not stored here.
package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS cycles (
	id          TEXT PRIMARY KEY,
	target      TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	moved       INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS moves (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id TEXT NOT NULL REFERENCES cycles(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	src      TEXT NOT NULL,
	dst      TEXT NOT NULL DEFAULT '',
	folder   TEXT NOT NULL,
	kind     TEXT NOT NULL,
	size     INTEGER NOT NULL DEFAULT 0,
	error    TEXT NOT NULL DEFAULT '',
	at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_moves_cycle ON moves(cycle_id);
CREATE INDEX IF NOT EXISTS idx_moves_folder ON moves(folder);
`

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
