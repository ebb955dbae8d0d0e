//go:build sqlite_fts5

package journal

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS moves_fts USING fts5(
			name,
			folder,
			dst,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, id int64, name, folder, dst string) error {
	_, err := tx.Exec(`INSERT INTO moves_fts (rowid, name, folder, dst) VALUES (?, ?, ?, ?)`,
		id, name, folder, dst)
	if err != nil {
		return fmt.Errorf("journal: insert fts: %w", err)
	}
	return nil
}

// phrase quotes q as a single FTS5 string so file names with dots,
// underscores or operators are matched literally.
func phrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

// Search performs an FTS5 full-text search over file names and folders.
func (db *DB) Search(query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := db.conn.Query(`
		SELECT m.id, m.cycle_id, m.name, m.src, m.dst, m.folder, m.kind, m.size, m.error, m.at
		FROM moves_fts
		JOIN moves m ON m.id = moves_fts.rowid
		WHERE moves_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, phrase(query), limit)
	if err != nil {
		return nil, fmt.Errorf("journal: search: %w", err)
	}
	return scanEntries(rows)
}
