//go:build !sqlite_fts5

package journal

import (
	"database/sql"
	"fmt"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the moves table.
	return nil
}

func ftsInsert(_ *sql.Tx, _ int64, _, _, _ string) error { return nil }

// Search performs a LIKE-based search over file names and folders
// (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.Query(`
		SELECT id, cycle_id, name, src, dst, folder, kind, size, error, at
		FROM moves
		WHERE name LIKE ? ESCAPE '\' OR folder LIKE ? ESCAPE '\' OR dst LIKE ? ESCAPE '\'
		ORDER BY id DESC
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: search: %w", err)
	}
	return scanEntries(rows)
}
