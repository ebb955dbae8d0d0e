package journal

import (
	"fmt"
	"time"

	"github.com/starford/tidy/internal/models"
)

// Journal defines the journal operations used by the UI surfaces.
type Journal interface {
	Record(r models.CycleReport) error
	Recent(limit int) ([]Entry, error)
	Search(query string, limit int) ([]Entry, error)
	Stats() ([]FolderStat, error)
	Close() error
}

// Verify *DB satisfies Journal at compile time.
var _ Journal = (*DB)(nil)

// Entry is one recorded move attempt.
type Entry struct {
	ID      int64     `json:"id"`
	CycleID string    `json:"cycle_id"`
	Name    string    `json:"name"`
	From    string    `json:"from"`
	To      string    `json:"to,omitempty"`
	Folder  string    `json:"folder"`
	Kind    string    `json:"kind"`
	Size    int64     `json:"size"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// FolderStat counts successful moves per destination folder.
type FolderStat struct {
	Folder string `json:"folder"`
	Kind   string `json:"kind"`
	Files  int    `json:"files"`
	Bytes  int64  `json:"bytes"`
}

const defaultLimit = 50

// Record stores a cycle and every move attempt in it. Cycles that did
// nothing are skipped.
func (db *DB) Record(r models.CycleReport) error {
	if r.Empty() {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO cycles (id, target, started_at, finished_at, moved, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Target, r.StartedAt, r.FinishedAt, len(r.Moved), len(r.Failed), r.Error)
	if err != nil {
		return fmt.Errorf("journal: insert cycle: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO moves (cycle_id, name, src, dst, folder, kind, size, error, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("journal: prepare move insert: %w", err)
	}
	defer stmt.Close()

	results := make([]models.MoveResult, 0, len(r.Moved)+len(r.Failed))
	results = append(results, r.Moved...)
	results = append(results, r.Failed...)
	for _, m := range results {
		res, err := stmt.Exec(r.ID, m.Name, m.From, m.To, m.Folder, m.Kind, m.Size, m.Error, r.FinishedAt)
		if err != nil {
			return fmt.Errorf("journal: insert move: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("journal: move id: %w", err)
		}
		if err := ftsInsert(tx, id, m.Name, m.Folder, m.To); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Recent returns the newest move attempts first.
func (db *DB) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := db.conn.Query(`
		SELECT id, cycle_id, name, src, dst, folder, kind, size, error, at
		FROM moves
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	return scanEntries(rows)
}

// Stats returns per-folder totals of successful moves, busiest first.
func (db *DB) Stats() ([]FolderStat, error) {
	rows, err := db.conn.Query(`
		SELECT folder, kind, COUNT(*), COALESCE(SUM(size), 0)
		FROM moves
		WHERE error = ''
		GROUP BY folder, kind
		ORDER BY COUNT(*) DESC, folder
	`)
	if err != nil {
		return nil, fmt.Errorf("journal: stats: %w", err)
	}
	defer rows.Close()

	var out []FolderStat
	for rows.Next() {
		var s FolderStat
		if err := rows.Scan(&s.Folder, &s.Kind, &s.Files, &s.Bytes); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanEntries(rows rowScanner) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CycleID, &e.Name, &e.From, &e.To, &e.Folder, &e.Kind, &e.Size, &e.Error, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
