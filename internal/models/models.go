// Package models defines the domain types for tidy.
package models

import "time"

// Rule routes every file whose name contains Keyword into Folder.
// Folder is resolved against the watch target unless it is absolute.
type Rule struct {
	Keyword string `json:"keyword"`
	Folder  string `json:"folder"`
}

// FileEntry is one candidate file found in the watch target.
type FileEntry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// MoveResult is the outcome of classifying and moving a single file.
type MoveResult struct {
	Name   string `json:"name"`
	From   string `json:"from"`
	To     string `json:"to,omitempty"`
	Folder string `json:"folder"`
	Kind   string `json:"kind"` // "rule", "category", "extension" or "other"
	Size   int64  `json:"size"`
	Error  string `json:"error,omitempty"`
	Err    error  `json:"-"`
}

// CycleReport aggregates one pass over the watch target.
type CycleReport struct {
	ID         string       `json:"id"`
	Target     string       `json:"target"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Moved      []MoveResult `json:"moved"`
	Failed     []MoveResult `json:"failed"`
	Error      string       `json:"error,omitempty"`
	Err        error        `json:"-"`
}

// Empty reports whether the cycle neither moved nor failed anything.
func (r CycleReport) Empty() bool {
	return len(r.Moved) == 0 && len(r.Failed) == 0 && r.Err == nil
}
