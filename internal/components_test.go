package internal

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_OrganizerLeavesOwnFilesInTarget(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.App.Lang = "en"
	cfg.Rules.Path = filepath.Join(dir, "rules.json")
	cfg.Journal.Path = filepath.Join(dir, "tidy.db")

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	comps, err := Open(cfg, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer comps.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// The journal exists as tidy.db plus its WAL side files while open.
	if err := os.WriteFile(cfg.Journal.Path+"-journal", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := comps.Organizer.RunOnce(context.Background(), dir)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	for _, m := range report.Moved {
		if m.Name != "notes.txt" {
			t.Errorf("moved %s -> %s", m.Name, m.To)
		}
	}
	if len(report.Moved) != 1 {
		t.Errorf("moved = %d, want 1", len(report.Moved))
	}

	for _, p := range []string{cfg.Rules.Path, cfg.Journal.Path, cfg.Journal.Path + "-journal"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s gone from its configured path: %v", filepath.Base(p), err)
		}
	}
	if got := comps.Rules.Rules(); len(got) != 2 {
		t.Errorf("rules = %v", got)
	}
	if _, err := comps.Journal.Recent(10); err != nil {
		t.Errorf("journal unusable after cycle: %v", err)
	}
}
