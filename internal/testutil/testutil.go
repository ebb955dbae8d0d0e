// Package testutil provides shared test helpers for wiring a service over
// temporary rules, journal and watch folders.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/language"

	"github.com/starford/tidy/internal/classify"
	"github.com/starford/tidy/internal/journal"
	"github.com/starford/tidy/internal/locale"
	"github.com/starford/tidy/internal/models"
	"github.com/starford/tidy/internal/organizer"
	"github.com/starford/tidy/internal/rules"
	"github.com/starford/tidy/internal/tidyservice"
)

// Env is a fully wired service with handles on its parts.
type Env struct {
	Service   *tidyservice.Service
	Rules     *rules.Store
	Organizer *organizer.Organizer
	Journal   *journal.DB
	// Target is an empty directory ready to be organized.
	Target string
}

// Logger returns a logger that only prints errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestJournal creates a temporary journal database that is automatically cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tidy-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRules creates a rule store over a fresh rules file holding the defaults.
func TestRules(t *testing.T) *rules.Store {
	t.Helper()
	store := rules.New(filepath.Join(t.TempDir(), "rules.json"), Logger())
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	return store
}

// TestEnv wires a service with English folder names. Cycles are journaled.
func TestEnv(t *testing.T, opts ...organizer.Option) *Env {
	t.Helper()
	store := TestRules(t)
	db := TestJournal(t)
	c := classify.New(classify.NewTable(classify.DefaultCategories()), locale.For(language.English))

	opts = append([]organizer.Option{
		organizer.WithLogger(Logger()),
		organizer.WithReporter(organizer.CycleFunc(func(r models.CycleReport) {
			if err := db.Record(r); err != nil {
				t.Errorf("journal record: %v", err)
			}
		})),
	}, opts...)
	org := organizer.New(store, c, opts...)
	t.Cleanup(func() { _ = org.Stop() })

	return &Env{
		Service:   tidyservice.NewService(store, c, org, db),
		Rules:     store,
		Organizer: org,
		Journal:   db,
		Target:    t.TempDir(),
	}
}

// WriteFiles creates empty-ish files with the given names in dir.
func WriteFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
