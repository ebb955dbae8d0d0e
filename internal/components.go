package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/tidy/internal/apperr"
	"github.com/starford/tidy/internal/classify"
	"github.com/starford/tidy/internal/journal"
	"github.com/starford/tidy/internal/locale"
	"github.com/starford/tidy/internal/models"
	"github.com/starford/tidy/internal/organizer"
	"github.com/starford/tidy/internal/rules"
	"github.com/starford/tidy/internal/tidyservice"
)

// Components are the long-lived services built from a Config. The server,
// the MCP server and the CLI subcommands all start from here.
type Components struct {
	Config     *Config
	Logger     *slog.Logger
	Catalog    *locale.Catalog
	Rules      *rules.Store
	Classifier *classify.Classifier
	Journal    *journal.DB
	Organizer  *organizer.Organizer
	Service    *tidyservice.Service
}

// NewCatalog picks the string table for cfg.App.Lang, or for the process
// locale when no language is configured.
func NewCatalog(cfg *Config) *locale.Catalog {
	return locale.For(locale.Detect(cfg.App.Lang))
}

// Open loads the rules, opens the journal and assembles the organizer.
// Extra reporters receive every cycle after the log and journal reporters.
func Open(cfg *Config, logger *slog.Logger, reporters ...organizer.Reporter) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := NewCatalog(cfg)

	store := rules.New(cfg.Rules.Path, logger)
	if err := store.Load(); err != nil {
		// The defaults are in memory; only persisting them failed.
		logger.Warn("rules: could not write defaults", slog.String("error", err.Error()))
	}

	classifier := classify.New(classify.TableFromConfig(cfg.Buckets), catalog)

	if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}

	opts := []organizer.Option{
		organizer.WithInterval(cfg.Organizer.Interval),
		organizer.WithLogger(logger),
		organizer.WithExclude(ownFiles(cfg)...),
		organizer.WithReporter(organizer.LogReporter{Logger: logger}),
		organizer.WithReporter(organizer.CycleFunc(func(r models.CycleReport) {
			if err := db.Record(r); err != nil {
				logger.Error("journal: record failed",
					slog.String("cycle", r.ID),
					slog.String("error", err.Error()))
			}
		})),
	}
	for _, r := range reporters {
		opts = append(opts, organizer.WithReporter(r))
	}
	org := organizer.New(store, classifier, opts...)

	return &Components{
		Config:     cfg,
		Logger:     logger,
		Catalog:    catalog,
		Rules:      store,
		Classifier: classifier,
		Journal:    db,
		Organizer:  org,
		Service:    tidyservice.NewService(store, classifier, org, db),
	}, nil
}

// ownFiles lists the files tidy keeps open or rewrites. The organizer
// never moves them, even when they live in the watch target.
func ownFiles(cfg *Config) []string {
	db := cfg.Journal.Path
	return []string{cfg.Rules.Path, db, db + "-wal", db + "-shm", db + "-journal"}
}

// Close stops the organizer if it is running and closes the journal.
func (c *Components) Close() error {
	if err := c.Organizer.Stop(); err != nil && !errors.Is(err, apperr.ErrNotRunning) {
		c.Logger.Warn("organizer: stop failed", slog.String("error", err.Error()))
	}
	return c.Journal.Close()
}
