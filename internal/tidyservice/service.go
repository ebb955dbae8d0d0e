// Package tidyservice is the operation layer shared by the HTTP API, the
// MCP server and the CLI.
package tidyservice

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/tidy/internal/apperr"
	"github.com/starford/tidy/internal/classify"
	"github.com/starford/tidy/internal/journal"
	"github.com/starford/tidy/internal/models"
	"github.com/starford/tidy/internal/organizer"
	"github.com/starford/tidy/internal/rules"
)

// Bucket is one fallback folder with the extensions routed to it.
type Bucket struct {
	Category   string   `json:"category"`
	Folder     string   `json:"folder"`
	Extensions []string `json:"extensions"`
}

// Classification is a dry-run answer for a single file name.
type Classification struct {
	Name string `json:"name"`
	classify.Destination
	Rule *models.Rule `json:"rule,omitempty"`
}

// CycleResult is returned by Cycle. Report is nil when the cycle was handed
// to the running loop instead of run in place.
type CycleResult struct {
	Triggered bool                `json:"triggered"`
	Report    *models.CycleReport `json:"report,omitempty"`
}

// Service coordinates the rule store, classifier, organizer and journal.
type Service struct {
	rules      *rules.Store
	classifier *classify.Classifier
	organizer  *organizer.Organizer
	journal    journal.Journal
}

// NewService creates a new service.
func NewService(store *rules.Store, c *classify.Classifier, o *organizer.Organizer, j journal.Journal) *Service {
	return &Service{rules: store, classifier: c, organizer: o, journal: j}
}

// Rules returns the current rule list in priority order.
func (s *Service) Rules(_ context.Context) []models.Rule {
	return nonNilSlice(s.rules.Rules())
}

// AddRule appends a rule and returns its index.
func (s *Service) AddRule(_ context.Context, keyword, folder string) (int, models.Rule, error) {
	return s.rules.Add(models.Rule{Keyword: keyword, Folder: folder})
}

// UpdateRule replaces the rule at index.
func (s *Service) UpdateRule(_ context.Context, index int, keyword, folder string) (models.Rule, error) {
	return s.rules.Update(index, models.Rule{Keyword: keyword, Folder: folder})
}

// RemoveRules deletes the rules at indices. The caller must have asked the
// user first; confirm=false removes nothing.
func (s *Service) RemoveRules(_ context.Context, indices []int, confirm bool) error {
	if !confirm {
		return apperr.ErrNotConfirmed
	}
	return s.rules.Remove(indices...)
}

// Classify reports where a file called name would be moved, without
// touching the file system.
func (s *Service) Classify(_ context.Context, name string) (Classification, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Classification{}, fmt.Errorf("%w: file name is required", apperr.ErrInvalidRule)
	}
	list := s.rules.Rules()
	dest := s.classifier.Classify(name, list)
	out := Classification{Name: name, Destination: dest}
	if dest.Kind == classify.KindRule {
		r := list[dest.RuleIndex]
		out.Rule = &r
	}
	return out, nil
}

// Buckets lists the extension categories with their localized folder
// names, followed by the Other bucket.
func (s *Service) Buckets(_ context.Context) []Bucket {
	cat := s.classifier.Catalog()
	cats := s.classifier.Table().Categories()
	out := make([]Bucket, 0, len(cats)+1)
	for _, c := range cats {
		exts := append([]string(nil), c.Extensions...)
		sort.Strings(exts)
		out = append(out, Bucket{Category: c.ID, Folder: cat.CategoryFolder(c.ID), Extensions: exts})
	}
	out = append(out, Bucket{Category: string(classify.KindOther), Folder: cat.OtherFolder(), Extensions: []string{}})
	return out
}

// Status returns the organizer snapshot.
func (s *Service) Status(_ context.Context) organizer.Status {
	return s.organizer.Status()
}

// Start launches the organizer loop on target. ctx bounds the loop's
// lifetime, so callers pass a context that outlives the request.
func (s *Service) Start(ctx context.Context, target string) error {
	return s.organizer.Start(ctx, target)
}

// Stop ends the organizer loop.
func (s *Service) Stop(_ context.Context) error {
	return s.organizer.Stop()
}

// Cycle organizes target once. With an empty target the running loop is
// asked for an immediate cycle.
func (s *Service) Cycle(ctx context.Context, target string) (CycleResult, error) {
	if strings.TrimSpace(target) == "" {
		if !s.organizer.Running() {
			return CycleResult{}, apperr.ErrNoTarget
		}
		if err := s.organizer.Trigger(); err != nil {
			return CycleResult{}, err
		}
		return CycleResult{Triggered: true}, nil
	}
	report, err := s.organizer.RunOnce(ctx, target)
	if err != nil {
		return CycleResult{}, err
	}
	report.Moved = nonNilSlice(report.Moved)
	report.Failed = nonNilSlice(report.Failed)
	return CycleResult{Report: &report}, nil
}

// Activity returns journaled move attempts, newest first. A non-empty
// query searches file names and folders instead.
func (s *Service) Activity(_ context.Context, query string, limit int) ([]journal.Entry, error) {
	var (
		entries []journal.Entry
		err     error
	)
	if q := strings.TrimSpace(query); q != "" {
		entries, err = s.journal.Search(q, limit)
	} else {
		entries, err = s.journal.Recent(limit)
	}
	if err != nil {
		return nil, err
	}
	return nonNilSlice(entries), nil
}

// ActivityStats returns per-folder totals of successful moves.
func (s *Service) ActivityStats(_ context.Context) ([]journal.FolderStat, error) {
	stats, err := s.journal.Stats()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(stats), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
