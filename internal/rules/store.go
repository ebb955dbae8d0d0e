// Package rules owns the ordered keyword rule list and its JSON file.
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tidy/internal/apperr"
	"github.com/starford/tidy/internal/checksum"
	"github.com/starford/tidy/internal/models"
	"github.com/starford/tidy/internal/storage"
)

// DefaultRules returns the rules installed when no rules file exists.
func DefaultRules() []models.Rule {
	return []models.Rule{
		{Keyword: "fattura", Folder: "Documenti/Fatture"},
		{Keyword: "screenshot", Folder: "Immagini/Screenshots"},
	}
}

// ChangeFunc is called with a copy of the rule list after every change,
// including reloads triggered by external edits.
type ChangeFunc func([]models.Rule)

// Store is the single owner of the rule list. All methods are safe for
// concurrent use; readers get copies.
type Store struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	rules    []models.Rule
	lastSum  string // checksum of the bytes this process last wrote or read
	onChange []ChangeFunc
}

// New creates a store for the rules file at path. Call Load before use.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger, rules: DefaultRules()}
}

// Path returns the rules file location.
func (s *Store) Path() string { return s.path }

// OnChange registers fn to run after the list changes.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Load reads the rules file. A missing file is replaced by the defaults,
// which are written out; the returned error only reports that write. A
// malformed or unreadable file leaves the defaults in memory and is logged,
// not returned.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		s.rules = DefaultRules()
		s.mu.Unlock()
		s.logger.Info("rules: file missing, installing defaults", slog.String("path", s.path))
		if err := s.Save(); err != nil {
			return err
		}
		s.notify()
		return nil
	}
	if err != nil {
		s.fallback(err)
		return nil
	}

	list, err := decode(data)
	if err != nil {
		s.fallback(err)
		return nil
	}
	for _, skipped := range list.dropped {
		s.logger.Warn("rules: dropping incomplete rule", slog.Int("index", skipped))
	}

	s.mu.Lock()
	s.rules = list.rules
	s.lastSum = checksum.Sum(data)
	s.mu.Unlock()

	s.logger.Debug("rules: loaded", slog.String("path", s.path), slog.Int("count", len(list.rules)))
	s.notify()
	return nil
}

func (s *Store) fallback(err error) {
	s.logger.Warn("rules: load failed, using defaults",
		slog.String("path", s.path),
		slog.String("error", err.Error()))
	s.mu.Lock()
	s.rules = DefaultRules()
	s.mu.Unlock()
	s.notify()
}

// Save writes the whole list to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := encode(s.rules)
	if err != nil {
		return fmt.Errorf("rules: encode: %w", err)
	}
	if err := storage.WriteFileAtomic(s.path, data); err != nil {
		s.logger.Error("rules: save failed", slog.String("path", s.path), slog.String("error", err.Error()))
		return fmt.Errorf("rules: save %s: %w", s.path, err)
	}
	s.lastSum = checksum.Sum(data)
	return nil
}

// Rules returns a copy of the current list.
func (s *Store) Rules() []models.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Rule(nil), s.rules...)
}

// Add appends r after validating it and persists the list. It returns the
// index r was stored at.
func (s *Store) Add(r models.Rule) (int, models.Rule, error) {
	r, err := Normalize(r)
	if err != nil {
		return -1, models.Rule{}, err
	}
	index := -1
	err = s.mutate(func(list []models.Rule) ([]models.Rule, error) {
		index = len(list)
		return append(list, r), nil
	})
	if err != nil {
		return -1, models.Rule{}, err
	}
	return index, r, nil
}

// Update replaces the rule at index i and persists the list.
func (s *Store) Update(i int, r models.Rule) (models.Rule, error) {
	r, err := Normalize(r)
	if err != nil {
		return models.Rule{}, err
	}
	err = s.mutate(func(list []models.Rule) ([]models.Rule, error) {
		if i < 0 || i >= len(list) {
			return nil, fmt.Errorf("rule %d: %w", i, apperr.ErrNotFound)
		}
		list[i] = r
		return list, nil
	})
	return r, err
}

// Remove deletes the rules at the given positions and persists the list.
// Positions may be given in any order and may repeat; if any is out of
// range nothing is removed.
func (s *Store) Remove(indices ...int) error {
	if len(indices) == 0 {
		return fmt.Errorf("%w: no rule selected", apperr.ErrInvalidRule)
	}
	return s.mutate(func(list []models.Rule) ([]models.Rule, error) {
		uniq := make(map[int]struct{}, len(indices))
		for _, i := range indices {
			if i < 0 || i >= len(list) {
				return nil, fmt.Errorf("rule %d: %w", i, apperr.ErrNotFound)
			}
			uniq[i] = struct{}{}
		}
		order := make([]int, 0, len(uniq))
		for i := range uniq {
			order = append(order, i)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(order)))
		for _, i := range order {
			list = append(list[:i], list[i+1:]...)
		}
		return list, nil
	})
}

// mutate applies fn to a copy of the list and saves it. The in-memory list
// only changes when the save succeeds.
func (s *Store) mutate(fn func([]models.Rule) ([]models.Rule, error)) error {
	s.mu.Lock()
	prev := s.rules
	next, err := fn(append([]models.Rule(nil), prev...))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.rules = next
	if err := s.saveLocked(); err != nil {
		s.rules = prev
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) notify() {
	s.mu.RLock()
	fns := append([]ChangeFunc(nil), s.onChange...)
	snapshot := append([]models.Rule(nil), s.rules...)
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}

// Normalize trims both fields and checks that neither is empty.
func Normalize(r models.Rule) (models.Rule, error) {
	r.Keyword = strings.TrimSpace(r.Keyword)
	r.Folder = strings.TrimSpace(r.Folder)
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Keyword, validation.Required),
		validation.Field(&r.Folder, validation.Required),
	); err != nil {
		return models.Rule{}, fmt.Errorf("%w: %v", apperr.ErrInvalidRule, err)
	}
	return r, nil
}

type decoded struct {
	rules   []models.Rule
	dropped []int
}

func decode(data []byte) (decoded, error) {
	var raw []models.Rule
	if err := json.Unmarshal(data, &raw); err != nil {
		return decoded{}, fmt.Errorf("rules: parse: %w", err)
	}
	out := decoded{rules: make([]models.Rule, 0, len(raw))}
	for i, r := range raw {
		n, err := Normalize(r)
		if err != nil {
			out.dropped = append(out.dropped, i)
			continue
		}
		out.rules = append(out.rules, n)
	}
	return out, nil
}

// encode renders the list as a 4-space indented JSON array. Non-ASCII text
// is written as is.
func encode(list []models.Rule) ([]byte, error) {
	if list == nil {
		list = []models.Rule{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(list); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
