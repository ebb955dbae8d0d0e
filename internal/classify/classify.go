// Package classify decides where a file belongs: the first keyword rule
// matching its name, otherwise a bucket derived from its extension.
package classify

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"github.com/starford/tidy/internal/locale"
	"github.com/starford/tidy/internal/models"
)

// Kind tells which step of the classification chose the destination.
type Kind string

const (
	KindRule      Kind = "rule"
	KindCategory  Kind = "category"
	KindExtension Kind = "extension"
	KindOther     Kind = "other"
)

// Destination is the folder a file should be moved into. Folder is either
// the rule folder as written (relative or absolute) or a bucket name
// relative to the watch target.
type Destination struct {
	Folder    string `json:"folder"`
	Kind      Kind   `json:"kind"`
	RuleIndex int    `json:"rule_index"` // -1 unless Kind is KindRule
	Category  string `json:"category,omitempty"`
	Extension string `json:"extension,omitempty"`
}

// Classifier combines a bucket table with the localized bucket names.
type Classifier struct {
	table   *Table
	catalog *locale.Catalog
}

// New creates a Classifier.
func New(table *Table, catalog *locale.Catalog) *Classifier {
	return &Classifier{table: table, catalog: catalog}
}

// Table returns the extension table in use.
func (c *Classifier) Table() *Table { return c.table }

// Catalog returns the string table used for bucket names.
func (c *Classifier) Catalog() *locale.Catalog { return c.catalog }

// Classify picks the destination of a file called name. rules are scanned
// in order and the first keyword found in the name (ignoring case) wins.
func (c *Classifier) Classify(name string, rules []models.Rule) Destination {
	if i, ok := Match(name, rules); ok {
		return Destination{Folder: rules[i].Folder, Kind: KindRule, RuleIndex: i}
	}

	ext := Extension(name)
	if ext == "" {
		return Destination{Folder: c.catalog.OtherFolder(), Kind: KindOther, RuleIndex: -1}
	}
	if id, ok := c.table.Lookup(ext); ok {
		return Destination{
			Folder:    c.catalog.CategoryFolder(id),
			Kind:      KindCategory,
			RuleIndex: -1,
			Category:  id,
			Extension: ext,
		}
	}
	return Destination{
		Folder:    c.catalog.ExtensionFolder(ext),
		Kind:      KindExtension,
		RuleIndex: -1,
		Extension: ext,
	}
}

// Match returns the index of the first rule whose keyword occurs in name,
// compared with Unicode case folding. Rules with an empty keyword never
// match.
func Match(name string, rules []models.Rule) (int, bool) {
	folded := cases.Fold().String(name)
	for i, r := range rules {
		if r.Keyword == "" {
			continue
		}
		if strings.Contains(folded, cases.Fold().String(r.Keyword)) {
			return i, true
		}
	}
	return -1, false
}

// Extension returns the lower-cased extension of name without the dot.
// A trailing dot counts as no extension.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
