package classify

import (
	"sort"
	"strings"

	"github.com/starford/tidy/internal/locale"
)

// Category is one extension bucket: an identifier and the extensions it
// accepts, without leading dots.
type Category struct {
	ID         string   `json:"id"`
	Extensions []string `json:"extensions"`
}

// Table maps lower-cased extensions to categories. It is read-only after
// construction.
type Table struct {
	categories []Category
	byExt      map[string]string
}

// DefaultCategories returns the built-in bucket table.
func DefaultCategories() []Category {
	return []Category{
		{ID: locale.CategoryImages, Extensions: []string{"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp", "svg", "heic", "heif", "ico", "raw"}},
		{ID: locale.CategoryDocuments, Extensions: []string{"pdf", "doc", "docx", "odt", "rtf", "txt", "md", "xls", "xlsx", "ods", "csv", "ppt", "pptx", "odp", "epub"}},
		{ID: locale.CategoryAudio, Extensions: []string{"mp3", "wav", "flac", "aac", "ogg", "m4a", "wma", "opus"}},
		{ID: locale.CategoryVideo, Extensions: []string{"mp4", "mkv", "avi", "mov", "wmv", "flv", "webm", "m4v", "mpeg", "mpg"}},
		{ID: locale.CategoryArchives, Extensions: []string{"zip", "rar", "7z", "tar", "gz", "bz2", "xz", "tgz", "iso"}},
		{ID: locale.CategoryCode, Extensions: []string{"go", "py", "js", "ts", "java", "c", "h", "cpp", "rs", "sh", "html", "css", "json", "yaml", "yml", "xml", "sql"}},
	}
}

// NewTable builds a lookup table. When two categories claim the same
// extension the earlier one wins.
func NewTable(categories []Category) *Table {
	t := &Table{byExt: make(map[string]string)}
	for _, c := range categories {
		if c.ID == "" {
			continue
		}
		exts := make([]string, 0, len(c.Extensions))
		for _, e := range c.Extensions {
			e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
			if e == "" {
				continue
			}
			exts = append(exts, e)
			if _, taken := t.byExt[e]; !taken {
				t.byExt[e] = c.ID
			}
		}
		t.categories = append(t.categories, Category{ID: c.ID, Extensions: exts})
	}
	return t
}

// TableFromConfig builds a table from the YAML "buckets" mapping. Category
// order is alphabetical since YAML mappings are unordered. An empty mapping
// yields the built-in table.
func TableFromConfig(buckets map[string][]string) *Table {
	if len(buckets) == 0 {
		return NewTable(DefaultCategories())
	}
	ids := make([]string, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	cats := make([]Category, 0, len(ids))
	for _, id := range ids {
		cats = append(cats, Category{ID: id, Extensions: buckets[id]})
	}
	return NewTable(cats)
}

// Lookup returns the category for ext (case-insensitive, dot optional).
func (t *Table) Lookup(ext string) (string, bool) {
	id, ok := t.byExt[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return id, ok
}

// Categories returns a copy of the table in declaration order.
func (t *Table) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, c := range t.categories {
		out[i] = Category{ID: c.ID, Extensions: append([]string(nil), c.Extensions...)}
	}
	return out
}
