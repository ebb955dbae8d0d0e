package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/starford/tidy/internal/locale"
	"github.com/starford/tidy/internal/models"
)

var defaultRules = []models.Rule{
	{Keyword: "fattura", Folder: "Documenti/Fatture"},
	{Keyword: "screenshot", Folder: "Immagini/Screenshots"},
}

func english() *Classifier {
	return New(NewTable(DefaultCategories()), locale.For(language.English))
}

func TestClassifyScenarios(t *testing.T) {
	c := english()

	tests := []struct {
		name string
		file string
		want Destination
	}{
		{
			name: "pdf without rule goes to documents",
			file: "invoice_march.pdf",
			want: Destination{Folder: "Documents", Kind: KindCategory, RuleIndex: -1, Category: locale.CategoryDocuments, Extension: "pdf"},
		},
		{
			name: "default screenshot rule",
			file: "screenshot_2024.png",
			want: Destination{Folder: "Immagini/Screenshots", Kind: KindRule, RuleIndex: 1},
		},
		{
			name: "no extension goes to other",
			file: "readme",
			want: Destination{Folder: "Other", Kind: KindOther, RuleIndex: -1},
		},
		{
			name: "unknown extension gets its own bucket",
			file: "model.stl",
			want: Destination{Folder: "STL Files", Kind: KindExtension, RuleIndex: -1, Extension: "stl"},
		},
		{
			name: "trailing dot is no extension",
			file: "weird.",
			want: Destination{Folder: "Other", Kind: KindOther, RuleIndex: -1},
		},
		{
			name: "keyword match ignores case",
			file: "FATTURA_2024.PDF",
			want: Destination{Folder: "Documenti/Fatture", Kind: KindRule, RuleIndex: 0},
		},
		{
			name: "extension lookup ignores case",
			file: "HOLIDAY.JPG",
			want: Destination{Folder: "Images", Kind: KindCategory, RuleIndex: -1, Category: locale.CategoryImages, Extension: "jpg"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.file, defaultRules))
		})
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	rules := []models.Rule{
		{Keyword: "report", Folder: "Reports"},
		{Keyword: "report_q1", Folder: "Quarterly"},
		{Keyword: "report", Folder: "Duplicate"},
	}
	d := english().Classify("report_q1.xlsx", rules)
	assert.Equal(t, KindRule, d.Kind)
	assert.Equal(t, "Reports", d.Folder)
	assert.Equal(t, 0, d.RuleIndex)
}

func TestClassifyAbsoluteRuleFolderKept(t *testing.T) {
	rules := []models.Rule{{Keyword: "backup", Folder: "/mnt/backups"}}
	d := english().Classify("backup.tar", rules)
	assert.Equal(t, "/mnt/backups", d.Folder)
}

func TestMatchUnicodeFolding(t *testing.T) {
	rules := []models.Rule{{Keyword: "ÉTÉ", Folder: "Summer"}}
	i, ok := Match("photos_été_2024.jpg", rules)
	require.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestMatchSkipsEmptyKeyword(t *testing.T) {
	_, ok := Match("anything", []models.Rule{{Keyword: "", Folder: "x"}})
	assert.False(t, ok)
}

func TestClassifyItalianBuckets(t *testing.T) {
	c := New(NewTable(DefaultCategories()), locale.For(language.Italian))
	assert.Equal(t, "Documenti", c.Classify("invoice_march.pdf", nil).Folder)
	assert.Equal(t, "Altro", c.Classify("readme", nil).Folder)
	assert.Equal(t, "File STL", c.Classify("model.stl", nil).Folder)
}

func TestTableFromConfig(t *testing.T) {
	tbl := TableFromConfig(map[string][]string{
		"Ebooks":  {".EPUB", "mobi"},
		"Scans":   {"pdf"},
		"Archive": {"pdf", "zip"},
	})
	id, ok := tbl.Lookup("epub")
	require.True(t, ok)
	assert.Equal(t, "Ebooks", id)

	// Alphabetical order: Archive claims pdf before Scans.
	id, _ = tbl.Lookup(".PDF")
	assert.Equal(t, "Archive", id)

	_, ok = tbl.Lookup("png")
	assert.False(t, ok)

	c := New(tbl, locale.For(language.English))
	assert.Equal(t, "Ebooks", c.Classify("book.mobi", nil).Folder)
}

func TestTableFromConfigEmptyUsesDefaults(t *testing.T) {
	tbl := TableFromConfig(nil)
	assert.Len(t, tbl.Categories(), len(DefaultCategories()))
}
