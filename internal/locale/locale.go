// Package locale selects the string table used for status lines and
// bucket folder names.
package locale

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category identifiers of the built-in extension buckets.
const (
	CategoryImages    = "images"
	CategoryDocuments = "documents"
	CategoryAudio     = "audio"
	CategoryVideo     = "video"
	CategoryArchives  = "archives"
	CategoryCode      = "code"
)

type table struct {
	statusWaiting   string
	statusRunning   string
	statusStopped   string
	statusMoved     string // filename, folder
	statusError     string // error
	extensionFolder string // upper-cased extension
	otherFolder     string
	confirmRemove   string
	categories      map[string]string
}

var tables = map[string]table{
	"en": {
		statusWaiting:   "Status: Waiting. Select a folder and start.",
		statusRunning:   "Service started. Monitoring in progress...",
		statusStopped:   "Status: Stopped. Select a folder and start.",
		statusMoved:     "Moved: %s -> %s/",
		statusError:     "Error: %v",
		extensionFolder: "%s Files",
		otherFolder:     "Other",
		confirmRemove:   "Are you sure you want to delete the selected rules?",
		categories: map[string]string{
			CategoryImages:    "Images",
			CategoryDocuments: "Documents",
			CategoryAudio:     "Audio",
			CategoryVideo:     "Video",
			CategoryArchives:  "Archives",
			CategoryCode:      "Code",
		},
	},
	"it": {
		statusWaiting:   "Stato: In attesa. Seleziona una cartella e avvia.",
		statusRunning:   "Servizio avviato. Monitoraggio in corso...",
		statusStopped:   "Servizio fermato. Seleziona una cartella e avvia.",
		statusMoved:     "Spostato: %s -> %s/",
		statusError:     "Errore: %v",
		extensionFolder: "File %s",
		otherFolder:     "Altro",
		confirmRemove:   "Sei sicuro di voler eliminare le regole selezionate?",
		categories: map[string]string{
			CategoryImages:    "Immagini",
			CategoryDocuments: "Documenti",
			CategoryAudio:     "Audio",
			CategoryVideo:     "Video",
			CategoryArchives:  "Archivi",
			CategoryCode:      "Codice",
		},
	},
}

var (
	supported = []language.Tag{language.English, language.Italian}
	matcher   = language.NewMatcher(supported)
)

// Catalog is the string table for one language. It is immutable and safe
// for concurrent use.
type Catalog struct {
	tag language.Tag
	s   table
}

// For returns the catalog for tag, falling back to English.
func For(tag language.Tag) *Catalog {
	base, _ := tag.Base()
	s, ok := tables[base.String()]
	if !ok {
		return &Catalog{tag: language.English, s: tables["en"]}
	}
	return &Catalog{tag: tag, s: s}
}

// Lang returns the two-letter language code of the catalog.
func (c *Catalog) Lang() string {
	base, _ := c.tag.Base()
	return base.String()
}

func (c *Catalog) Waiting() string { return c.s.statusWaiting }
func (c *Catalog) Running() string { return c.s.statusRunning }
func (c *Catalog) Stopped() string { return c.s.statusStopped }

// Moved is the status line shown after a successful move.
func (c *Catalog) Moved(name, folder string) string {
	return fmt.Sprintf(c.s.statusMoved, name, folder)
}

// Error is the status line shown after a failed move or cycle.
func (c *Catalog) Error(err error) string {
	return fmt.Sprintf(c.s.statusError, err)
}

// ConfirmRemove is the question asked before deleting rules.
func (c *Catalog) ConfirmRemove() string { return c.s.confirmRemove }

// OtherFolder names the bucket for files without an extension.
func (c *Catalog) OtherFolder() string { return c.s.otherFolder }

// ExtensionFolder names the bucket for an unrecognized extension. ext is
// given without the leading dot.
func (c *Catalog) ExtensionFolder(ext string) string {
	return fmt.Sprintf(c.s.extensionFolder, cases.Upper(c.tag).String(ext))
}

// CategoryFolder names the bucket of a built-in category. Unknown
// categories (from user configuration) use their identifier verbatim.
func (c *Catalog) CategoryFolder(id string) string {
	if name, ok := c.s.categories[id]; ok {
		return name
	}
	return id
}

// Detect picks a language from the preferred setting and the POSIX locale
// environment.
func Detect(preferred string) language.Tag {
	return DetectFrom(preferred, os.Getenv)
}

// DetectFrom is Detect with an injectable environment lookup.
func DetectFrom(preferred string, getenv func(string) string) language.Tag {
	var candidates []string
	for _, v := range []string{preferred, getenv("LC_ALL"), getenv("LC_MESSAGES"), getenv("LANG")} {
		if c := normalize(v); c != "" {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return language.English
	}
	tag, _ := language.MatchStrings(matcher, candidates...)
	base, _ := tag.Base()
	for _, s := range supported {
		if sb, _ := s.Base(); sb == base {
			return s
		}
	}
	return language.English
}

// normalize turns a POSIX locale such as "it_IT.UTF-8@euro" into a BCP 47
// string. "C" and "POSIX" carry no language.
func normalize(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexAny(v, ".@"); i >= 0 {
		v = v[:i]
	}
	if v == "" || v == "C" || v == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(v, "_", "-")
}
