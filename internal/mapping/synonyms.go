// Package mapping adapts normalized bibliographic items onto an arbitrary
// Craft collection schema: synonym-based field resolution, type-directed
// value coercion, and item normalization into canonical attributes.
package mapping

import (
	"strings"
	"unicode"

	"github.com/matsen/zotcraft/internal/craft"
)

// Concept is a canonical field concept a schema field can represent.
type Concept string

const (
	ConceptAuthors     Concept = "authors"
	ConceptYear        Concept = "year"
	ConceptVenue       Concept = "venue"
	ConceptURL         Concept = "url"
	ConceptLink        Concept = "link" // the Zotero select link (identity token)
	ConceptDateAdded   Concept = "dateadded"
	ConceptType        Concept = "type"
	ConceptTags        Concept = "tags"
	ConceptAbstract    Concept = "abstract"
	ConceptCitationKey Concept = "citationkey"
	ConceptStatus      Concept = "status"
	ConceptReadingDate Concept = "readingdate"
)

// synonyms maps each concept to its accepted field-name variants, in
// priority order. Matching is exact after normalization; supporting a new
// target vocabulary means adding entries here, not changing logic.
var synonyms = map[Concept][]string{
	ConceptAuthors:     {"authors", "author", "creators", "creator"},
	ConceptYear:        {"year", "publicationyear", "pubyear"},
	ConceptVenue:       {"journal", "venue", "publication", "publicationtitle", "source"},
	ConceptURL:         {"url", "weblink", "website"},
	ConceptLink:        {"zoterolink", "zotero", "externallink", "itemlink", "link"},
	ConceptDateAdded:   {"dateadded", "added", "importdate", "importeddate"},
	ConceptType:        {"type", "itemtype", "publicationtype", "kind", "category"},
	ConceptTags:        {"tags", "tag", "keywords", "topics", "labels"},
	ConceptAbstract:    {"abstract", "abstractnote", "summary", "description"},
	ConceptCitationKey: {"citationkey", "citekey", "bibtexkey"},
	ConceptStatus:      {"status", "readingstatus", "state"},
	ConceptReadingDate: {"readingdate", "dateread", "readon", "readdate"},
}

// NormalizeName lowercases a field name and strips all non-alphanumeric
// characters, so "Citation Key", "citation_key", and "citationKey" collide.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Index maps normalized field names and storage keys to field definitions.
type Index map[string]*craft.Field

// NewIndex builds an Index over a schema. Both the display name and the
// storage key of each field resolve to the same definition; on a collision
// the earlier field wins. A nil schema yields an empty index.
func NewIndex(s *craft.Schema) Index {
	ix := Index{}
	if s == nil {
		return ix
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		for _, name := range []string{f.Name, f.Key} {
			n := NormalizeName(name)
			if n == "" {
				continue
			}
			if _, exists := ix[n]; !exists {
				ix[n] = f
			}
		}
	}
	return ix
}

// Resolve returns the first field matching any of the concept's synonyms,
// in listed priority order.
func (ix Index) Resolve(c Concept) (*craft.Field, bool) {
	for _, syn := range synonyms[c] {
		if f, ok := ix[NormalizeName(syn)]; ok {
			return f, true
		}
	}
	return nil, false
}
