package mapping

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/matsen/zotcraft/internal/zotero"
)

// UnknownAuthor is the author string for items with no creators.
const UnknownAuthor = "Unknown Author"

// VenueSeparator joins publication title and publisher for book-like items.
const VenueSeparator = " · "

// Attributes is the canonical, schema-independent attribute bag derived
// from one bibliographic item.
type Attributes struct {
	Title        string
	Authors      string
	Year         string
	Venue        string
	URL          string
	DateAdded    string
	TypeLabel    string
	Abstract     string
	CitationKey  string
	ExternalLink string
	Tags         []string
}

// bookLikeTypes are item types whose venue combines publication title and
// publisher-like fields.
var bookLikeTypes = map[string]bool{
	"book":        true,
	"booksection": true,
	"bookchapter": true,
	"bookpart":    true,
	"preprint":    true,
}

var (
	yearRe    = regexp.MustCompile(`\d{4}`)
	isoDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	citeKeyRe = regexp.MustCompile(`(?im)^\s*citation key:\s*(.+)$`)
)

// Normalize derives the canonical attributes of an item.
func Normalize(item zotero.Item) Attributes {
	data := item.Data
	return Attributes{
		Title:        data.Title,
		Authors:      AuthorString(data.Creators),
		Year:         YearOf(data.Date),
		Venue:        Venue(data),
		URL:          itemURL(data),
		DateAdded:    ISODate(data.DateAdded),
		TypeLabel:    TypeLabel(data.ItemType),
		Abstract:     data.AbstractNote,
		CitationKey:  CitationKey(data.Extra),
		ExternalLink: zotero.ExternalLink(item.Key),
		Tags:         data.TagNames(),
	}
}

// AuthorString joins creator display names with ", ".
func AuthorString(creators []zotero.Creator) string {
	var names []string
	for _, c := range creators {
		if name := c.DisplayName(); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return UnknownAuthor
	}
	return strings.Join(names, ", ")
}

// YearOf extracts the first 4-digit run from a free-text date, falling
// back to the raw string when none is found.
func YearOf(date string) string {
	if y := yearRe.FindString(date); y != "" {
		return y
	}
	return date
}

// Venue composes the venue designation. Book-like types combine the
// publication title with the first non-empty publisher-like field; other
// types use the publication title alone.
func Venue(data zotero.ItemData) string {
	if !bookLikeTypes[NormalizeName(data.ItemType)] {
		return data.PublicationTitle
	}

	second := firstNonEmpty(data.Publisher, data.Institution, data.Archive, data.Repository)
	switch {
	case data.PublicationTitle != "" && second != "":
		return data.PublicationTitle + VenueSeparator + second
	case data.PublicationTitle != "":
		return data.PublicationTitle
	default:
		return second
	}
}

// itemURL prefers the item URL and falls back to a DOI resolver link.
func itemURL(data zotero.ItemData) string {
	if data.URL != "" {
		return data.URL
	}
	if data.DOI != "" {
		return "https://doi.org/" + data.DOI
	}
	return ""
}

// ISODate extracts a YYYY-MM-DD substring from a date string, attempting a
// full parse and reformat when none is embedded. Returns "" when neither
// works.
func ISODate(date string) string {
	if d := isoDateRe.FindString(date); d != "" {
		return d
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "January 2, 2006", "2 January 2006"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// TypeLabel renders a raw item type tag as a human-readable label:
// "journalArticle" becomes "Journal Article".
func TypeLabel(itemType string) string {
	var b strings.Builder
	for i, r := range itemType {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CitationKey scans the free-text extra block for a "Citation Key: <value>"
// line (case-insensitive) and returns the first match, or "".
func CitationKey(extra string) string {
	m := citeKeyRe.FindStringSubmatch(extra)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
