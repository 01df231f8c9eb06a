// Package zotero reads bibliographic items from a Zotero library, either
// through the Zotero Web API or from a local zotero.sqlite database.
package zotero

import (
	"encoding/json"
	"strings"
)

// LinkScheme is the URI scheme Zotero registers for select links.
const LinkScheme = "zotero"

// ExternalLink builds the stable select link for an item key. This string
// is the identity token used for de-duplication against remote records.
func ExternalLink(key string) string {
	return LinkScheme + "://select/library/items/" + key
}

// IntOrBool handles fields the API reports as either an int or false
// (e.g. meta.numChildren, which is false instead of 0).
type IntOrBool int

func (i *IntOrBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*i = 1
		} else {
			*i = 0
		}
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*i = IntOrBool(n)
		return nil
	}

	*i = 0
	return nil
}

func (i IntOrBool) Int() int {
	return int(i)
}

// StringOrBool handles fields the API reports as either a string or false
// (e.g. collection parentCollection).
type StringOrBool string

func (s *StringOrBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = ""
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = StringOrBool(str)
		return nil
	}

	*s = ""
	return nil
}

func (s StringOrBool) String() string {
	return string(s)
}

// Item is a bibliographic item as returned by the Web API envelope.
type Item struct {
	Key     string   `json:"key"`
	Version int      `json:"version"`
	Library Library  `json:"library"`
	Meta    ItemMeta `json:"meta"`
	Data    ItemData `json:"data"`
}

// ItemData is the core item payload. Different itemTypes populate
// different subsets of these fields; absent fields decode to "".
type ItemData struct {
	Key      string    `json:"key,omitempty"`
	ItemType string    `json:"itemType"`
	Title    string    `json:"title"`
	Creators []Creator `json:"creators,omitempty"`

	AbstractNote string `json:"abstractNote,omitempty"`
	Date         string `json:"date,omitempty"`
	DateAdded    string `json:"dateAdded,omitempty"`
	DateModified string `json:"dateModified,omitempty"`

	DOI string `json:"DOI,omitempty"`
	URL string `json:"url,omitempty"`

	PublicationTitle string `json:"publicationTitle,omitempty"`
	Publisher        string `json:"publisher,omitempty"`
	Institution      string `json:"institution,omitempty"`
	Archive          string `json:"archive,omitempty"`
	Repository       string `json:"repository,omitempty"`

	Extra string `json:"extra,omitempty"`

	Tags        []Tag    `json:"tags,omitempty"`
	Collections []string `json:"collections,omitempty"`

	// Set on child note items only.
	Note string `json:"note,omitempty"`
}

// TagNames returns the item's tag strings in listed order.
func (d ItemData) TagNames() []string {
	names := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		if t.Tag != "" {
			names = append(names, t.Tag)
		}
	}
	return names
}

// Creator is an author, editor, or other contributor. Institutional
// creators carry a single Name instead of First/Last.
type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

// DisplayName renders the creator as "First Last", falling back to the
// single-field name.
func (c Creator) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if full != "" {
		return full
	}
	return strings.TrimSpace(c.Name)
}

// Tag is an item tag. Type 0 is a user tag, 1 an automatic tag.
type Tag struct {
	Tag  string `json:"tag"`
	Type int    `json:"type,omitempty"`
}

// ItemMeta is server-generated item metadata.
type ItemMeta struct {
	CreatorSummary string    `json:"creatorSummary,omitempty"`
	ParsedDate     string    `json:"parsedDate,omitempty"`
	NumChildren    IntOrBool `json:"numChildren"`
}

// Library identifies the owning library.
type Library struct {
	Type string `json:"type"` // "user" or "group"
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Collection is a (possibly nested) item collection.
type Collection struct {
	Key  string         `json:"key"`
	Data CollectionData `json:"data"`
}

// CollectionData is the collection payload. ParentCollection is false at
// the top level, a collection key otherwise.
type CollectionData struct {
	Key              string       `json:"key"`
	Name             string       `json:"name"`
	ParentCollection StringOrBool `json:"parentCollection"`
}

// PathName renders a collection as its root-to-node path joined by " / ",
// walking parent links through byKey. A missing parent truncates the path
// at the last known ancestor.
func PathName(key string, byKey map[string]Collection) string {
	var parts []string
	seen := map[string]bool{}
	for key != "" && !seen[key] {
		seen[key] = true
		c, ok := byKey[key]
		if !ok {
			break
		}
		parts = append([]string{c.Data.Name}, parts...)
		key = c.Data.ParentCollection.String()
	}
	return strings.Join(parts, " / ")
}
