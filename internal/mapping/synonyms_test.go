package mapping

import (
	"testing"

	"github.com/matsen/zotcraft/internal/craft"
)

func testSchema() *craft.Schema {
	return &craft.Schema{Fields: []craft.Field{
		{Name: "Title", Key: "t1", Type: craft.FieldTitle},
		{Name: "Author", Key: "a1", Type: craft.FieldText},
		{Name: "Publication Year", Key: "y1", Type: craft.FieldNumber},
		{Name: "Journal", Key: "j1", Type: craft.FieldText},
		{Name: "Zotero Link", Key: "z1", Type: craft.FieldURL},
		{Name: "Keywords", Key: "k1", Type: craft.FieldMultiSelect},
	}}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Author", "author"},
		{"author_name", "authorname"},
		{"Citation Key", "citationkey"},
		{"citationKey", "citationkey"},
		{"Reading-Date!", "readingdate"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	ix := NewIndex(testSchema())

	tests := []struct {
		name    string
		concept Concept
		wantKey string
		wantOK  bool
	}{
		{"authors via singular display name", ConceptAuthors, "a1", true},
		{"year via punctuated name", ConceptYear, "y1", true},
		{"venue via journal", ConceptVenue, "j1", true},
		{"link via zotero link", ConceptLink, "z1", true},
		{"tags via keywords", ConceptTags, "k1", true},
		{"no abstract field", ConceptAbstract, "", false},
		{"no reading date field", ConceptReadingDate, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := ix.Resolve(tt.concept)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%s) ok = %v, want %v", tt.concept, ok, tt.wantOK)
			}
			if ok && f.Key != tt.wantKey {
				t.Errorf("Resolve(%s) key = %q, want %q", tt.concept, f.Key, tt.wantKey)
			}
		})
	}
}

func TestResolveByStorageKey(t *testing.T) {
	// A schema that only exposes meaningful storage keys.
	ix := NewIndex(&craft.Schema{Fields: []craft.Field{
		{Name: "Field 1", Key: "authors", Type: craft.FieldText},
	}})

	f, ok := ix.Resolve(ConceptAuthors)
	if !ok {
		t.Fatal("expected resolution via storage key")
	}
	if f.Key != "authors" {
		t.Errorf("key = %q, want %q", f.Key, "authors")
	}
}

func TestResolveUnlistedVariantDoesNotMatch(t *testing.T) {
	// "author_name" normalizes to "authorname", which is not a listed
	// synonym; normalization alone must not make it match.
	ix := NewIndex(&craft.Schema{Fields: []craft.Field{
		{Name: "author_name", Key: "x1", Type: craft.FieldText},
	}})

	if _, ok := ix.Resolve(ConceptAuthors); ok {
		t.Error("author_name matched ConceptAuthors; only listed synonyms may match")
	}
}

func TestNewIndexNilSchema(t *testing.T) {
	ix := NewIndex(nil)
	if len(ix) != 0 {
		t.Errorf("nil schema index has %d entries, want 0", len(ix))
	}
	if _, ok := ix.Resolve(ConceptAuthors); ok {
		t.Error("empty index resolved a concept")
	}
}
