package zotero

import (
	"encoding/json"
	"testing"
)

func TestExternalLink(t *testing.T) {
	got := ExternalLink("ABCD1234")
	want := "zotero://select/library/items/ABCD1234"
	if got != want {
		t.Errorf("ExternalLink = %q, want %q", got, want)
	}
}

func TestIntOrBool(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`3`, 3},
		{`0`, 0},
		{`false`, 0},
		{`true`, 1},
		{`"junk"`, 0},
	}
	for _, tt := range tests {
		var v IntOrBool
		if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if v.Int() != tt.want {
			t.Errorf("IntOrBool(%s) = %d, want %d", tt.in, v.Int(), tt.want)
		}
	}
}

func TestStringOrBool(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"COL1"`, "COL1"},
		{`false`, ""},
		{`true`, ""},
	}
	for _, tt := range tests {
		var v StringOrBool
		if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if v.String() != tt.want {
			t.Errorf("StringOrBool(%s) = %q, want %q", tt.in, v.String(), tt.want)
		}
	}
}

func TestItemMetaFalseNumChildren(t *testing.T) {
	// The API returns numChildren: false for some item types.
	var item Item
	raw := `{"key":"AB12","meta":{"numChildren":false},"data":{"itemType":"journalArticle","title":"T"}}`
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatal(err)
	}
	if item.Meta.NumChildren.Int() != 0 {
		t.Errorf("numChildren = %d, want 0", item.Meta.NumChildren.Int())
	}
}

func TestCreatorDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		creator Creator
		want    string
	}{
		{"first and last", Creator{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{"last only", Creator{LastName: "Lovelace"}, "Lovelace"},
		{"institutional", Creator{Name: "Acme Institute"}, "Acme Institute"},
		{"whitespace trimmed", Creator{FirstName: " Ada ", LastName: " Lovelace "}, "Ada Lovelace"},
		{"empty", Creator{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creator.DisplayName(); got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTagNames(t *testing.T) {
	d := ItemData{Tags: []Tag{{Tag: "ml"}, {Tag: ""}, {Tag: "biology", Type: 1}}}
	got := d.TagNames()
	want := []string{"ml", "biology"}
	if len(got) != len(want) {
		t.Fatalf("TagNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TagNames[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPathName(t *testing.T) {
	byKey := map[string]Collection{
		"ROOT": {Key: "ROOT", Data: CollectionData{Name: "Papers"}},
		"SUB":  {Key: "SUB", Data: CollectionData{Name: "Biology", ParentCollection: "ROOT"}},
		"LEAF": {Key: "LEAF", Data: CollectionData{Name: "Evolution", ParentCollection: "SUB"}},
		"ORPH": {Key: "ORPH", Data: CollectionData{Name: "Orphan", ParentCollection: "GONE"}},
		// Two collections pointing at each other must not loop.
		"CYC1": {Key: "CYC1", Data: CollectionData{Name: "A", ParentCollection: "CYC2"}},
		"CYC2": {Key: "CYC2", Data: CollectionData{Name: "B", ParentCollection: "CYC1"}},
	}

	tests := []struct {
		key  string
		want string
	}{
		{"ROOT", "Papers"},
		{"SUB", "Papers / Biology"},
		{"LEAF", "Papers / Biology / Evolution"},
		{"ORPH", "Orphan"},
		{"CYC1", "B / A"},
		{"MISSING", ""},
	}
	for _, tt := range tests {
		if got := PathName(tt.key, byKey); got != tt.want {
			t.Errorf("PathName(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
