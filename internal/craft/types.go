// Package craft provides a REST client for a Craft document collection.
package craft

import "strings"

// FieldType is the declared type of a collection schema field.
type FieldType string

const (
	FieldTitle       FieldType = "title"
	FieldText        FieldType = "text"
	FieldRichText    FieldType = "richtext"
	FieldNumber      FieldType = "number"
	FieldURL         FieldType = "url"
	FieldDate        FieldType = "date"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldBlockLink   FieldType = "blocklink"
)

// Option is one legal choice of a select or multi-select field.
type Option struct {
	Name string `json:"name"`
}

// Field is a single field definition in a collection schema.
type Field struct {
	Name    string    `json:"name"`
	Key     string    `json:"key"`
	Type    FieldType `json:"type"`
	Options []Option  `json:"options,omitempty"`
}

// Schema describes the fields of a collection. Collections without schema
// enforcement have no Schema at all (GetSchema returns nil).
type Schema struct {
	Fields []Field `json:"fields"`
}

// TitleKey returns the storage key of the schema's title field, or "" if
// the schema has none.
func (s *Schema) TitleKey() string {
	if s == nil {
		return ""
	}
	for _, f := range s.Fields {
		if f.Type == FieldTitle {
			return f.Key
		}
	}
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, "title") {
			return f.Key
		}
	}
	return ""
}

// Item is a document in a collection, with its properties keyed by field
// storage key. Property values are whatever the collection holds: strings,
// numbers, string lists, or link objects.
type Item struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
}

// WriteOptions control item write behavior.
type WriteOptions struct {
	// AllowNewOptions permits the collection to grow new select options
	// for values not in the declared option set.
	AllowNewOptions bool `json:"allowNewOptions,omitempty"`
}
