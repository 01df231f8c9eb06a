package mapping

import (
	"strconv"
	"strings"
	"time"

	"github.com/matsen/zotcraft/internal/craft"
)

// objectLikeHints are substrings of declared type names that indicate a
// field holds a block/link object rather than a plain value.
var objectLikeHints = []string{"block", "link", "reference", "relation", "object"}

// ObjectLike reports whether a declared field type holds link objects.
func ObjectLike(t craft.FieldType) bool {
	name := strings.ToLower(string(t))
	for _, hint := range objectLikeHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

// Coercer converts raw values into the representation a schema field's
// declared type requires. The zero value uses the local clock.
type Coercer struct {
	// Now supplies the current time for "Today" date titles. nil means
	// time.Now.
	Now func() time.Time
}

func (c *Coercer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Apply coerces value into props under the field's storage key. Missing
// fields, absent values, and unparseable numbers are dropped silently:
// missing data never creates empty remote properties.
func (c *Coercer) Apply(props map[string]any, field *craft.Field, value any) {
	if field == nil || value == nil {
		return
	}

	s, isString := value.(string)
	list, isList := value.([]string)
	if isString && s == "" {
		return
	}
	if isList && len(list) == 0 {
		return
	}

	switch field.Type {
	case craft.FieldNumber:
		if !isString {
			return
		}
		// Truncating parse: "1999.5" becomes 1999, "abc" writes nothing.
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return
		}
		props[field.Key] = int(f)

	case craft.FieldSelect:
		if !isString {
			return
		}
		// On no match the raw string goes through verbatim, letting the
		// remote side auto-create the option.
		props[field.Key] = matchOption(field.Options, s)

	case craft.FieldMultiSelect:
		if isString {
			list = []string{s}
		}
		var out []string
		for _, entry := range list {
			v := strings.TrimSpace(matchOption(field.Options, entry))
			if v != "" {
				out = append(out, v)
			}
		}
		if len(out) > 0 {
			props[field.Key] = out
		}

	case craft.FieldURL, craft.FieldDate, craft.FieldText, craft.FieldRichText, craft.FieldTitle:
		if isList {
			s = strings.Join(list, ", ")
			if s == "" {
				return
			}
		}
		props[field.Key] = s

	default:
		if ObjectLike(field.Type) && isString {
			props[field.Key] = c.linkObject(s)
			return
		}
		props[field.Key] = value
	}
}

// matchOption matches raw case-insensitively against the option set and
// returns the canonical display string, or raw itself when nothing matches
// or the field declares no options.
func matchOption(options []craft.Option, raw string) string {
	trimmed := strings.TrimSpace(raw)
	for _, opt := range options {
		if strings.EqualFold(opt.Name, trimmed) {
			return opt.Name
		}
	}
	return raw
}

// linkObject builds a block-link property value. When the string encodes
// an ISO date the title becomes a human-readable rendering.
func (c *Coercer) linkObject(s string) map[string]any {
	title := s
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		title = FormatDateTitle(t, c.now())
	}
	return map[string]any{
		"blockId": s,
		"title":   title,
	}
}

// FormatDateTitle renders a date as "Monday, January 2", prefixed with
// "Today, " when it falls on the same local day as now.
func FormatDateTitle(t, now time.Time) string {
	title := t.Format("Monday, January 2")
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "Today, " + title
	}
	return title
}
