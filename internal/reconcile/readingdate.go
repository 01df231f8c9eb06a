package reconcile

import (
	"context"

	"github.com/matsen/zotcraft/internal/mapping"
)

// readingDateState tracks the per-run daily-note resolution.
type readingDateState struct {
	resolved    bool
	unavailable bool
	blockID     string
}

// applyReadingDate fills in the reading-date property when the schema has
// a matching field. Plain date fields get today's date string with no
// remote call. Block-link fields need the daily-note block id, resolved at
// most once per run: the first failure logs one warning and disables the
// field for the rest of the run.
func (e *Engine) applyReadingDate(ctx context.Context, props map[string]any) {
	field, ok := e.index.Resolve(mapping.ConceptReadingDate)
	if !ok {
		return
	}

	now := e.now()
	today := now.Format("2006-01-02")

	if !mapping.ObjectLike(field.Type) {
		e.coercer.Apply(props, field, today)
		return
	}

	if e.reading.unavailable {
		return
	}

	if !e.reading.resolved {
		id, err := e.sink.ResolveDailyNote(ctx, today)
		if err != nil {
			e.warnf("daily note for %s unavailable, skipping reading date: %v", today, err)
			e.reading.unavailable = true
			return
		}
		e.reading.blockID = id
		e.reading.resolved = true
	}

	props[field.Key] = map[string]any{
		"blockId": e.reading.blockID,
		"title":   mapping.FormatDateTitle(now, now),
	}
}
