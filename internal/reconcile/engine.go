// Package reconcile drives the idempotent create-or-update synchronization
// of bibliographic items into a Craft collection.
package reconcile

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/matsen/zotcraft/internal/craft"
	"github.com/matsen/zotcraft/internal/htmltext"
	"github.com/matsen/zotcraft/internal/mapping"
	"github.com/matsen/zotcraft/internal/zotero"
)

// Source lists bibliographic items and their child notes.
type Source interface {
	ListRecent(ctx context.Context, limit int, collection string) ([]zotero.Item, error)
	Search(ctx context.Context, query string, limit int, collection string) ([]zotero.Item, error)
	ListCollections(ctx context.Context) ([]zotero.Collection, error)
	ChildNotes(ctx context.Context, itemKey string) ([]string, error)
}

// Sink is the remote document collection written to.
type Sink interface {
	GetSchema(ctx context.Context) (*craft.Schema, error)
	ListItems(ctx context.Context) ([]craft.Item, error)
	CreateItem(ctx context.Context, title string, properties map[string]any, blocks []string, titleField string, opts craft.WriteOptions) (string, error)
	UpdateItem(ctx context.Context, id, title string, properties map[string]any, titleField string, opts craft.WriteOptions) error
	AppendBlocks(ctx context.Context, id string, blocks []string) error
	DeleteItems(ctx context.Context, ids []string) error
	ResolveDailyNote(ctx context.Context, date string) (string, error)
}

// Action is the per-item sync result kind.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionSkipped Action = "skipped"
	ActionError   Action = "error"
)

// maxErrorDetail caps the human-readable error message per outcome; the
// full text is kept in Diagnostic.
const maxErrorDetail = 200

// Outcome is one entry of the per-run sync report.
type Outcome struct {
	Key        string `json:"key"`
	Title      string `json:"title,omitempty"`
	Action     Action `json:"action"`
	RemoteID   string `json:"remote_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Options configure an Engine.
type Options struct {
	// DefaultStatus, when set, is written to a resolved status field on
	// item creation (never on update).
	DefaultStatus string

	// Warnf receives once-only degradation warnings. nil logs to stderr.
	Warnf func(format string, args ...any)

	// Now supplies the current time. nil means time.Now.
	Now func() time.Time
}

// Engine owns all per-run state: the resolved schema, the external-link
// index, and the reading-date resolution. Items are processed strictly
// sequentially so that the index insertion after each create is visible to
// the next item's lookup.
type Engine struct {
	source Source
	sink   Sink

	coercer       mapping.Coercer
	defaultStatus string
	warnf         func(format string, args ...any)
	now           func() time.Time

	loaded   bool
	schema   *craft.Schema
	index    mapping.Index
	titleKey string
	links    map[string]string // external link -> remote item id

	reading readingDateState
}

// NewEngine creates an engine for one run.
func NewEngine(source Source, sink Sink, opts Options) *Engine {
	e := &Engine{
		source:        source,
		sink:          sink,
		defaultStatus: opts.DefaultStatus,
		warnf:         opts.Warnf,
		now:           opts.Now,
	}
	if e.warnf == nil {
		e.warnf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
		}
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.coercer = mapping.Coercer{Now: e.now}
	return e
}

// ensureLoaded resolves the schema and builds the external-link index,
// once per run. A failure here is fatal to the whole run.
func (e *Engine) ensureLoaded(ctx context.Context) error {
	if e.loaded {
		return nil
	}

	schema, err := e.sink.GetSchema(ctx)
	if err != nil {
		return fmt.Errorf("resolving collection schema: %w", err)
	}

	items, err := e.sink.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("listing collection items: %w", err)
	}

	e.schema = schema
	e.index = mapping.NewIndex(schema)
	e.titleKey = schema.TitleKey()
	e.links = buildLinkIndex(items)
	e.loaded = true
	return nil
}

// linkTokenRe matches a Zotero select link embedded in a property value of
// unknown shape.
var linkTokenRe = regexp.MustCompile(`zotero://select/[^\s"'<>]+`)

// buildLinkIndex scans all existing remote items for Zotero select links
// and maps each link to its item id. The first item claiming a link wins.
func buildLinkIndex(items []craft.Item) map[string]string {
	links := make(map[string]string, len(items))
	for _, item := range items {
		token := findLinkToken(item.Properties)
		if token == "" {
			continue
		}
		if _, taken := links[token]; !taken {
			links[token] = item.ID
		}
	}
	return links
}

// findLinkToken extracts the first select link from an item's properties.
func findLinkToken(props map[string]any) string {
	for _, value := range props {
		if token := scanValue(value); token != "" {
			return token
		}
	}
	return ""
}

func scanValue(value any) string {
	switch v := value.(type) {
	case string:
		return linkTokenRe.FindString(v)
	case []any:
		for _, elem := range v {
			if token := scanValue(elem); token != "" {
				return token
			}
		}
	case []string:
		for _, elem := range v {
			if token := linkTokenRe.FindString(elem); token != "" {
				return token
			}
		}
	case map[string]any:
		for _, elem := range v {
			if token := scanValue(elem); token != "" {
				return token
			}
		}
	}
	return ""
}

// skippedItemTypes are item types the engine never syncs.
var skippedItemTypes = map[string]bool{
	"attachment": true,
	"note":       true,
	"annotation": true,
}

// SyncItems reconciles each item against the collection, in order. A
// schema or index failure aborts the run; any per-item failure is recorded
// in its outcome and the batch continues.
func (e *Engine) SyncItems(ctx context.Context, items []zotero.Item, withNotes bool) ([]Outcome, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(items))
	for _, item := range items {
		outcomes = append(outcomes, e.syncOne(ctx, item, withNotes))
	}
	return outcomes, nil
}

// syncOne runs the per-item workflow: normalize, resolve and coerce each
// canonical field, attach the reading date, fetch note blocks, then create
// or update keyed by the external link.
func (e *Engine) syncOne(ctx context.Context, item zotero.Item, withNotes bool) Outcome {
	if item.Key == "" || skippedItemTypes[item.Data.ItemType] {
		return Outcome{Key: item.Key, Title: item.Data.Title, Action: ActionSkipped}
	}

	attrs := mapping.Normalize(item)
	title := attrs.Title
	if title == "" {
		title = "Untitled"
	}

	props := map[string]any{}
	e.apply(props, mapping.ConceptLink, attrs.ExternalLink)
	e.apply(props, mapping.ConceptAuthors, attrs.Authors)
	e.apply(props, mapping.ConceptYear, attrs.Year)
	e.apply(props, mapping.ConceptVenue, attrs.Venue)
	e.apply(props, mapping.ConceptURL, attrs.URL)
	e.apply(props, mapping.ConceptDateAdded, attrs.DateAdded)
	e.apply(props, mapping.ConceptType, attrs.TypeLabel)
	e.apply(props, mapping.ConceptAbstract, attrs.Abstract)
	e.apply(props, mapping.ConceptCitationKey, attrs.CitationKey)
	e.apply(props, mapping.ConceptTags, attrs.Tags)
	e.applyReadingDate(ctx, props)

	var blocks []string
	if withNotes {
		notes, err := e.source.ChildNotes(ctx, item.Key)
		if err != nil {
			return errorOutcome(item, fmt.Errorf("fetching notes: %w", err))
		}
		for _, note := range notes {
			blocks = append(blocks, htmltext.Blocks(note)...)
		}
	}

	opts := craft.WriteOptions{AllowNewOptions: e.needsNewOptions(attrs.Tags)}

	if id, exists := e.links[attrs.ExternalLink]; exists {
		if err := e.sink.UpdateItem(ctx, id, title, props, e.titleKey, opts); err != nil {
			return errorOutcome(item, err)
		}
		if len(blocks) > 0 {
			if err := e.sink.AppendBlocks(ctx, id, blocks); err != nil {
				return errorOutcome(item, fmt.Errorf("appending notes: %w", err))
			}
		}
		return Outcome{Key: item.Key, Title: title, Action: ActionUpdated, RemoteID: id}
	}

	if e.defaultStatus != "" {
		e.apply(props, mapping.ConceptStatus, e.defaultStatus)
	}

	id, err := e.sink.CreateItem(ctx, title, props, blocks, e.titleKey, opts)
	if err != nil {
		return errorOutcome(item, err)
	}
	// Later items in this batch must see the new record.
	e.links[attrs.ExternalLink] = id
	return Outcome{Key: item.Key, Title: title, Action: ActionCreated, RemoteID: id}
}

// apply resolves a concept against the schema and coerces the value in.
func (e *Engine) apply(props map[string]any, concept mapping.Concept, value any) {
	if field, ok := e.index.Resolve(concept); ok {
		e.coercer.Apply(props, field, value)
	}
}

// needsNewOptions reports whether writing these tags to an enumerated tags
// field requires the collection to grow new options. Plain text tag fields
// never need the flag.
func (e *Engine) needsNewOptions(tags []string) bool {
	field, ok := e.index.Resolve(mapping.ConceptTags)
	if !ok || len(field.Options) == 0 {
		return false
	}
	if field.Type != craft.FieldSelect && field.Type != craft.FieldMultiSelect {
		return false
	}
	for _, tag := range tags {
		if !hasOption(field.Options, tag) {
			return true
		}
	}
	return false
}

func hasOption(options []craft.Option, value string) bool {
	for _, opt := range options {
		if strings.EqualFold(opt.Name, strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}

// DeleteItems deletes remote items by id and evicts them from the
// external-link index so a later create in the same run is not mistaken
// for an update.
func (e *Engine) DeleteItems(ctx context.Context, ids []string) ([]Outcome, error) {
	if err := e.sink.DeleteItems(ctx, ids); err != nil {
		return nil, err
	}

	deleted := make(map[string]bool, len(ids))
	for _, id := range ids {
		deleted[id] = true
	}
	for link, id := range e.links {
		if deleted[id] {
			delete(e.links, link)
		}
	}

	outcomes := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		outcomes = append(outcomes, Outcome{Action: ActionDeleted, RemoteID: id})
	}
	return outcomes, nil
}

// errorOutcome records a per-item failure with a truncated message and the
// full diagnostic text.
func errorOutcome(item zotero.Item, err error) Outcome {
	msg := err.Error()
	out := Outcome{Key: item.Key, Title: item.Data.Title, Action: ActionError, Diagnostic: msg}
	if len(msg) > maxErrorDetail {
		msg = msg[:maxErrorDetail] + "…"
	}
	out.Detail = msg
	return out
}
