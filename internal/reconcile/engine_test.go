package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matsen/zotcraft/internal/craft"
	"github.com/matsen/zotcraft/internal/zotero"
)

type fakeSource struct {
	notes    map[string][]string
	notesErr error
}

func (s *fakeSource) ListRecent(ctx context.Context, limit int, collection string) ([]zotero.Item, error) {
	return nil, nil
}

func (s *fakeSource) Search(ctx context.Context, query string, limit int, collection string) ([]zotero.Item, error) {
	return nil, nil
}

func (s *fakeSource) ListCollections(ctx context.Context) ([]zotero.Collection, error) {
	return nil, nil
}

func (s *fakeSource) ChildNotes(ctx context.Context, itemKey string) ([]string, error) {
	if s.notesErr != nil {
		return nil, s.notesErr
	}
	return s.notes[itemKey], nil
}

type createCall struct {
	Title  string
	Props  map[string]any
	Blocks []string
	Opts   craft.WriteOptions
}

type updateCall struct {
	ID    string
	Title string
	Props map[string]any
	Opts  craft.WriteOptions
}

type fakeSink struct {
	schema    *craft.Schema
	schemaErr error
	items     []craft.Item
	nextID    int

	creates []createCall
	updates []updateCall
	appends map[string][]string
	deletes [][]string

	failTitle string // writes with this title fail

	dailyID    string
	dailyErr   error
	dailyCalls int
}

func (s *fakeSink) GetSchema(ctx context.Context) (*craft.Schema, error) {
	return s.schema, s.schemaErr
}

func (s *fakeSink) ListItems(ctx context.Context) ([]craft.Item, error) {
	return s.items, nil
}

func (s *fakeSink) CreateItem(ctx context.Context, title string, props map[string]any, blocks []string, titleField string, opts craft.WriteOptions) (string, error) {
	if title == s.failTitle {
		return "", &craft.APIError{StatusCode: 400, Code: "validation_failed", Message: "bad item"}
	}
	s.nextID++
	id := fmt.Sprintf("doc-%d", s.nextID)
	s.creates = append(s.creates, createCall{Title: title, Props: props, Blocks: blocks, Opts: opts})
	s.items = append(s.items, craft.Item{ID: id, Properties: props})
	return id, nil
}

func (s *fakeSink) UpdateItem(ctx context.Context, id, title string, props map[string]any, titleField string, opts craft.WriteOptions) error {
	if title == s.failTitle {
		return &craft.APIError{StatusCode: 400, Code: "validation_failed", Message: "bad item"}
	}
	s.updates = append(s.updates, updateCall{ID: id, Title: title, Props: props, Opts: opts})
	return nil
}

func (s *fakeSink) AppendBlocks(ctx context.Context, id string, blocks []string) error {
	if s.appends == nil {
		s.appends = map[string][]string{}
	}
	s.appends[id] = append(s.appends[id], blocks...)
	return nil
}

func (s *fakeSink) DeleteItems(ctx context.Context, ids []string) error {
	s.deletes = append(s.deletes, ids)
	return nil
}

func (s *fakeSink) ResolveDailyNote(ctx context.Context, date string) (string, error) {
	s.dailyCalls++
	if s.dailyErr != nil {
		return "", s.dailyErr
	}
	return s.dailyID, nil
}

func engineSchema() *craft.Schema {
	return &craft.Schema{Fields: []craft.Field{
		{Name: "Title", Key: "title", Type: craft.FieldTitle},
		{Name: "Author", Key: "authors", Type: craft.FieldText},
		{Name: "Year", Key: "year", Type: craft.FieldNumber},
		{Name: "Zotero Link", Key: "link", Type: craft.FieldURL},
		{Name: "Tags", Key: "tags", Type: craft.FieldMultiSelect, Options: []craft.Option{{Name: "ml"}}},
		{Name: "Status", Key: "status", Type: craft.FieldSelect, Options: []craft.Option{{Name: "To Read"}, {Name: "Done"}}},
	}}
}

func bibItem(key, title string, tags ...string) zotero.Item {
	var itemTags []zotero.Tag
	for _, tag := range tags {
		itemTags = append(itemTags, zotero.Tag{Tag: tag})
	}
	return zotero.Item{
		Key: key,
		Data: zotero.ItemData{
			ItemType: "journalArticle",
			Title:    title,
			Creators: []zotero.Creator{{FirstName: "Ada", LastName: "Lovelace"}},
			Date:     "2024-03-01",
			Tags:     itemTags,
		},
	}
}

func newTestEngine(sink *fakeSink, source Source, opts Options) *Engine {
	if source == nil {
		source = &fakeSource{}
	}
	if opts.Warnf == nil {
		opts.Warnf = func(string, ...any) {}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time {
			return time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)
		}
	}
	return NewEngine(source, sink, opts)
}

func actions(outcomes []Outcome) []Action {
	out := make([]Action, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Action
	}
	return out
}

func TestSyncIdempotence(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{schema: engineSchema()}
	items := []zotero.Item{bibItem("K1", "Paper One"), bibItem("K2", "Paper Two")}

	// First run: everything is new.
	outcomes, err := newTestEngine(sink, nil, Options{}).SyncItems(ctx, items, false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	for i, o := range outcomes {
		if o.Action != ActionCreated {
			t.Fatalf("first run item %d: action = %s, want created", i, o.Action)
		}
	}

	// Second and third runs with fresh engines rebuild the index from the
	// remote items and must update, not create.
	for run := 2; run <= 3; run++ {
		outcomes, err = newTestEngine(sink, nil, Options{}).SyncItems(ctx, items, false)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		for i, o := range outcomes {
			if o.Action != ActionUpdated {
				t.Fatalf("run %d item %d: action = %s, want updated", run, i, o.Action)
			}
		}
	}

	if got := len(sink.creates); got != 2 {
		t.Errorf("total creates = %d, want 2", got)
	}
	if got := len(sink.updates); got != 4 {
		t.Errorf("total updates = %d, want 4", got)
	}
}

func TestSameBatchDuplicatePrevention(t *testing.T) {
	// The same item twice in one batch: the index insertion after the
	// create must make the second occurrence an update.
	sink := &fakeSink{schema: engineSchema()}
	items := []zotero.Item{bibItem("K1", "Paper"), bibItem("K1", "Paper")}

	outcomes, err := newTestEngine(sink, nil, Options{}).SyncItems(context.Background(), items, false)
	if err != nil {
		t.Fatal(err)
	}

	want := []Action{ActionCreated, ActionUpdated}
	for i, a := range actions(outcomes) {
		if a != want[i] {
			t.Errorf("outcome %d: action = %s, want %s", i, a, want[i])
		}
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	sink := &fakeSink{schema: engineSchema(), failTitle: "Bad Paper"}
	items := []zotero.Item{
		bibItem("K1", "Paper One"),
		bibItem("K2", "Bad Paper"),
		bibItem("K3", "Paper Three"),
	}

	outcomes, err := newTestEngine(sink, nil, Options{}).SyncItems(context.Background(), items, false)
	if err != nil {
		t.Fatal(err)
	}

	want := []Action{ActionCreated, ActionError, ActionCreated}
	for i, a := range actions(outcomes) {
		if a != want[i] {
			t.Errorf("outcome %d: action = %s, want %s", i, a, want[i])
		}
	}
	if outcomes[1].Detail == "" || outcomes[1].Diagnostic == "" {
		t.Error("error outcome missing detail/diagnostic")
	}
}

func TestSchemaFailureAbortsRun(t *testing.T) {
	sink := &fakeSink{schemaErr: errors.New("boom")}
	_, err := newTestEngine(sink, nil, Options{}).SyncItems(context.Background(), []zotero.Item{bibItem("K1", "P")}, false)
	if err == nil {
		t.Fatal("expected run-level error when schema resolution fails")
	}
}

func TestSkippedItemTypes(t *testing.T) {
	sink := &fakeSink{schema: engineSchema()}
	item := zotero.Item{Key: "A1", Data: zotero.ItemData{ItemType: "attachment"}}

	outcomes, err := newTestEngine(sink, nil, Options{}).SyncItems(context.Background(), []zotero.Item{item}, false)
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Action != ActionSkipped {
		t.Errorf("action = %s, want skipped", outcomes[0].Action)
	}
	if len(sink.creates) != 0 {
		t.Error("skipped item was written")
	}
}

func TestAllowNewOptionsFlag(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want bool
	}{
		{"unseen tag needs new option", []string{"golang"}, true},
		{"existing option (case-insensitive)", []string{"ML"}, false},
		{"no tags", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{schema: engineSchema()}
			item := bibItem("K1", "Paper", tt.tags...)
			if _, err := newTestEngine(sink, nil, Options{}).SyncItems(context.Background(), []zotero.Item{item}, false); err != nil {
				t.Fatal(err)
			}
			if got := sink.creates[0].Opts.AllowNewOptions; got != tt.want {
				t.Errorf("AllowNewOptions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllowNewOptionsPlainTextTags(t *testing.T) {
	schema := &craft.Schema{Fields: []craft.Field{
		{Name: "Title", Key: "title", Type: craft.FieldTitle},
		{Name: "Tags", Key: "tags", Type: craft.FieldText},
		{Name: "Zotero Link", Key: "link", Type: craft.FieldURL},
	}}
	sink := &fakeSink{schema: schema}
	item := bibItem("K1", "Paper", "anything")

	if _, err := newTestEngine(sink, nil, Options{}).SyncItems(context.Background(), []zotero.Item{item}, false); err != nil {
		t.Fatal(err)
	}
	if sink.creates[0].Opts.AllowNewOptions {
		t.Error("plain text tag field set AllowNewOptions")
	}
}

func TestDefaultStatusOnCreateOnly(t *testing.T) {
	sink := &fakeSink{schema: engineSchema()}
	items := []zotero.Item{bibItem("K1", "Paper")}
	engine := newTestEngine(sink, nil, Options{DefaultStatus: "to read"})

	if _, err := engine.SyncItems(context.Background(), items, false); err != nil {
		t.Fatal(err)
	}
	if got := sink.creates[0].Props["status"]; got != "To Read" {
		t.Errorf("created status = %v, want canonical To Read", got)
	}

	if _, err := engine.SyncItems(context.Background(), items, false); err != nil {
		t.Fatal(err)
	}
	if _, set := sink.updates[0].Props["status"]; set {
		t.Error("update wrote the default status")
	}
}

func TestNotesAppendedAfterUpdate(t *testing.T) {
	sink := &fakeSink{schema: engineSchema()}
	source := &fakeSource{notes: map[string][]string{
		"K1": {"<p>First note</p>"},
	}}
	items := []zotero.Item{bibItem("K1", "Paper")}

	engine := newTestEngine(sink, source, Options{})
	if _, err := engine.SyncItems(context.Background(), items, true); err != nil {
		t.Fatal(err)
	}
	// Create carries blocks inline, no separate append.
	if len(sink.creates[0].Blocks) == 0 {
		t.Error("create call missing note blocks")
	}
	if len(sink.appends) != 0 {
		t.Error("create run should not append blocks separately")
	}

	outcomes, err := engine.SyncItems(context.Background(), items, true)
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Action != ActionUpdated {
		t.Fatalf("second run action = %s, want updated", outcomes[0].Action)
	}
	if got := sink.appends[outcomes[0].RemoteID]; len(got) == 0 {
		t.Error("update run did not append note blocks")
	}
}

func TestNoteFetchFailureIsItemError(t *testing.T) {
	sink := &fakeSink{schema: engineSchema()}
	source := &fakeSource{notesErr: errors.New("offline")}

	outcomes, err := newTestEngine(sink, source, Options{}).SyncItems(context.Background(), []zotero.Item{bibItem("K1", "Paper")}, true)
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Action != ActionError {
		t.Errorf("action = %s, want error", outcomes[0].Action)
	}
}

func TestDeleteEvictsLinkIndex(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{schema: engineSchema()}
	items := []zotero.Item{bibItem("K1", "Paper")}
	engine := newTestEngine(sink, nil, Options{})

	outcomes, err := engine.SyncItems(ctx, items, false)
	if err != nil {
		t.Fatal(err)
	}
	remoteID := outcomes[0].RemoteID

	deleted, err := engine.DeleteItems(ctx, []string{remoteID})
	if err != nil {
		t.Fatal(err)
	}
	if deleted[0].Action != ActionDeleted || deleted[0].RemoteID != remoteID {
		t.Fatalf("unexpected delete outcome %+v", deleted[0])
	}

	// With the index entry evicted, the item is created anew.
	outcomes, err = engine.SyncItems(ctx, items, false)
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Action != ActionCreated {
		t.Errorf("post-delete action = %s, want created", outcomes[0].Action)
	}
}

func TestLinkIndexScansNestedProperties(t *testing.T) {
	// The identity token can hide inside a link object or rich-text value;
	// the index build scans property values of unknown shape.
	link := zotero.ExternalLink("K1")
	sink := &fakeSink{
		schema: engineSchema(),
		items: []craft.Item{
			{ID: "doc-9", Properties: map[string]any{
				"ref": map[string]any{"blockId": "b", "title": "See " + link},
			}},
		},
	}
	sink.nextID = 9

	outcomes, err := newTestEngine(sink, nil, Options{}).SyncItems(context.Background(), []zotero.Item{bibItem("K1", "Paper")}, false)
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Action != ActionUpdated {
		t.Errorf("action = %s, want updated via nested link", outcomes[0].Action)
	}
	if outcomes[0].RemoteID != "doc-9" {
		t.Errorf("remote id = %s, want doc-9", outcomes[0].RemoteID)
	}
}

func TestNoSchemaStillSyncs(t *testing.T) {
	// A collection without schema enforcement gets title-only documents.
	sink := &fakeSink{schema: nil}

	outcomes, err := newTestEngine(sink, nil, Options{}).SyncItems(context.Background(), []zotero.Item{bibItem("K1", "Paper")}, false)
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Action != ActionCreated {
		t.Fatalf("action = %s, want created", outcomes[0].Action)
	}
	if len(sink.creates[0].Props) != 0 {
		t.Errorf("props = %v, want none without a schema", sink.creates[0].Props)
	}
}
