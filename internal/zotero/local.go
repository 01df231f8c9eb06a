package zotero

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// Local reads a Zotero library from a local zotero.sqlite database through
// a file-backed snapshot cache keyed by the database modification time.
// It exposes the same capabilities as the Web API client.
type Local struct {
	dbPath   string
	cacheDir string

	loaded bool
	snap   *librarySnapshot
}

// OpenLocal creates a reader for the given zotero.sqlite path. The cache
// directory is created on first use.
func OpenLocal(dbPath, cacheDir string) *Local {
	return &Local{dbPath: dbPath, cacheDir: cacheDir}
}

// load populates the snapshot, from cache when fresh, otherwise by reading
// the database.
func (l *Local) load() error {
	if l.loaded {
		return nil
	}

	info, err := os.Stat(l.dbPath)
	if err != nil {
		return fmt.Errorf("stat zotero database: %w", err)
	}
	mtime := info.ModTime().UnixNano()

	if snap, ok := loadSnapshot(l.cacheDir, mtime); ok {
		l.snap = snap
		l.loaded = true
		return nil
	}

	snap, err := readDatabase(l.dbPath)
	if err != nil {
		return err
	}
	snap.DBModTime = mtime

	if err := saveSnapshot(l.cacheDir, snap); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	l.snap = snap
	l.loaded = true
	return nil
}

// ListRecent returns the most recently modified items, newest first.
func (l *Local) ListRecent(ctx context.Context, limit int, collection string) ([]Item, error) {
	if err := l.load(); err != nil {
		return nil, err
	}
	return l.filter(limit, collection, nil), nil
}

// Search returns items whose title, authors, or venue contain the query,
// case-insensitively.
func (l *Local) Search(ctx context.Context, query string, limit int, collection string) ([]Item, error) {
	if err := l.load(); err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	match := func(it Item) bool {
		if strings.Contains(strings.ToLower(it.Data.Title), q) {
			return true
		}
		if strings.Contains(strings.ToLower(it.Data.PublicationTitle), q) {
			return true
		}
		for _, c := range it.Data.Creators {
			if strings.Contains(strings.ToLower(c.DisplayName()), q) {
				return true
			}
		}
		return false
	}
	return l.filter(limit, collection, match), nil
}

// ListCollections returns all collections in the library.
func (l *Local) ListCollections(ctx context.Context) ([]Collection, error) {
	if err := l.load(); err != nil {
		return nil, err
	}
	return l.snap.Collections, nil
}

// ChildNotes returns the HTML bodies of an item's child notes.
func (l *Local) ChildNotes(ctx context.Context, itemKey string) ([]string, error) {
	if err := l.load(); err != nil {
		return nil, err
	}
	return l.snap.Notes[itemKey], nil
}

// filter applies collection membership and an optional predicate, then
// sorts by dateModified descending and truncates to limit.
func (l *Local) filter(limit int, collection string, match func(Item) bool) []Item {
	var out []Item
	for _, it := range l.snap.Items {
		if collection != "" && !containsString(it.Data.Collections, collection) {
			continue
		}
		if match != nil && !match(it) {
			continue
		}
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Data.DateModified > out[j].Data.DateModified
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// excludedItemTypes are item types that are not bibliographic records.
var excludedItemTypes = []string{"attachment", "note", "annotation"}

// readDatabase extracts a library snapshot from zotero.sqlite. Zotero holds
// a lock on the live database, so it is copied to a temp file first.
func readDatabase(dbPath string) (*librarySnapshot, error) {
	tmp, err := copyToTemp(dbPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	db, err := sql.Open("sqlite", tmp)
	if err != nil {
		return nil, fmt.Errorf("opening zotero database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	snap := &librarySnapshot{Notes: map[string][]string{}}

	if err := readItems(db, snap); err != nil {
		return nil, err
	}
	if err := readCollections(db, snap); err != nil {
		return nil, err
	}
	if err := readNotes(db, snap); err != nil {
		return nil, err
	}
	backfillDOIs(filepath.Dir(dbPath), db, snap)

	return snap, nil
}

// copyToTemp copies the database file to the temp directory.
func copyToTemp(dbPath string) (string, error) {
	src, err := os.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("opening zotero database: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "zotcraft-*.sqlite")
	if err != nil {
		return "", fmt.Errorf("creating temp database copy: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("copying zotero database: %w", err)
	}
	return dst.Name(), nil
}

// readItems loads all non-deleted bibliographic items with their field
// values, creators, tags, and collection memberships.
func readItems(db *sql.DB, snap *librarySnapshot) error {
	rows, err := db.Query(`
		SELECT i.itemID, i.key, i.libraryID, it.typeName,
		       i.dateAdded, i.dateModified
		FROM items i
		JOIN itemTypes it ON it.itemTypeID = i.itemTypeID
		WHERE it.typeName NOT IN ('attachment', 'note', 'annotation')
		  AND i.itemID NOT IN (SELECT itemID FROM deletedItems)`)
	if err != nil {
		return fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	type row struct {
		id   int64
		item Item
	}
	var loaded []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.item.Key, &r.item.Library.ID, &r.item.Data.ItemType,
			&r.item.Data.DateAdded, &r.item.Data.DateModified); err != nil {
			return fmt.Errorf("scanning item: %w", err)
		}
		r.item.Data.Key = r.item.Key
		loaded = append(loaded, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading items: %w", err)
	}

	for i := range loaded {
		if err := readItemFields(db, loaded[i].id, &loaded[i].item.Data); err != nil {
			return err
		}
		if err := readItemCreators(db, loaded[i].id, &loaded[i].item.Data); err != nil {
			return err
		}
		if err := readItemTags(db, loaded[i].id, &loaded[i].item.Data); err != nil {
			return err
		}
		if err := readItemCollections(db, loaded[i].id, &loaded[i].item.Data); err != nil {
			return err
		}
		snap.Items = append(snap.Items, loaded[i].item)
	}
	return nil
}

// readItemFields maps the itemData EAV rows onto ItemData.
func readItemFields(db *sql.DB, itemID int64, data *ItemData) error {
	rows, err := db.Query(`
		SELECT f.fieldName, v.value
		FROM itemData d
		JOIN fields f ON f.fieldID = d.fieldID
		JOIN itemDataValues v ON v.valueID = d.valueID
		WHERE d.itemID = ?`, itemID)
	if err != nil {
		return fmt.Errorf("querying item fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return fmt.Errorf("scanning item field: %w", err)
		}
		switch name {
		case "title":
			data.Title = value
		case "date":
			data.Date = value
		case "abstractNote":
			data.AbstractNote = value
		case "url":
			data.URL = value
		case "DOI":
			data.DOI = value
		case "publicationTitle":
			data.PublicationTitle = value
		case "publisher":
			data.Publisher = value
		case "institution":
			data.Institution = value
		case "archive":
			data.Archive = value
		case "repository":
			data.Repository = value
		case "extra":
			data.Extra = value
		}
	}
	return rows.Err()
}

func readItemCreators(db *sql.DB, itemID int64, data *ItemData) error {
	rows, err := db.Query(`
		SELECT c.firstName, c.lastName, c.fieldMode
		FROM itemCreators ic
		JOIN creators c ON c.creatorID = ic.creatorID
		WHERE ic.itemID = ?
		ORDER BY ic.orderIndex`, itemID)
	if err != nil {
		return fmt.Errorf("querying creators: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var first, last sql.NullString
		var fieldMode int
		if err := rows.Scan(&first, &last, &fieldMode); err != nil {
			return fmt.Errorf("scanning creator: %w", err)
		}
		c := Creator{CreatorType: "author"}
		if fieldMode == 1 {
			// Single-field creator (institution etc.), stored in lastName.
			c.Name = last.String
		} else {
			c.FirstName = first.String
			c.LastName = last.String
		}
		data.Creators = append(data.Creators, c)
	}
	return rows.Err()
}

func readItemTags(db *sql.DB, itemID int64, data *ItemData) error {
	rows, err := db.Query(`
		SELECT t.name
		FROM itemTags it
		JOIN tags t ON t.tagID = it.tagID
		WHERE it.itemID = ?`, itemID)
	if err != nil {
		return fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning tag: %w", err)
		}
		data.Tags = append(data.Tags, Tag{Tag: name})
	}
	return rows.Err()
}

func readItemCollections(db *sql.DB, itemID int64, data *ItemData) error {
	rows, err := db.Query(`
		SELECT c.key
		FROM collectionItems ci
		JOIN collections c ON c.collectionID = ci.collectionID
		WHERE ci.itemID = ?`, itemID)
	if err != nil {
		return fmt.Errorf("querying item collections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return fmt.Errorf("scanning item collection: %w", err)
		}
		data.Collections = append(data.Collections, key)
	}
	return rows.Err()
}

func readCollections(db *sql.DB, snap *librarySnapshot) error {
	rows, err := db.Query(`
		SELECT c.key, c.collectionName, p.key
		FROM collections c
		LEFT JOIN collections p ON p.collectionID = c.parentCollectionID`)
	if err != nil {
		return fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var col Collection
		var parent sql.NullString
		if err := rows.Scan(&col.Key, &col.Data.Name, &parent); err != nil {
			return fmt.Errorf("scanning collection: %w", err)
		}
		col.Data.Key = col.Key
		col.Data.ParentCollection = StringOrBool(parent.String)
		snap.Collections = append(snap.Collections, col)
	}
	return rows.Err()
}

func readNotes(db *sql.DB, snap *librarySnapshot) error {
	rows, err := db.Query(`
		SELECT p.key, n.note
		FROM itemNotes n
		JOIN items p ON p.itemID = n.parentItemID
		WHERE n.note IS NOT NULL AND n.note != ''`)
	if err != nil {
		return fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, note string
		if err := rows.Scan(&key, &note); err != nil {
			return fmt.Errorf("scanning note: %w", err)
		}
		snap.Notes[key] = append(snap.Notes[key], note)
	}
	return rows.Err()
}
