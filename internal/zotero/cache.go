package zotero

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CacheFileName is the library snapshot cache file name.
const CacheFileName = "library.json"

// librarySnapshot is everything the local reader extracts from
// zotero.sqlite, cached as JSON keyed by the database modification time.
type librarySnapshot struct {
	DBModTime   int64               `json:"db_mtime"`
	Items       []Item              `json:"items"`
	Collections []Collection        `json:"collections"`
	Notes       map[string][]string `json:"notes,omitempty"` // item key -> note HTML bodies
}

// loadSnapshot reads a cached snapshot, returning ok=false when the cache
// is missing, unreadable, or stale against dbModTime.
func loadSnapshot(cacheDir string, dbModTime int64) (*librarySnapshot, bool) {
	data, err := os.ReadFile(filepath.Join(cacheDir, CacheFileName))
	if err != nil {
		return nil, false
	}

	var snap librarySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	if snap.DBModTime != dbModTime {
		return nil, false
	}
	return &snap, true
}

// saveSnapshot writes the snapshot to the cache directory, creating it if
// needed. A write failure is reported but the caller may proceed with the
// in-memory snapshot.
func saveSnapshot(cacheDir string, snap *librarySnapshot) error {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	if err := os.WriteFile(filepath.Join(cacheDir, CacheFileName), data, 0o644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}
