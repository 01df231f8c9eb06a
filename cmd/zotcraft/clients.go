package main

import (
	"context"
	"strings"

	"github.com/matsen/zotcraft/internal/config"
	"github.com/matsen/zotcraft/internal/craft"
	"github.com/matsen/zotcraft/internal/reconcile"
	"github.com/matsen/zotcraft/internal/zotero"
)

// loadConfig loads the global config, exiting on read/parse failure.
func loadConfig() *config.GlobalConfig {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return cfg
}

// buildSource picks the local database reader when zotero_db_path is set,
// the Web API client otherwise.
func buildSource(cfg *config.GlobalConfig) reconcile.Source {
	if cfg.ZoteroDBPath != "" {
		return zotero.OpenLocal(cfg.ZoteroDBPath, config.CacheDir())
	}

	opts := []zotero.ClientOption{zotero.WithAPIKey(cfg.ZoteroAPIKey)}
	if cfg.ZoteroGroupID != "" {
		opts = append(opts, zotero.WithGroupLibrary(cfg.ZoteroGroupID))
	}
	return zotero.NewClient(cfg.ZoteroUserID, opts...)
}

// buildSink creates the Craft client for the configured collection.
func buildSink(cfg *config.GlobalConfig) *craft.Client {
	opts := []craft.ClientOption{craft.WithToken(cfg.CraftToken)}
	if cfg.CraftBaseURL != "" {
		opts = append(opts, craft.WithBaseURL(cfg.CraftBaseURL))
	}
	return craft.NewClient(cfg.CraftCollectionID, opts...)
}

// resolveCollectionKey turns a collection name, path, or key into a
// collection key. When the collection listing fails, filtering is disabled
// with a single warning rather than aborting the run.
func resolveCollectionKey(ctx context.Context, source reconcile.Source, arg string) string {
	if arg == "" {
		return ""
	}

	cols, err := source.ListCollections(ctx)
	if err != nil {
		warnf("listing collections failed, ignoring collection filter: %v", err)
		return ""
	}

	byKey := make(map[string]zotero.Collection, len(cols))
	for _, c := range cols {
		byKey[c.Key] = c
	}

	for _, c := range cols {
		if c.Key == arg ||
			strings.EqualFold(c.Data.Name, arg) ||
			strings.EqualFold(zotero.PathName(c.Key, byKey), arg) {
			return c.Key
		}
	}

	warnf("no collection named %q, ignoring collection filter", arg)
	return ""
}
