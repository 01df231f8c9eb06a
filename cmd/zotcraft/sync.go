package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/matsen/zotcraft/internal/reconcile"
	"github.com/matsen/zotcraft/internal/zotero"
)

// errPartialFailure signals a run that completed with per-item errors.
var errPartialFailure = errors.New("some items failed to sync")

var (
	syncLimit      int
	syncCollection string
	syncQuery      string
	syncNotes      bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync Zotero items into the Craft collection",
	Long: `Sync reads items from the configured Zotero library and reconciles
them against the Craft collection. Items already present (matched by their
Zotero select link) are updated in place; everything else is created. One
failing item never aborts the batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if err := cfg.ValidateSync(); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}

		ctx := context.Background()
		source := buildSource(cfg)
		sink := buildSink(cfg)

		collection := resolveCollectionKey(ctx, source, syncCollection)

		var items []zotero.Item
		var err error
		if syncQuery != "" {
			items, err = source.Search(ctx, syncQuery, syncLimit, collection)
		} else {
			items, err = source.ListRecent(ctx, syncLimit, collection)
		}
		if err != nil {
			exitWithError(ExitDataError, "reading Zotero library: %v", err)
		}

		engine := reconcile.NewEngine(source, sink, reconcile.Options{
			DefaultStatus: cfg.DefaultStatus,
			Warnf:         warnf,
		})

		outcomes, err := engine.SyncItems(ctx, items, syncNotes)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}

		report := NewSyncReport(outcomes)
		if humanOutput {
			printSyncReportHuman(report)
		} else {
			outputJSON(report)
		}
		if report.Errors > 0 {
			cmd.SilenceErrors = true
			return errPartialFailure
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().IntVar(&syncLimit, "limit", 50, "Maximum number of items to sync")
	syncCmd.Flags().StringVar(&syncCollection, "collection", "", "Restrict to a collection (key, name, or path)")
	syncCmd.Flags().StringVar(&syncQuery, "query", "", "Sync items matching a search query instead of recent items")
	syncCmd.Flags().BoolVar(&syncNotes, "notes", false, "Append child notes as document blocks")
	rootCmd.AddCommand(syncCmd)
}
