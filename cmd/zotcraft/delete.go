package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/zotcraft/internal/reconcile"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <remote-id>...",
	Short: "Delete items from the Craft collection",
	Long: `Delete removes previously synced documents from the Craft collection
by their remote ids (as reported in sync output). The Zotero library is
never modified.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.CraftCollectionID == "" {
			exitWithError(ExitConfigError, "craft_collection_id not configured")
		}

		sink := buildSink(cfg)
		engine := reconcile.NewEngine(nil, sink, reconcile.Options{Warnf: warnf})

		outcomes, err := engine.DeleteItems(context.Background(), args)
		if err != nil {
			exitWithError(ExitError, "deleting items: %v", err)
		}

		report := NewSyncReport(outcomes)
		if humanOutput {
			printSyncReportHuman(report)
		} else {
			outputJSON(report)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
