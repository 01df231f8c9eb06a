// Package main provides the zotcraft CLI entry point.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joho/godotenv"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zotcraft",
	Short: "Sync a Zotero library into a Craft collection",
	Long: `zotcraft synchronizes bibliographic records from a Zotero library
(local zotero.sqlite or the Zotero Web API) into a Craft collection.

Field names in the target collection are matched by synonym (Authors,
Year, Journal, Tags, ...) and values are coerced to the declared field
types. Repeated runs are idempotent: items already synced are updated in
place, keyed by their Zotero select link.

All commands output JSON by default. Use --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env if present (for ZOTERO_API_KEY / CRAFT_TOKEN)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
