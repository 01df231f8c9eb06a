package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matsen/zotcraft/internal/zotero"
)

// CollectionSummary is the JSON shape of one collection in listings.
type CollectionSummary struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Path string `json:"path"`
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List Zotero collections with their paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if err := cfg.ValidateSource(); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}

		source := buildSource(cfg)
		cols, err := source.ListCollections(context.Background())
		if err != nil {
			exitWithError(ExitDataError, "listing collections: %v", err)
		}

		byKey := make(map[string]zotero.Collection, len(cols))
		for _, c := range cols {
			byKey[c.Key] = c
		}

		summaries := make([]CollectionSummary, 0, len(cols))
		for _, c := range cols {
			summaries = append(summaries, CollectionSummary{
				Key:  c.Key,
				Name: c.Data.Name,
				Path: zotero.PathName(c.Key, byKey),
			})
		}
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].Path < summaries[j].Path })

		if !humanOutput {
			outputJSON(summaries)
			return nil
		}
		for _, s := range summaries {
			fmt.Printf("%s  %s\n", s.Key, s.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}
