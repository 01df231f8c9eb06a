package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/zotcraft/internal/mapping"
	"github.com/matsen/zotcraft/internal/zotero"
)

var (
	searchLimit      int
	searchCollection string
)

// ItemSummary is the JSON shape of one item in search/list output.
type ItemSummary struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Authors string   `json:"authors"`
	Year    string   `json:"year"`
	Venue   string   `json:"venue,omitempty"`
	Type    string   `json:"type"`
	Tags    []string `json:"tags,omitempty"`
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the Zotero library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if err := cfg.ValidateSource(); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}

		ctx := context.Background()
		source := buildSource(cfg)
		collection := resolveCollectionKey(ctx, source, searchCollection)

		items, err := source.Search(ctx, strings.Join(args, " "), searchLimit, collection)
		if err != nil {
			exitWithError(ExitDataError, "searching Zotero library: %v", err)
		}

		printItems(items)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently modified Zotero items",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if err := cfg.ValidateSource(); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}

		ctx := context.Background()
		source := buildSource(cfg)
		collection := resolveCollectionKey(ctx, source, searchCollection)

		items, err := source.ListRecent(ctx, searchLimit, collection)
		if err != nil {
			exitWithError(ExitDataError, "reading Zotero library: %v", err)
		}

		printItems(items)
		return nil
	},
}

// printItems renders items as summaries in the selected output mode.
func printItems(items []zotero.Item) {
	summaries := make([]ItemSummary, 0, len(items))
	for _, it := range items {
		attrs := mapping.Normalize(it)
		summaries = append(summaries, ItemSummary{
			Key:     it.Key,
			Title:   attrs.Title,
			Authors: attrs.Authors,
			Year:    attrs.Year,
			Venue:   attrs.Venue,
			Type:    attrs.TypeLabel,
			Tags:    attrs.Tags,
		})
	}

	if !humanOutput {
		outputJSON(summaries)
		return
	}
	for _, s := range summaries {
		title := s.Title
		if len(title) > listTitleMaxLen {
			title = title[:listTitleMaxLen] + "…"
		}
		fmt.Printf("%s  %-4s  %s — %s\n", s.Key, s.Year, title, s.Authors)
	}
}

func init() {
	for _, cmd := range []*cobra.Command{searchCmd, listCmd} {
		cmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum number of items")
		cmd.Flags().StringVar(&searchCollection, "collection", "", "Restrict to a collection (key, name, or path)")
	}
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
}
