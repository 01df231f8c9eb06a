package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/zotcraft/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		resolved := map[string]string{
			"config_path":         config.GlobalConfigPath(),
			"cache_dir":           config.CacheDir(),
			"zotero_api_key":      mask(cfg.ZoteroAPIKey),
			"zotero_user_id":      cfg.ZoteroUserID,
			"zotero_group_id":     cfg.ZoteroGroupID,
			"zotero_db_path":      cfg.ZoteroDBPath,
			"craft_base_url":      cfg.CraftBaseURL,
			"craft_token":         mask(cfg.CraftToken),
			"craft_collection_id": cfg.CraftCollectionID,
			"default_status":      cfg.DefaultStatus,
		}

		if !humanOutput {
			return outputJSON(resolved)
		}
		for _, key := range []string{
			"config_path", "cache_dir",
			"zotero_api_key", "zotero_user_id", "zotero_group_id", "zotero_db_path",
			"craft_base_url", "craft_token", "craft_collection_id", "default_status",
		} {
			fmt.Printf("%-20s %s\n", key, resolved[key])
		}
		if err := cfg.ValidateSync(); err != nil {
			fmt.Println()
			fmt.Println(config.HelpfulConfigMessage())
		}
		return nil
	},
}

// mask hides all but the last 4 characters of a secret.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
