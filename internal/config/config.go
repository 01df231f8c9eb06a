// Package config handles global configuration for zotcraft.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in
// ~/.config/zotcraft/config.yml.
type GlobalConfig struct {
	ZoteroAPIKey  string `yaml:"zotero_api_key,omitempty"`
	ZoteroUserID  string `yaml:"zotero_user_id,omitempty"`
	ZoteroGroupID string `yaml:"zotero_group_id,omitempty"`
	ZoteroDBPath  string `yaml:"zotero_db_path,omitempty"`

	CraftBaseURL      string `yaml:"craft_base_url,omitempty"`
	CraftToken        string `yaml:"craft_token,omitempty"`
	CraftCollectionID string `yaml:"craft_collection_id,omitempty"`

	// DefaultStatus is written to a status field on first sync of an item.
	DefaultStatus string `yaml:"default_status,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "zotcraft"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file. Respects
// XDG_CONFIG_HOME, defaults to ~/.config/zotcraft/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// CacheDir returns the snapshot cache directory. Respects XDG_CACHE_HOME,
// defaults to ~/.cache/zotcraft.
func CacheDir() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, GlobalConfigDir)
}

// LoadGlobalConfig loads the global configuration file. Returns an empty
// config (not an error) if the file doesn't exist. Environment variables
// override file values for the two credentials.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	cfg := &GlobalConfig{}

	path := GlobalConfigPath()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		case os.IsNotExist(err):
			// Fine: config is optional when env vars carry the settings.
		default:
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	if key := os.Getenv("ZOTERO_API_KEY"); key != "" {
		cfg.ZoteroAPIKey = key
	}
	if token := os.Getenv("CRAFT_TOKEN"); token != "" {
		cfg.CraftToken = token
	}
	cfg.ZoteroDBPath = ExpandTilde(cfg.ZoteroDBPath)

	globalConfigCache = cfg
	return cfg, nil
}

// ResetGlobalConfigCache clears the cached global config. Useful for
// testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// Save writes the configuration to the global config path, creating the
// directory if needed.
func (c *GlobalConfig) Save() error {
	path := GlobalConfigPath()
	if path == "" {
		return errors.New("cannot determine config path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// Configuration errors, surfaced once before any remote call.
var (
	ErrCraftNotConfigured  = errors.New("craft_collection_id not configured")
	ErrZoteroNotConfigured = errors.New("no Zotero source configured (set zotero_db_path, or zotero_api_key with zotero_user_id or zotero_group_id)")
)

// ValidateSync checks the settings a sync run requires.
func (c *GlobalConfig) ValidateSync() error {
	if c.CraftCollectionID == "" {
		return ErrCraftNotConfigured
	}
	return c.ValidateSource()
}

// ValidateSource checks that at least one Zotero source is configured.
func (c *GlobalConfig) ValidateSource() error {
	if c.ZoteroDBPath != "" {
		if _, err := os.Stat(c.ZoteroDBPath); err != nil {
			return fmt.Errorf("zotero_db_path does not exist: %s", c.ZoteroDBPath)
		}
		return nil
	}
	if c.ZoteroAPIKey != "" && (c.ZoteroUserID != "" || c.ZoteroGroupID != "") {
		return nil
	}
	return ErrZoteroNotConfigured
}

// HelpfulConfigMessage returns guidance for an unconfigured installation.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`zotcraft is not configured.

Tip: Create %s:
  mkdir -p %s
  cat > %s <<EOF
  zotero_api_key: <key from zotero.org/settings/keys>
  zotero_user_id: "<your numeric user id>"
  craft_token: <Craft Connect API token>
  craft_collection_id: <collection id>
  EOF

ZOTERO_API_KEY and CRAFT_TOKEN environment variables override the file.`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
