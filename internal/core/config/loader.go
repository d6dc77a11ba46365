package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDebounce               = 500 * time.Millisecond
	DefaultMultiLineWrapThreshold = 125
)

// DefaultGroups is the grouping used when none is configured or the configured one is invalid.
var DefaultGroups = []string{"Plains", "Modules", "Workspace"}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes TOML text, applies defaults and validates the result.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateIndex(&cfg); err != nil {
		return nil, err
	}
	if err := validateImports(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Paths.ProjectRoot) == "" {
		cfg.Paths.ProjectRoot = "."
	}

	if cfg.Index.WorkspaceIgnorePatterns == nil {
		cfg.Index.WorkspaceIgnorePatterns = []string{"**/build/**", "**/out/**", "**/dist/**"}
	}
	if cfg.Index.Debounce <= 0 {
		cfg.Index.Debounce = DefaultDebounce
	}

	if strings.TrimSpace(cfg.Imports.StringQuoteStyle) == "" {
		cfg.Imports.StringQuoteStyle = "'"
	}
	if cfg.Imports.MultiLineWrapThreshold <= 0 {
		cfg.Imports.MultiLineWrapThreshold = DefaultMultiLineWrapThreshold
	}
	if cfg.Imports.TabSize <= 0 {
		cfg.Imports.TabSize = 4
	}
	if cfg.Imports.IgnoredFromRemoval == nil {
		cfg.Imports.IgnoredFromRemoval = []string{"react"}
	}
	if len(cfg.Imports.Groups) == 0 {
		for _, id := range DefaultGroups {
			cfg.Imports.Groups = append(cfg.Imports.Groups, ImportGroup{Identifier: id, Order: "asc"})
		}
	}
	for i := range cfg.Imports.Groups {
		order := strings.ToLower(strings.TrimSpace(cfg.Imports.Groups[i].Order))
		if order == "" {
			order = "asc"
		}
		cfg.Imports.Groups[i].Order = order
	}

	if cfg.Watch.ExcludeDirs == nil {
		cfg.Watch.ExcludeDirs = []string{".git", ".hg", ".svn"}
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "autoimport"
	}
	if strings.TrimSpace(cfg.Export.SQLitePath) == "" {
		cfg.Export.SQLitePath = "autoimport.db"
	}
}
