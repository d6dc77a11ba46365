package config

import (
	"autoimport/internal/core/errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return errors.New(errors.CodeValidationError, fmt.Sprintf("unsupported config version %d; supported version is 1", cfg.Version))
	}
	return nil
}

func validateIndex(cfg *Config) error {
	for _, pattern := range append(append([]string{}, cfg.Index.WorkspaceIgnorePatterns...), cfg.Index.ModuleIgnorePatterns...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("index ignore pattern %q is invalid", pattern))
		}
	}
	if cfg.Index.MaxFilesPerSecond < 0 {
		return errors.New(errors.CodeValidationError, "index.max_files_per_second must be >= 0")
	}
	return nil
}

func validateImports(cfg *Config) error {
	quote := cfg.Imports.StringQuoteStyle
	if quote != "'" && quote != `"` {
		return errors.New(errors.CodeValidationError, fmt.Sprintf("imports.string_quote_style must be ' or \", got %q", quote))
	}
	for _, g := range cfg.Imports.Groups {
		if g.Order != "asc" && g.Order != "desc" {
			return errors.New(errors.CodeValidationError, fmt.Sprintf("imports.groups order must be asc or desc, got %q", g.Order))
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	addr := strings.TrimSpace(cfg.Observability.MetricsAddress)
	if addr != "" && !strings.Contains(addr, ":") {
		return errors.New(errors.CodeValidationError, fmt.Sprintf("observability.metrics_address must be host:port, got %q", addr))
	}
	return nil
}
