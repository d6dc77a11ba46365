package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: AUTOIMPORT_[SECTION]_[KEY] (e.g., AUTOIMPORT_INDEX_DEBOUNCE).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Paths.ProjectRoot, "AUTOIMPORT_PATHS_PROJECT_ROOT")

	setEnvBool(&cfg.Index.IncludeJavaScript, "AUTOIMPORT_INDEX_INCLUDE_JAVASCRIPT")
	setEnvDuration(&cfg.Index.Debounce, "AUTOIMPORT_INDEX_DEBOUNCE")
	setEnvFloat64(&cfg.Index.MaxFilesPerSecond, "AUTOIMPORT_INDEX_MAX_FILES_PER_SECOND")

	setEnvBool(&cfg.Resolver.StripTrailingIndex, "AUTOIMPORT_RESOLVER_STRIP_TRAILING_INDEX")

	setEnvString(&cfg.Imports.StringQuoteStyle, "AUTOIMPORT_IMPORTS_STRING_QUOTE_STYLE")
	setEnvInt(&cfg.Imports.MultiLineWrapThreshold, "AUTOIMPORT_IMPORTS_MULTI_LINE_WRAP_THRESHOLD")
	setEnvBool(&cfg.Imports.OrganizeOnSave, "AUTOIMPORT_IMPORTS_ORGANIZE_ON_SAVE")

	setEnvString(&cfg.Observability.MetricsAddress, "AUTOIMPORT_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "AUTOIMPORT_OBSERVABILITY_OTLP_ENDPOINT")

	setEnvString(&cfg.Export.SQLitePath, "AUTOIMPORT_EXPORT_SQLITE_PATH")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
