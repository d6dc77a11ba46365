package config

import (
	"strings"
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Index         Index         `toml:"index"`
	Resolver      Resolver      `toml:"resolver"`
	Imports       Imports       `toml:"imports"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
	Export        Export        `toml:"export"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
}

// Index controls file discovery and re-index scheduling.
type Index struct {
	WorkspaceIgnorePatterns []string      `toml:"workspace_ignore_patterns"`
	ModuleIgnorePatterns    []string      `toml:"module_ignore_patterns"`
	IncludeJavaScript       bool          `toml:"include_javascript"`
	Debounce                time.Duration `toml:"debounce"`
	MaxFilesPerSecond       float64       `toml:"max_files_per_second"`
}

type Resolver struct {
	StripTrailingIndex bool `toml:"strip_trailing_index"`
}

// Imports holds the generator and organizer knobs. Pointer fields default to true.
type Imports struct {
	StringQuoteStyle                string        `toml:"string_quote_style"`
	InsertSemicolons                *bool         `toml:"insert_semicolons"`
	InsertSpaceBeforeAndAfterBraces *bool         `toml:"insert_space_before_and_after_braces"`
	MultiLineWrapThreshold          int           `toml:"multi_line_wrap_threshold"`
	MultiLineTrailingComma          *bool         `toml:"multi_line_trailing_comma"`
	TabSize                         int           `toml:"tab_size"`
	InsertSpaces                    *bool         `toml:"insert_spaces"`
	DisableImportsSorting           bool          `toml:"disable_imports_sorting"`
	DisableImportRemovalOnOrganize  bool          `toml:"disable_import_removal_on_organize"`
	OrganizeSortsByFirstSpecifier   bool          `toml:"organize_sorts_by_first_specifier"`
	OrganizeOnSave                  bool          `toml:"organize_on_save"`
	IgnoredFromRemoval              []string      `toml:"ignored_from_removal"`
	Groups                          []ImportGroup `toml:"groups"`
}

type ImportGroup struct {
	Identifier string `toml:"identifier"`
	Order      string `toml:"order"`
}

type Watch struct {
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
}

type Export struct {
	SQLitePath string `toml:"sqlite_path"`
}

// Quote returns the configured string delimiter.
func (i Imports) Quote() string {
	if i.StringQuoteStyle == `"` {
		return `"`
	}
	return `'`
}

// Indent returns one indentation unit for multi-line imports.
func (i Imports) Indent() string {
	if i.InsertSpaces != nil && !*i.InsertSpaces {
		return "\t"
	}
	size := i.TabSize
	if size <= 0 {
		size = 4
	}
	return strings.Repeat(" ", size)
}

func boolValue(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func (i Imports) Semicolons() bool { return boolValue(i.InsertSemicolons, true) }
func (i Imports) BraceSpacing() bool { return boolValue(i.InsertSpaceBeforeAndAfterBraces, true) }
func (i Imports) TrailingComma() bool { return boolValue(i.MultiLineTrailingComma, true) }
