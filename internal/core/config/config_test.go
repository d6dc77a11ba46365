package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"autoimport/internal/core/errors"
)

func TestLoad(t *testing.T) {
	content := `
[index]
workspace_ignore_patterns = ["**/generated/**"]
debounce = "1s"
include_javascript = true

[resolver]
strip_trailing_index = true

[imports]
string_quote_style = '"'
insert_semicolons = false
multi_line_wrap_threshold = 80

[[imports.groups]]
identifier = "Plains"

[[imports.groups]]
identifier = "/^@angular/"
order = "desc"
`
	path := filepath.Join(t.TempDir(), "autoimport.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Index.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Index.Debounce)
	}
	if !cfg.Index.IncludeJavaScript {
		t.Error("expected include_javascript to be true")
	}
	if !cfg.Resolver.StripTrailingIndex {
		t.Error("expected strip_trailing_index to be true")
	}
	if cfg.Imports.Quote() != `"` {
		t.Errorf("expected double quote, got %s", cfg.Imports.Quote())
	}
	if cfg.Imports.Semicolons() {
		t.Error("expected semicolons disabled")
	}
	if !cfg.Imports.BraceSpacing() {
		t.Error("expected brace spacing to default to true")
	}
	if cfg.Imports.MultiLineWrapThreshold != 80 {
		t.Errorf("expected wrap threshold 80, got %d", cfg.Imports.MultiLineWrapThreshold)
	}
	if len(cfg.Imports.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(cfg.Imports.Groups))
	}
	if cfg.Imports.Groups[0].Order != "asc" {
		t.Errorf("expected default order asc, got %s", cfg.Imports.Groups[0].Order)
	}
	if cfg.Imports.Groups[1].Order != "desc" {
		t.Errorf("expected desc order, got %s", cfg.Imports.Groups[1].Order)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Index.Debounce != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %v", cfg.Index.Debounce)
	}
	if cfg.Imports.MultiLineWrapThreshold != 125 {
		t.Errorf("expected wrap threshold 125, got %d", cfg.Imports.MultiLineWrapThreshold)
	}
	if len(cfg.Imports.IgnoredFromRemoval) != 1 || cfg.Imports.IgnoredFromRemoval[0] != "react" {
		t.Errorf("expected react to be ignored from removal, got %v", cfg.Imports.IgnoredFromRemoval)
	}
	if len(cfg.Imports.Groups) != 3 {
		t.Errorf("expected default groups, got %v", cfg.Imports.Groups)
	}
	if cfg.Imports.Quote() != "'" {
		t.Errorf("expected single quote default, got %s", cfg.Imports.Quote())
	}
	if cfg.Imports.Indent() != "    " {
		t.Errorf("expected four-space indent, got %q", cfg.Imports.Indent())
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"quote":   "[imports]\nstring_quote_style = \"`\"\n",
		"order":   "[[imports.groups]]\nidentifier = \"Plains\"\norder = \"sideways\"\n",
		"glob":    "[index]\nworkspace_ignore_patterns = [\"[\"]\n",
		"version": "version = 9\n",
		"metrics": "[observability]\nmetrics_address = \"nowhere\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(content)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.IsCode(err, errors.CodeValidationError) {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("AUTOIMPORT_INDEX_DEBOUNCE", "2s")
	t.Setenv("AUTOIMPORT_RESOLVER_STRIP_TRAILING_INDEX", "true")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	if cfg.Index.Debounce != 2*time.Second {
		t.Errorf("expected env debounce 2s, got %v", cfg.Index.Debounce)
	}
	if !cfg.Resolver.StripTrailingIndex {
		t.Error("expected env to enable strip_trailing_index")
	}
}

func TestDetectProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "src", "components")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := DetectProjectRoot([]string{nested})
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != want {
		t.Errorf("expected %s, got %s", want, gotResolved)
	}
}

func TestResolveRelative(t *testing.T) {
	if got := ResolveRelative("/base", "sub/dir"); got != filepath.Clean("/base/sub/dir") {
		t.Errorf("unexpected relative resolution %s", got)
	}
	if got := ResolveRelative("/base", ""); got != filepath.Clean("/base") {
		t.Errorf("expected base for empty value, got %s", got)
	}
}
