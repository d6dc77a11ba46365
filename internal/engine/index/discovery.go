package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"autoimport/internal/core/config"
	"autoimport/internal/core/errors"
	"autoimport/internal/engine/parser"
	"autoimport/internal/shared/util"

	"github.com/gobwas/glob"
	"github.com/tidwall/jsonc"
)

const (
	nodeModulesDir = "node_modules"
	typingsDir     = "typings"
)

// Discoverer finds the files that feed a workspace index: workspace sources,
// declaration files of declared dependencies, and typings folders.
type Discoverer struct {
	root            string
	includeJS       bool
	workspaceIgnore []glob.Glob
	moduleIgnore    []glob.Glob
	logger          *slog.Logger
}

func NewDiscoverer(root string, cfg config.Index, logger *slog.Logger) (*Discoverer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ws, err := compileIgnoreGlobs(cfg.WorkspaceIgnorePatterns)
	if err != nil {
		return nil, err
	}
	mods, err := compileIgnoreGlobs(cfg.ModuleIgnorePatterns)
	if err != nil {
		return nil, err
	}
	return &Discoverer{
		root:            filepath.Clean(root),
		includeJS:       cfg.IncludeJavaScript,
		workspaceIgnore: ws,
		moduleIgnore:    mods,
		logger:          logger,
	}, nil
}

// compileIgnoreGlobs compiles root-relative slash patterns. A leading `**/`
// also matches at the root, so `**/build/**` excludes `build/a.ts`.
func compileIgnoreGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = util.NormalizePatternPath(p)
		if p == "" {
			continue
		}
		variants := []string{p}
		if rest, ok := strings.CutPrefix(p, "**/"); ok && rest != "" {
			variants = append(variants, rest)
		}
		for _, v := range variants {
			g, err := glob.Compile(v, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
			}
			out = append(out, g)
		}
	}
	return out, nil
}

func matchesAny(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Discover returns the sorted, de-duplicated absolute paths to index. An
// unreadable root or directory fails with INDEX_BUILD_ERROR.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	info, err := os.Stat(d.root)
	if err != nil {
		return nil, errors.NewIndexBuildError(d.root, err)
	}
	if !info.IsDir() {
		return nil, errors.NewIndexBuildError(d.root, fmt.Errorf("not a directory"))
	}

	seen := make(map[string]bool)
	add := func(path string) {
		seen[filepath.Clean(path)] = true
	}

	var typingRoots []string
	err = filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, _ := util.RelSlash(d.root, path)
		if entry.IsDir() {
			if rel == "" {
				return nil
			}
			switch entry.Name() {
			case nodeModulesDir, ".git":
				return filepath.SkipDir
			case typingsDir:
				typingRoots = append(typingRoots, path)
				return filepath.SkipDir
			}
			if matchesAny(d.workspaceIgnore, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.acceptWorkspaceFile(rel) {
			add(path)
		}
		return nil
	})
	if err != nil {
		return nil, d.walkError(err)
	}

	for _, dir := range typingRoots {
		if err := d.walkDeclarations(ctx, dir, nil, add); err != nil {
			return nil, d.walkError(err)
		}
	}

	if err := d.discoverModules(ctx, add); err != nil {
		return nil, d.walkError(err)
	}

	files := util.SortedStringKeys(seen)
	d.logger.Debug("discovered index files", "root", d.root, "files", len(files))
	return files, nil
}

func (d *Discoverer) walkError(err error) error {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return err
	}
	return errors.NewIndexBuildError(d.root, err)
}

func (d *Discoverer) acceptWorkspaceFile(rel string) bool {
	if !parser.IsSourcePath(rel, d.includeJS) {
		return false
	}
	return !matchesAny(d.workspaceIgnore, rel)
}

// discoverModules walks node_modules/<dep> for every dependency declared in
// the nearest package.json, or all of node_modules when there is none.
func (d *Discoverer) discoverModules(ctx context.Context, add func(string)) error {
	modules := filepath.Join(d.root, nodeModulesDir)
	if info, err := os.Stat(modules); err != nil || !info.IsDir() {
		return nil
	}

	manifest, manifestPath := nearestManifest(d.root)
	if manifest == nil {
		d.logger.Debug("no package.json found, indexing all of node_modules", "root", d.root)
		return d.walkDeclarations(ctx, modules, nil, add)
	}

	deps := manifest.dependencyNames()
	d.logger.Debug("indexing declared dependencies", "manifest", manifestPath, "dependencies", len(deps))
	for _, dep := range deps {
		dir := filepath.Join(modules, filepath.FromSlash(dep))
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		// Transitive node_modules of a dependency are not indexed.
		skip := func(entry fs.DirEntry) bool { return entry.Name() == nodeModulesDir }
		if err := d.walkDeclarations(ctx, dir, skip, add); err != nil {
			return err
		}
	}
	return nil
}

func (d *Discoverer) walkDeclarations(ctx context.Context, dir string, skipDir func(fs.DirEntry) bool, add func(string)) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, _ := util.RelSlash(d.root, path)
		if entry.IsDir() {
			if path != dir && skipDir != nil && skipDir(entry) {
				return filepath.SkipDir
			}
			if path != dir && matchesAny(d.moduleIgnore, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if parser.IsDeclarationFile(path) && !matchesAny(d.moduleIgnore, rel) {
			add(path)
		}
		return nil
	})
}

// Accept reports whether a changed path belongs in the index. It mirrors
// Discover without touching the file system.
func (d *Discoverer) Accept(path string) bool {
	rel, ok := util.RelSlash(d.root, filepath.Clean(path))
	if !ok || rel == "" {
		return false
	}
	segments := strings.Split(rel, "/")
	for _, seg := range segments[:len(segments)-1] {
		switch seg {
		case nodeModulesDir, typingsDir:
			return parser.IsDeclarationFile(rel) && !matchesAny(d.moduleIgnore, rel)
		case ".git":
			return false
		}
	}
	return d.acceptWorkspaceFile(rel)
}

// packageManifest is the subset of package.json the index reads.
type packageManifest struct {
	Name            string            `json:"name"`
	Types           string            `json:"types"`
	Typings         string            `json:"typings"`
	Main            string            `json:"main"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (m *packageManifest) dependencyNames() []string {
	names := make(map[string]bool, len(m.Dependencies)+len(m.DevDependencies))
	for name := range m.Dependencies {
		names[name] = true
	}
	for name := range m.DevDependencies {
		names[name] = true
	}
	return util.SortedStringKeys(names)
}

// entry returns the package's entry file without extension, relative to the
// package directory.
func (m *packageManifest) entry() string {
	for _, candidate := range []string{m.Types, m.Typings, m.Main} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		candidate = util.NormalizePatternPath(candidate)
		return parser.TrimSourceExtension(candidate)
	}
	return "index"
}

func readManifest(path string) (*packageManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m packageManifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// nearestManifest looks for package.json in dir and its ancestors.
func nearestManifest(dir string) (*packageManifest, string) {
	for {
		candidate := filepath.Join(dir, "package.json")
		if m, err := readManifest(candidate); err == nil {
			return m, candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ""
		}
		dir = parent
	}
}

// sortedUnique returns absolute, cleaned, de-duplicated paths in order.
func sortedUnique(paths []string) []string {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		set[filepath.Clean(p)] = true
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
