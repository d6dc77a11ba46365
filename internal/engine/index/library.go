package index

import (
	"path/filepath"
	"strings"

	"autoimport/internal/engine/parser"
	"autoimport/internal/engine/resolver"
	"autoimport/internal/shared/util"
)

// moduleFile locates a file under node_modules.
type moduleFile struct {
	pkg    string // package name as installed, e.g. "@types/node"
	pkgDir string // absolute package directory
	sub    string // path inside the package, slash separated, no extension
}

// libraries maps files to library names and resolves module specifiers back
// to indexed files. Package manifests are read on demand and cached for the
// lifetime of one pass.
type libraries struct {
	root      string
	strip     bool
	files     map[string]*parser.File
	manifests map[string]*packageManifest
}

func newLibraries(root string, strip bool, files map[string]*parser.File) *libraries {
	return &libraries{root: root, strip: strip, files: files, manifests: make(map[string]*packageManifest)}
}

func (l *libraries) manifest(pkgDir string) *packageManifest {
	if m, ok := l.manifests[pkgDir]; ok {
		return m
	}
	m, err := readManifest(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		m = nil
	}
	l.manifests[pkgDir] = m
	return m
}

// splitModulePath finds the package a node_modules file belongs to, using the
// last node_modules segment.
func (l *libraries) splitModulePath(path string) (moduleFile, bool) {
	slash := filepath.ToSlash(path)
	i := strings.LastIndex(slash, "/"+nodeModulesDir+"/")
	if i < 0 {
		return moduleFile{}, false
	}
	base := slash[:i+len(nodeModulesDir)+2]
	rest := slash[len(base):]
	parts := strings.Split(rest, "/")
	n := 1
	if strings.HasPrefix(parts[0], "@") {
		n = 2
	}
	if len(parts) <= n {
		return moduleFile{}, false
	}
	pkg := strings.Join(parts[:n], "/")
	return moduleFile{
		pkg:    pkg,
		pkgDir: filepath.FromSlash(base + pkg),
		sub:    parser.TrimSourceExtension(strings.Join(parts[n:], "/")),
	}, true
}

// typesPackageName maps a DefinitelyTyped package to the package it types:
// "@types/node" is "node" and "@types/babel__core" is "@babel/core".
func typesPackageName(pkg string) string {
	name, ok := strings.CutPrefix(pkg, "@types/")
	if !ok {
		return pkg
	}
	if scope, rest, found := strings.Cut(name, "__"); found {
		return "@" + scope + "/" + rest
	}
	return name
}

// libraryFor returns the library a file's declarations are importable from.
func (l *libraries) libraryFor(path string) string {
	if mf, ok := l.splitModulePath(path); ok {
		name := typesPackageName(mf.pkg)
		entry := "index"
		if m := l.manifest(mf.pkgDir); m != nil {
			entry = m.entry()
		}
		if mf.sub == entry || mf.sub == "index" {
			return name
		}
		return resolver.StripTrailingIndex(name + "/" + mf.sub)
	}

	rel, ok := util.RelSlash(l.root, path)
	if !ok {
		rel = filepath.ToSlash(path)
	}
	lib := "/" + parser.TrimSourceExtension(rel)
	if l.strip {
		lib = resolver.StripTrailingIndex(lib)
	}
	return lib
}

func (l *libraries) isNodeModule(path string) bool {
	_, ok := l.splitModulePath(path)
	return ok
}

func isBarrel(path string) bool {
	return filepath.Base(parser.TrimSourceExtension(path)) == "index"
}

// resolveExtensions is the lookup order for extension-less specifiers.
var resolveExtensions = []string{".ts", ".tsx", ".d.ts", ".mts", ".cts", ".d.mts", ".d.cts", ".js", ".jsx", ".mjs", ".cjs"}

func (l *libraries) lookup(base string) string {
	if _, ok := l.files[base]; ok {
		return base
	}
	trimmed := parser.TrimSourceExtension(base)
	for _, candidate := range []string{trimmed, base} {
		for _, ext := range resolveExtensions {
			if _, ok := l.files[candidate+ext]; ok {
				return candidate + ext
			}
		}
		for _, ext := range resolveExtensions {
			p := filepath.Join(candidate, "index") + ext
			if _, ok := l.files[p]; ok {
				return p
			}
		}
	}
	return ""
}

// resolve maps a specifier written in fromPath to an indexed file, or "".
func (l *libraries) resolve(fromPath, specifier string) string {
	if resolver.IsRelative(specifier) {
		return l.lookup(filepath.Join(filepath.Dir(fromPath), filepath.FromSlash(specifier)))
	}
	if strings.HasPrefix(specifier, "/") {
		return l.lookup(filepath.Join(l.root, filepath.FromSlash(specifier)))
	}

	pkg, sub := splitSpecifier(specifier)
	candidates := []string{pkg}
	if !strings.HasPrefix(pkg, "@types/") {
		typesName := "@types/" + strings.ReplaceAll(strings.TrimPrefix(pkg, "@"), "/", "__")
		candidates = append(candidates, typesName)
	}

	// Search the importing file's node_modules chain, then the workspace root.
	dirs := []string{}
	if mf, ok := l.splitModulePath(fromPath); ok {
		dirs = append(dirs, filepath.Dir(filepath.Dir(mf.pkgDir)))
		if strings.Contains(mf.pkg, "/") {
			dirs[0] = filepath.Dir(dirs[0])
		}
	}
	dirs = append(dirs, l.root)

	for _, dir := range dirs {
		for _, candidate := range candidates {
			pkgDir := filepath.Join(dir, nodeModulesDir, filepath.FromSlash(candidate))
			target := sub
			if target == "" {
				target = "index"
				if m := l.manifest(pkgDir); m != nil {
					target = m.entry()
				}
			}
			if found := l.lookup(filepath.Join(pkgDir, filepath.FromSlash(target))); found != "" {
				return found
			}
		}
	}
	return ""
}

// splitSpecifier splits "pkg/sub/path" and "@scope/pkg/sub" into package and
// sub path.
func splitSpecifier(specifier string) (pkg, sub string) {
	parts := strings.Split(specifier, "/")
	n := 1
	if strings.HasPrefix(specifier, "@") && len(parts) > 1 {
		n = 2
	}
	if len(parts) <= n {
		return specifier, ""
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/")
}
