// # internal/engine/resolver/library.go
package resolver

import (
	"path"
	"path/filepath"
	"strings"

	"autoimport/internal/engine/parser"
	"autoimport/internal/shared/util"
)

// DeclarationInfo is one row of the symbol table: a declaration and the
// library it is importable from. From is a bare module specifier for node
// modules, or a workspace-root-relative path starting with "/".
type DeclarationInfo struct {
	Declaration parser.Declaration
	From        string
}

func (i DeclarationInfo) Name() string { return i.Declaration.Name() }

// IsRelative reports whether library is written relative to its document.
func IsRelative(library string) bool {
	return library == "." || library == ".." || strings.HasPrefix(library, "./") || strings.HasPrefix(library, "../")
}

// IsWorkspaceLibrary reports whether library points into the workspace,
// either relatively or as a root-relative path.
func IsWorkspaceLibrary(library string) bool {
	return strings.HasPrefix(library, "/") || strings.HasPrefix(library, ".")
}

// DocumentLibrary returns the root-relative library name of the document
// itself: "/src/app" for <root>/src/app.ts.
func DocumentLibrary(documentPath, root string) string {
	rel, ok := util.RelSlash(root, documentPath)
	if !ok {
		return filepath.ToSlash(parser.TrimSourceExtension(documentPath))
	}
	return "/" + parser.TrimSourceExtension(rel)
}

// AbsoluteLibraryName resolves a library specifier as written in the document
// at documentPath into its canonical form. Relative specifiers become
// root-relative paths starting with "/"; anything else is returned unchanged.
func AbsoluteLibraryName(library, documentPath, root string) string {
	if !IsRelative(library) {
		return library
	}
	target := filepath.Join(filepath.Dir(documentPath), filepath.FromSlash(library))
	rel, ok := util.RelSlash(root, target)
	if !ok {
		return filepath.ToSlash(target)
	}
	return path.Clean("/" + parser.TrimSourceExtension(rel))
}

// RelativeLibraryName turns an index From into the specifier to write in the
// document at documentPath. Node module names are returned unchanged.
func RelativeLibraryName(from, documentPath, root string) string {
	if !strings.HasPrefix(from, "/") {
		return from
	}
	target := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(from, "/")))
	rel, err := filepath.Rel(filepath.Dir(documentPath), target)
	if err != nil {
		return from
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return rel
	}
	return "./" + rel
}

// StripTrailingIndex removes a trailing "/index" segment. The workspace root
// barrel "/index" becomes "/".
func StripTrailingIndex(library string) string {
	switch {
	case library == "/index":
		return "/"
	case library == "./index":
		return "."
	case strings.HasSuffix(library, "/index"):
		return strings.TrimSuffix(library, "/index")
	}
	return library
}

// SameLibrary compares two canonical library names, treating a barrel and
// its directory ("/x/index" and "/x") as equal.
func SameLibrary(a, b string) bool {
	return a == b || StripTrailingIndex(a) == StripTrailingIndex(b)
}
