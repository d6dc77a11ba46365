package resolver

import (
	"autoimport/internal/engine/parser"
)

// Filter narrows infos to the declarations not yet imported by a document.
// Named imports hide their specifiers and default alias from the same
// library; namespace and external module imports hide the whole library.
// Filter is pure and never modifies imports.
func Filter(infos []DeclarationInfo, documentPath string, imports []parser.Import, root string) []DeclarationInfo {
	type namedKey struct{ library, name string }
	named := make(map[namedKey]bool)
	var whole []string

	for _, imp := range imports {
		library := AbsoluteLibraryName(imp.LibraryName(), documentPath, root)
		switch i := imp.(type) {
		case *parser.NamedImport:
			for _, spec := range i.Specifiers {
				named[namedKey{StripTrailingIndex(library), spec.Name}] = true
			}
			if i.DefaultAlias != "" {
				named[namedKey{StripTrailingIndex(library), i.DefaultAlias}] = true
			}
		case *parser.NamespaceImport:
			whole = append(whole, library)
			if i.DefaultAlias != "" {
				named[namedKey{StripTrailingIndex(library), i.DefaultAlias}] = true
			}
		case *parser.ExternalModuleImport:
			whole = append(whole, library)
		}
	}

	out := make([]DeclarationInfo, 0, len(infos))
	for _, info := range infos {
		if named[namedKey{StripTrailingIndex(info.From), info.Name()}] {
			continue
		}
		if containsLibrary(whole, info.From) {
			continue
		}
		out = append(out, info)
	}
	return out
}

// FilterForDocument applies Filter with the document's own imports and also
// drops everything the document declares itself.
func FilterForDocument(infos []DeclarationInfo, file *parser.File, root string) []DeclarationInfo {
	self := DocumentLibrary(file.Path, root)
	local := make(map[string]bool, len(file.Declarations))
	for _, d := range file.Declarations {
		local[d.Name()] = true
	}

	filtered := Filter(infos, file.Path, file.Imports, root)
	out := filtered[:0]
	for _, info := range filtered {
		if SameLibrary(info.From, self) || local[info.Name()] {
			continue
		}
		out = append(out, info)
	}
	return out
}

func containsLibrary(libraries []string, library string) bool {
	for _, l := range libraries {
		if SameLibrary(l, library) {
			return true
		}
	}
	return false
}
