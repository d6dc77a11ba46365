// # internal/engine/parser/types.go
package parser

// TextRange is a half-open byte span [Start, End) in the source text.
type TextRange struct {
	Start int
	End   int
}

type ResourceKind int

const (
	ResourceFile ResourceKind = iota
	ResourceNamespace
	ResourceModule
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceNamespace:
		return "namespace"
	case ResourceModule:
		return "module"
	default:
		return "file"
	}
}

// Resource is one lexical container: a whole file or a namespace/module body.
// Nested containers are complete before they are linked into their parent and
// a Resource is never modified after Parse returns.
type Resource struct {
	Kind         ResourceKind
	Name         string
	Imports      []Import
	Exports      []Export
	Declarations []Declaration
	Resources    []*Resource
	// Usages holds raw identifier references in first-occurrence order.
	Usages []string
	Start  int
	End    int
}

// File is the root Resource of one parsed source file.
type File struct {
	Resource
	Path string
}

// NonLocalUsages returns the usages not satisfied by a local declaration or
// a named nested resource, followed by those of nested resources.
func (r *Resource) NonLocalUsages() []string {
	return r.nonLocalUsages(nil)
}

func (r *Resource) nonLocalUsages(outer map[string]bool) []string {
	local := make(map[string]bool, len(r.Declarations)+len(outer))
	for name := range outer {
		local[name] = true
	}
	for _, d := range r.Declarations {
		local[d.Name()] = true
	}
	for _, nested := range r.Resources {
		if nested.Name != "" {
			local[nested.Name] = true
		}
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(r.Usages))
	add := func(name string) {
		if local[name] || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, u := range r.Usages {
		add(u)
	}
	for _, nested := range r.Resources {
		for _, u := range nested.nonLocalUsages(local) {
			add(u)
		}
	}
	return out
}

// IsGlobalDeclarationFile reports whether the file is a script-style .d.ts:
// no top-level import or export makes every declaration global.
func (f *File) IsGlobalDeclarationFile() bool {
	if !IsDeclarationFile(f.Path) {
		return false
	}
	if len(f.Imports) > 0 || len(f.Exports) > 0 {
		return false
	}
	for _, d := range f.Declarations {
		if d.Exported() {
			if m, ok := d.(*ModuleDeclaration); ok && m.Ambient {
				continue
			}
			return false
		}
	}
	return true
}

// AmbientModules returns the `declare module "name"` blocks of the file.
func (f *File) AmbientModules() []*ModuleDeclaration {
	var out []*ModuleDeclaration
	for _, d := range f.Declarations {
		if m, ok := d.(*ModuleDeclaration); ok && m.Ambient {
			out = append(out, m)
		}
	}
	return out
}
