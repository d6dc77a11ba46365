package parser

// Specifier is one `name as alias` entry of a named import or re-export.
type Specifier struct {
	Name     string
	Alias    string
	TypeOnly bool
}

// LocalName is the binding the specifier introduces.
func (s Specifier) LocalName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// Import is the closed set of import statement shapes. A nil SourceRange
// marks a synthetic import that is not written in the document yet.
type Import interface {
	LibraryName() string
	SourceRange() *TextRange
	Clone() Import
	isImport()
}

// StringImport is `import "lib"`, kept for its side effects.
type StringImport struct {
	Library string
	Range   *TextRange
}

// NamedImport is `import def, { a, b as c } from "lib"`.
type NamedImport struct {
	Library      string
	Specifiers   []Specifier
	DefaultAlias string
	TypeOnly     bool
	Range        *TextRange
}

// NamespaceImport is `import * as alias from "lib"`, optionally with a default binding.
type NamespaceImport struct {
	Library      string
	Alias        string
	DefaultAlias string
	TypeOnly     bool
	Range        *TextRange
}

// ExternalModuleImport is `import alias = require("lib")`.
type ExternalModuleImport struct {
	Library string
	Alias   string
	Range   *TextRange
}

func (i *StringImport) LibraryName() string         { return i.Library }
func (i *NamedImport) LibraryName() string          { return i.Library }
func (i *NamespaceImport) LibraryName() string      { return i.Library }
func (i *ExternalModuleImport) LibraryName() string { return i.Library }

func (i *StringImport) SourceRange() *TextRange         { return i.Range }
func (i *NamedImport) SourceRange() *TextRange          { return i.Range }
func (i *NamespaceImport) SourceRange() *TextRange      { return i.Range }
func (i *ExternalModuleImport) SourceRange() *TextRange { return i.Range }

func (*StringImport) isImport()         {}
func (*NamedImport) isImport()          {}
func (*NamespaceImport) isImport()      {}
func (*ExternalModuleImport) isImport() {}

func cloneRange(r *TextRange) *TextRange {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func (i *StringImport) Clone() Import {
	return &StringImport{Library: i.Library, Range: cloneRange(i.Range)}
}

func (i *NamedImport) Clone() Import {
	c := *i
	c.Specifiers = append([]Specifier(nil), i.Specifiers...)
	c.Range = cloneRange(i.Range)
	return &c
}

func (i *NamespaceImport) Clone() Import {
	c := *i
	c.Range = cloneRange(i.Range)
	return &c
}

func (i *ExternalModuleImport) Clone() Import {
	c := *i
	c.Range = cloneRange(i.Range)
	return &c
}

// IsSynthetic reports whether imp has not been written to the document.
func IsSynthetic(imp Import) bool {
	return imp.SourceRange() == nil
}

// CloneImports deep-copies a slice of imports.
func CloneImports(in []Import) []Import {
	out := make([]Import, 0, len(in))
	for _, imp := range in {
		out = append(out, imp.Clone())
	}
	return out
}

// Export is the closed set of re-export shapes.
type Export interface {
	isExport()
}

// AllExport is `export * from "lib"`, or `export * as Alias from "lib"`.
type AllExport struct {
	From  string
	Alias string
	Range TextRange
}

// NamedExport is `export { a, b as c } from "lib"`.
type NamedExport struct {
	From       string
	Specifiers []Specifier
	Range      TextRange
}

// AssignedExport is `export = Identifier`.
type AssignedExport struct {
	Identifier string
	Range      TextRange
}

func (*AllExport) isExport()      {}
func (*NamedExport) isExport()    {}
func (*AssignedExport) isExport() {}

// Exported resolves the assignment against the declarations of its owner at
// read time.
func (e *AssignedExport) Exported(owner *Resource) []Declaration {
	var out []Declaration
	for _, d := range owner.Declarations {
		if d.Name() == e.Identifier {
			out = append(out, d)
		}
	}
	return out
}
