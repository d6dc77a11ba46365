package parser

type DeclarationKind int

const (
	KindClass DeclarationKind = iota
	KindFunction
	KindInterface
	KindEnum
	KindVariable
	KindTypeAlias
	KindModule
	KindDefault
	KindParameter
)

var declarationKindNames = map[DeclarationKind]string{
	KindClass:     "class",
	KindFunction:  "function",
	KindInterface: "interface",
	KindEnum:      "enum",
	KindVariable:  "variable",
	KindTypeAlias: "type",
	KindModule:    "module",
	KindDefault:   "default",
	KindParameter: "parameter",
}

func (k DeclarationKind) String() string {
	if name, ok := declarationKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseDeclarationKind is the inverse of DeclarationKind.String.
func ParseDeclarationKind(s string) (DeclarationKind, bool) {
	for kind, name := range declarationKindNames {
		if name == s {
			return kind, true
		}
	}
	return 0, false
}

// Declaration is the closed set of declaration variants. The unexported
// marker method keeps implementations inside this package.
type Declaration interface {
	Name() string
	Exported() bool
	Span() TextRange
	Kind() DeclarationKind
	isDeclaration()
}

type DeclarationBase struct {
	Identifier string
	IsExported bool
	Range      TextRange
}

func (d *DeclarationBase) Name() string    { return d.Identifier }
func (d *DeclarationBase) Exported() bool  { return d.IsExported }
func (d *DeclarationBase) Span() TextRange { return d.Range }
func (d *DeclarationBase) isDeclaration()  {}

type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

type Property struct {
	Name       string
	Visibility Visibility
	Type       string
	Optional   bool
	Static     bool
	Readonly   bool
}

type Method struct {
	Name       string
	Visibility Visibility
	Parameters []*ParameterDeclaration
	ReturnType string
	Static     bool
	Abstract   bool
	Optional   bool
}

type Constructor struct {
	Parameters []*ParameterDeclaration
}

type ClassDeclaration struct {
	DeclarationBase
	Abstract    bool
	Properties  []Property
	Methods     []Method
	Constructor *Constructor
}

func (*ClassDeclaration) Kind() DeclarationKind { return KindClass }

type FunctionDeclaration struct {
	DeclarationBase
	Parameters []*ParameterDeclaration
	ReturnType string
}

func (*FunctionDeclaration) Kind() DeclarationKind { return KindFunction }

type InterfaceDeclaration struct {
	DeclarationBase
	Properties []Property
	Methods    []Method
}

func (*InterfaceDeclaration) Kind() DeclarationKind { return KindInterface }

type EnumDeclaration struct {
	DeclarationBase
	Members []string
}

func (*EnumDeclaration) Kind() DeclarationKind { return KindEnum }

type VariableDeclaration struct {
	DeclarationBase
	Const bool
	Type  string
}

func (*VariableDeclaration) Kind() DeclarationKind { return KindVariable }

type TypeAliasDeclaration struct {
	DeclarationBase
}

func (*TypeAliasDeclaration) Kind() DeclarationKind { return KindTypeAlias }

// ModuleDeclaration is a namespace or module block. Ambient is set for
// `declare module "name"` blocks whose name is a module specifier.
type ModuleDeclaration struct {
	DeclarationBase
	Ambient bool
	Body    *Resource
}

func (*ModuleDeclaration) Kind() DeclarationKind { return KindModule }

// Declarations returns the declarations nested in the module body.
func (m *ModuleDeclaration) Declarations() []Declaration {
	if m.Body == nil {
		return nil
	}
	return m.Body.Declarations
}

func (m *ModuleDeclaration) NonLocalUsages() []string {
	if m.Body == nil {
		return nil
	}
	return m.Body.NonLocalUsages()
}

// DefaultDeclaration is the default export of a module, named after the
// local binding it refers to.
type DefaultDeclaration struct {
	DeclarationBase
}

func (*DefaultDeclaration) Kind() DeclarationKind { return KindDefault }

type ParameterDeclaration struct {
	DeclarationBase
	Type       string
	Optional   bool
	Rest       bool
	Visibility *Visibility
}

func (*ParameterDeclaration) Kind() DeclarationKind { return KindParameter }

// renamed returns a shallow copy of d under a new name and export flag.
func renamed(d Declaration, name string, exported bool) Declaration {
	switch v := d.(type) {
	case *ClassDeclaration:
		c := *v
		c.Identifier, c.IsExported = name, exported
		return &c
	case *FunctionDeclaration:
		c := *v
		c.Identifier, c.IsExported = name, exported
		return &c
	case *InterfaceDeclaration:
		c := *v
		c.Identifier, c.IsExported = name, exported
		return &c
	case *EnumDeclaration:
		c := *v
		c.Identifier, c.IsExported = name, exported
		return &c
	case *VariableDeclaration:
		c := *v
		c.Identifier, c.IsExported = name, exported
		return &c
	case *TypeAliasDeclaration:
		c := *v
		c.Identifier, c.IsExported = name, exported
		return &c
	case *ModuleDeclaration:
		c := *v
		c.Identifier, c.IsExported = name, exported
		return &c
	case *DefaultDeclaration:
		c := *v
		c.Identifier, c.IsExported = name, exported
		return &c
	case *ParameterDeclaration:
		c := *v
		c.Identifier, c.IsExported = name, exported
		return &c
	}
	return d
}

// Renamed exposes renamed to the index, which re-exports declarations under aliases.
func Renamed(d Declaration, name string) Declaration {
	return renamed(d, name, true)
}

// NewDefaultDeclaration builds an exported default declaration.
func NewDefaultDeclaration(name string) *DefaultDeclaration {
	return &DefaultDeclaration{DeclarationBase: DeclarationBase{Identifier: name, IsExported: true}}
}

// NewModuleDeclaration builds an exported namespace-like declaration without a body.
func NewModuleDeclaration(name string) *ModuleDeclaration {
	return &ModuleDeclaration{DeclarationBase: DeclarationBase{Identifier: name, IsExported: true}}
}
