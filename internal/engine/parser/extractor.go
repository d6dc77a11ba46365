package parser

import (
	"path/filepath"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// statementHandler models one statement kind of a resource body.
type statementHandler func(x *extractor, s *scope, node *sitter.Node)

var statementHandlers map[string]statementHandler

func init() {
	declare := func(x *extractor, s *scope, n *sitter.Node) { x.declare(s, n, s.implicitExport) }
	statementHandlers = map[string]statementHandler{
		"import_statement":     func(x *extractor, s *scope, n *sitter.Node) { x.importStatement(s, n) },
		"export_statement":     func(x *extractor, s *scope, n *sitter.Node) { x.exportStatement(s, n) },
		"ambient_declaration":  func(x *extractor, s *scope, n *sitter.Node) { x.ambient(s, n, s.implicitExport) },
		"expression_statement": func(x *extractor, s *scope, n *sitter.Node) { x.expressionStatement(s, n) },

		"class_declaration":              declare,
		"abstract_class_declaration":     declare,
		"function_declaration":           declare,
		"generator_function_declaration": declare,
		"function_signature":             declare,
		"interface_declaration":          declare,
		"enum_declaration":               declare,
		"type_alias_declaration":         declare,
		"lexical_declaration":            declare,
		"variable_declaration":           declare,
		"module":                         declare,
		"internal_module":                declare,
	}
}

// scope accumulates one resource while its body is walked.
type scope struct {
	res *Resource
	// implicitExport is set inside ambient blocks, where every member is exported.
	implicitExport bool
	localExports   []Specifier
}

type extractor struct {
	src  []byte
	path string
}

func (x *extractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(x.src)
}

func (x *extractor) unquote(n *sitter.Node) string {
	raw := x.text(n)
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if first == last && (first == '\'' || first == '"' || first == '`') {
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

// name reads an identifier or string-literal name node.
func (x *extractor) name(n *sitter.Node) string {
	if n != nil && n.Kind() == "string" {
		return x.unquote(n)
	}
	return x.text(n)
}

func (x *extractor) base(n *sitter.Node, name string, exported bool) DeclarationBase {
	return DeclarationBase{
		Identifier: name,
		IsExported: exported,
		Range:      TextRange{Start: int(n.StartByte()), End: int(n.EndByte())},
	}
}

func (x *extractor) typeText(n *sitter.Node) string {
	t := strings.TrimSpace(x.text(n))
	t = strings.TrimPrefix(t, ":")
	return strings.TrimSpace(t)
}

func childOfKind(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

func hasChild(n *sitter.Node, kind string) bool {
	return childOfKind(n, kind) != nil
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil && c.Kind() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// resource models body (a program or statement block) into a complete Resource.
func (x *extractor) resource(kind ResourceKind, name string, body *sitter.Node, implicitExport bool) *Resource {
	r := &Resource{Kind: kind, Name: name, Start: int(body.StartByte()), End: int(body.EndByte())}
	s := &scope{res: r, implicitExport: implicitExport}
	for _, stmt := range namedChildren(body) {
		if h, ok := statementHandlers[stmt.Kind()]; ok {
			h(x, s, stmt)
		}
	}
	x.applyLocalExports(s)
	r.Usages = x.usages(body)
	return r
}

func (x *extractor) expressionStatement(s *scope, n *sitter.Node) {
	// `namespace X {}` at statement level parses as an expression.
	for _, c := range namedChildren(n) {
		if c.Kind() == "internal_module" {
			x.declare(s, c, s.implicitExport)
		}
	}
}

// declare appends the declarations modeled from n and returns them.
func (x *extractor) declare(s *scope, n *sitter.Node, exported bool) []Declaration {
	var decls []Declaration
	switch n.Kind() {
	case "class_declaration", "abstract_class_declaration", "class":
		decls = append(decls, x.class(n, exported))
	case "function_declaration", "generator_function_declaration", "function_signature",
		"function_expression", "function", "generator_function":
		if d := x.function(n, exported); d != nil {
			decls = append(decls, d)
		}
	case "interface_declaration":
		decls = append(decls, x.iface(n, exported))
	case "enum_declaration":
		decls = append(decls, x.enum(n, exported))
	case "type_alias_declaration":
		decls = append(decls, &TypeAliasDeclaration{DeclarationBase: x.base(n, x.text(n.ChildByFieldName("name")), exported)})
	case "lexical_declaration", "variable_declaration":
		decls = append(decls, x.variables(n, exported)...)
	case "module", "internal_module":
		decls = append(decls, x.module(s, n, exported, s.implicitExport))
	case "ambient_declaration":
		return x.ambient(s, n, exported)
	}
	s.res.Declarations = append(s.res.Declarations, decls...)
	return decls
}

// ambient handles `declare ...` wrappers. `declare global { }` blocks are skipped.
func (x *extractor) ambient(s *scope, n *sitter.Node, exported bool) []Declaration {
	var decls []Declaration
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "statement_block":
			continue
		case "module", "internal_module":
			d := x.module(s, c, exported, true)
			s.res.Declarations = append(s.res.Declarations, d)
			decls = append(decls, d)
		default:
			decls = append(decls, x.declare(s, c, exported)...)
		}
	}
	return decls
}

func (x *extractor) module(s *scope, n *sitter.Node, exported, ambient bool) *ModuleDeclaration {
	nameNode := n.ChildByFieldName("name")
	specifier := nameNode != nil && nameNode.Kind() == "string"
	name := x.name(nameNode)
	if !specifier {
		// `namespace A.B {}` binds A locally.
		if i := strings.IndexByte(name, '.'); i > 0 {
			name = name[:i]
		}
	}

	kind := ResourceModule
	if n.Kind() == "internal_module" {
		kind = ResourceNamespace
	}

	var body *Resource
	if b := n.ChildByFieldName("body"); b != nil {
		body = x.resource(kind, name, b, ambient || specifier)
	} else {
		body = &Resource{Kind: kind, Name: name, Start: int(n.StartByte()), End: int(n.EndByte())}
	}
	s.res.Resources = append(s.res.Resources, body)

	return &ModuleDeclaration{
		DeclarationBase: x.base(n, name, exported || specifier),
		Ambient:         specifier,
		Body:            body,
	}
}

func (x *extractor) class(n *sitter.Node, exported bool) *ClassDeclaration {
	d := &ClassDeclaration{
		DeclarationBase: x.base(n, x.text(n.ChildByFieldName("name")), exported),
		Abstract:        n.Kind() == "abstract_class_declaration",
	}
	for _, m := range namedChildren(n.ChildByFieldName("body")) {
		switch m.Kind() {
		case "method_definition", "method_signature", "abstract_method_signature":
			method := x.method(m)
			if method.Name != "constructor" {
				d.Methods = append(d.Methods, method)
				continue
			}
			d.Constructor = &Constructor{Parameters: method.Parameters}
			for _, p := range method.Parameters {
				if p.Visibility != nil {
					d.Properties = append(d.Properties, Property{
						Name:       p.Name(),
						Visibility: *p.Visibility,
						Type:       p.Type,
						Optional:   p.Optional,
					})
				}
			}
		case "public_field_definition", "property_signature":
			d.Properties = append(d.Properties, x.property(m))
		}
	}
	return d
}

func (x *extractor) method(m *sitter.Node) Method {
	return Method{
		Name:       x.name(m.ChildByFieldName("name")),
		Visibility: x.visibility(m),
		Parameters: x.parameters(m.ChildByFieldName("parameters")),
		ReturnType: x.typeText(m.ChildByFieldName("return_type")),
		Static:     hasChild(m, "static"),
		Abstract:   m.Kind() == "abstract_method_signature" || hasChild(m, "abstract"),
		Optional:   hasChild(m, "?"),
	}
}

func (x *extractor) property(m *sitter.Node) Property {
	return Property{
		Name:       x.name(m.ChildByFieldName("name")),
		Visibility: x.visibility(m),
		Type:       x.typeText(m.ChildByFieldName("type")),
		Optional:   hasChild(m, "?"),
		Static:     hasChild(m, "static"),
		Readonly:   hasChild(m, "readonly"),
	}
}

// accessibility reports an explicit modifier. A bare `readonly` on a
// constructor parameter also declares a public property.
func (x *extractor) accessibility(n *sitter.Node) (Visibility, bool) {
	if mod := childOfKind(n, "accessibility_modifier"); mod != nil {
		switch strings.TrimSpace(x.text(mod)) {
		case "private":
			return Private, true
		case "protected":
			return Protected, true
		default:
			return Public, true
		}
	}
	if hasChild(n, "readonly") {
		return Public, true
	}
	return Public, false
}

func (x *extractor) visibility(n *sitter.Node) Visibility {
	v, _ := x.accessibility(n)
	return v
}

func (x *extractor) parameters(n *sitter.Node) []*ParameterDeclaration {
	var out []*ParameterDeclaration
	for _, p := range namedChildren(n) {
		switch p.Kind() {
		case "required_parameter", "optional_parameter":
			pattern := p.ChildByFieldName("pattern")
			typ := x.typeText(p.ChildByFieldName("type"))
			var vis *Visibility
			if v, ok := x.accessibility(p); ok {
				vis = &v
			}
			optional := p.Kind() == "optional_parameter" || p.ChildByFieldName("value") != nil
			rest := pattern != nil && pattern.Kind() == "rest_pattern"
			for _, name := range x.bindingNames(pattern) {
				out = append(out, &ParameterDeclaration{
					DeclarationBase: x.base(p, name, false),
					Type:            typ,
					Optional:        optional,
					Rest:            rest,
					Visibility:      vis,
				})
			}
		default:
			// JavaScript parameters are bare patterns.
			for _, name := range x.bindingNames(p) {
				out = append(out, &ParameterDeclaration{
					DeclarationBase: x.base(p, name, false),
					Optional:        p.Kind() == "assignment_pattern",
					Rest:            p.Kind() == "rest_pattern",
				})
			}
		}
	}
	return out
}

// bindingNames expands a binding pattern into the names it binds.
func (x *extractor) bindingNames(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{x.text(n)}
	case "object_pattern", "array_pattern":
		var out []string
		for _, c := range namedChildren(n) {
			out = append(out, x.bindingNames(c)...)
		}
		return out
	case "pair_pattern":
		return x.bindingNames(n.ChildByFieldName("value"))
	case "assignment_pattern", "object_assignment_pattern":
		return x.bindingNames(n.ChildByFieldName("left"))
	case "rest_pattern":
		if children := namedChildren(n); len(children) > 0 {
			return x.bindingNames(children[0])
		}
	}
	return nil
}

func (x *extractor) function(n *sitter.Node, exported bool) *FunctionDeclaration {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	return &FunctionDeclaration{
		DeclarationBase: x.base(n, x.text(nameNode), exported),
		Parameters:      x.parameters(n.ChildByFieldName("parameters")),
		ReturnType:      x.typeText(n.ChildByFieldName("return_type")),
	}
}

func (x *extractor) iface(n *sitter.Node, exported bool) *InterfaceDeclaration {
	d := &InterfaceDeclaration{DeclarationBase: x.base(n, x.text(n.ChildByFieldName("name")), exported)}
	for _, m := range namedChildren(n.ChildByFieldName("body")) {
		switch m.Kind() {
		case "property_signature":
			d.Properties = append(d.Properties, x.property(m))
		case "method_signature":
			d.Methods = append(d.Methods, x.method(m))
		}
	}
	return d
}

func (x *extractor) enum(n *sitter.Node, exported bool) *EnumDeclaration {
	d := &EnumDeclaration{DeclarationBase: x.base(n, x.text(n.ChildByFieldName("name")), exported)}
	for _, m := range namedChildren(n.ChildByFieldName("body")) {
		switch m.Kind() {
		case "property_identifier":
			d.Members = append(d.Members, x.text(m))
		case "string":
			d.Members = append(d.Members, x.unquote(m))
		case "enum_assignment":
			d.Members = append(d.Members, x.name(m.ChildByFieldName("name")))
		}
	}
	return d
}

func (x *extractor) variables(n *sitter.Node, exported bool) []Declaration {
	isConst := false
	if kind := n.ChildByFieldName("kind"); kind != nil {
		isConst = x.text(kind) == "const"
	} else {
		isConst = hasChild(n, "const")
	}

	var out []Declaration
	for _, v := range namedChildren(n) {
		if v.Kind() != "variable_declarator" {
			continue
		}
		typ := x.typeText(v.ChildByFieldName("type"))
		for _, name := range x.bindingNames(v.ChildByFieldName("name")) {
			out = append(out, &VariableDeclaration{
				DeclarationBase: x.base(v, name, exported),
				Const:           isConst,
				Type:            typ,
			})
		}
	}
	return out
}

func (x *extractor) importStatement(s *scope, n *sitter.Node) {
	rng := &TextRange{Start: int(n.StartByte()), End: int(n.EndByte())}

	if req := childOfKind(n, "import_require_clause"); req != nil {
		src := req.ChildByFieldName("source")
		if src == nil {
			src = childOfKind(req, "string")
		}
		imp := &ExternalModuleImport{Library: x.unquote(src), Range: rng}
		if id := childOfKind(req, "identifier"); id != nil {
			imp.Alias = x.text(id)
		}
		s.res.Imports = append(s.res.Imports, imp)
		return
	}

	src := n.ChildByFieldName("source")
	if src == nil {
		src = childOfKind(n, "string")
	}
	lib := x.unquote(src)

	clause := childOfKind(n, "import_clause")
	if clause == nil {
		s.res.Imports = append(s.res.Imports, &StringImport{Library: lib, Range: rng})
		return
	}

	typeOnly := hasChild(n, "type")
	var def, ns string
	var specs []Specifier
	for _, c := range namedChildren(clause) {
		switch c.Kind() {
		case "identifier":
			def = x.text(c)
		case "namespace_import":
			if id := childOfKind(c, "identifier"); id != nil {
				ns = x.text(id)
			}
		case "named_imports":
			for _, sp := range namedChildren(c) {
				if sp.Kind() != "import_specifier" {
					continue
				}
				specs = append(specs, Specifier{
					Name:     x.name(sp.ChildByFieldName("name")),
					Alias:    x.name(sp.ChildByFieldName("alias")),
					TypeOnly: hasChild(sp, "type"),
				})
			}
		}
	}

	if ns != "" {
		s.res.Imports = append(s.res.Imports, &NamespaceImport{Library: lib, Alias: ns, DefaultAlias: def, TypeOnly: typeOnly, Range: rng})
		return
	}
	s.res.Imports = append(s.res.Imports, &NamedImport{Library: lib, Specifiers: specs, DefaultAlias: def, TypeOnly: typeOnly, Range: rng})
}

func (x *extractor) exportSpecifiers(clause *sitter.Node) []Specifier {
	var out []Specifier
	for _, sp := range namedChildren(clause) {
		if sp.Kind() != "export_specifier" {
			continue
		}
		out = append(out, Specifier{
			Name:     x.name(sp.ChildByFieldName("name")),
			Alias:    x.name(sp.ChildByFieldName("alias")),
			TypeOnly: hasChild(sp, "type"),
		})
	}
	return out
}

func (x *extractor) exportStatement(s *scope, n *sitter.Node) {
	rng := TextRange{Start: int(n.StartByte()), End: int(n.EndByte())}
	isDefault := hasChild(n, "default")

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		if !isDefault {
			x.declare(s, decl, true)
			return
		}
		// A default-exported declaration is importable only as the default.
		decls := x.declare(s, decl, false)
		name := ""
		if len(decls) > 0 {
			name = decls[0].Name()
		}
		x.addDefault(s, n, name)
		return
	}

	if isDefault {
		name := ""
		if value := n.ChildByFieldName("value"); value != nil {
			switch value.Kind() {
			case "identifier":
				name = x.text(value)
			case "class", "function_expression", "function", "generator_function":
				name = x.text(value.ChildByFieldName("name"))
				if name != "" {
					x.declare(s, value, false)
				}
			}
		}
		x.addDefault(s, n, name)
		return
	}

	clause := childOfKind(n, "export_clause")
	if src := n.ChildByFieldName("source"); src != nil {
		from := x.unquote(src)
		if clause != nil {
			s.res.Exports = append(s.res.Exports, &NamedExport{From: from, Specifiers: x.exportSpecifiers(clause), Range: rng})
			return
		}
		all := &AllExport{From: from, Range: rng}
		if ns := childOfKind(n, "namespace_export"); ns != nil {
			if children := namedChildren(ns); len(children) > 0 {
				all.Alias = x.name(children[0])
			}
		}
		s.res.Exports = append(s.res.Exports, all)
		return
	}

	if clause != nil {
		s.localExports = append(s.localExports, x.exportSpecifiers(clause)...)
		return
	}

	if hasChild(n, "=") {
		for _, c := range namedChildren(n) {
			if c.Kind() == "identifier" {
				s.res.Exports = append(s.res.Exports, &AssignedExport{Identifier: x.text(c), Range: rng})
				return
			}
		}
	}
}

func (x *extractor) addDefault(s *scope, n *sitter.Node, name string) {
	if name == "" {
		name = defaultExportName(x.path)
	}
	s.res.Declarations = append(s.res.Declarations, &DefaultDeclaration{DeclarationBase: x.base(n, name, true)})
}

type exportSetter interface {
	setExported(bool)
}

func (d *DeclarationBase) setExported(v bool) { d.IsExported = v }

// applyLocalExports resolves `export { a, b as c }` without a source against
// the resource's own declarations, falling back to imported bindings.
func (x *extractor) applyLocalExports(s *scope) {
	declared := len(s.res.Declarations)
	for _, spec := range s.localExports {
		matched := false
		for i := 0; i < declared; i++ {
			d := s.res.Declarations[i]
			if d.Name() != spec.Name {
				continue
			}
			matched = true
			switch {
			case spec.Alias == "default":
				s.res.Declarations = append(s.res.Declarations, &DefaultDeclaration{
					DeclarationBase: DeclarationBase{Identifier: spec.Name, IsExported: true, Range: d.Span()},
				})
			case spec.Alias == "" || spec.Alias == spec.Name:
				if setter, ok := d.(exportSetter); ok {
					setter.setExported(true)
				}
			default:
				s.res.Declarations = append(s.res.Declarations, renamed(d, spec.Alias, true))
			}
			if spec.Alias == "default" {
				break
			}
		}
		if matched {
			continue
		}
		if from, imported, ok := importedBinding(s.res.Imports, spec.Name); ok {
			exported := spec.LocalName()
			re := Specifier{Name: imported, TypeOnly: spec.TypeOnly}
			if exported != imported {
				re.Alias = exported
			}
			s.res.Exports = append(s.res.Exports, &NamedExport{From: from, Specifiers: []Specifier{re}})
		}
	}
}

// importedBinding finds the import that introduced local name.
func importedBinding(imports []Import, local string) (from, imported string, ok bool) {
	for _, imp := range imports {
		named, isNamed := imp.(*NamedImport)
		if !isNamed {
			continue
		}
		if named.DefaultAlias == local {
			return named.Library, "default", true
		}
		for _, spec := range named.Specifiers {
			if spec.LocalName() == local {
				return named.Library, spec.Name, true
			}
		}
	}
	return "", "", false
}

// defaultExportName names an anonymous default export after its file, or its
// directory for index files: `my-widget.ts` becomes `myWidget`.
func defaultExportName(path string) string {
	if path == "" {
		return "defaultExport"
	}
	base := TrimSourceExtension(filepath.Base(path))
	if base == "index" {
		base = filepath.Base(filepath.Dir(path))
	}
	if name := CamelCase(base); name != "" {
		return name
	}
	return "defaultExport"
}

// CamelCase turns a file or package name into an identifier.
func CamelCase(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for i, f := range fields {
		runes := []rune(f)
		if i == 0 {
			runes[0] = unicode.ToLower(runes[0])
		} else {
			runes[0] = unicode.ToUpper(runes[0])
		}
		b.WriteString(string(runes))
	}
	out := b.String()
	if out != "" && unicode.IsDigit([]rune(out)[0]) {
		out = "_" + out
	}
	return out
}
