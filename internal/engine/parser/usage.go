package parser

import (
	"unicode"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// declaredNameFields lists, per parent kind, the fields whose identifier is a
// declared or bound name rather than a reference.
var declaredNameFields = map[string]map[string]bool{
	"class_declaration":              {"name": true},
	"abstract_class_declaration":     {"name": true},
	"class":                          {"name": true},
	"function_declaration":           {"name": true},
	"generator_function_declaration": {"name": true},
	"function_signature":             {"name": true},
	"function_expression":            {"name": true},
	"function":                       {"name": true},
	"generator_function":             {"name": true},
	"interface_declaration":          {"name": true},
	"type_alias_declaration":         {"name": true},
	"enum_declaration":               {"name": true},
	"module":                         {"name": true},
	"internal_module":                {"name": true},
	"type_parameter":                 {"name": true},
	"index_signature":                {"name": true},
	"mapped_type_clause":             {"name": true},
	"type_predicate":                 {"name": true},
	"variable_declarator":            {"name": true},
	"required_parameter":             {"pattern": true},
	"optional_parameter":             {"pattern": true},
	"catch_clause":                   {"parameter": true},
	"arrow_function":                 {"parameter": true},
	"for_in_statement":               {"left": true},
	"pair_pattern":                   {"value": true},
	"assignment_pattern":             {"left": true},
	"object_assignment_pattern":      {"left": true},
	"import_specifier":               {"name": true, "alias": true},
	"export_specifier":               {"alias": true},
}

// bindingParents bind every identifier they contain.
var bindingParents = map[string]bool{
	"import_clause":         true,
	"namespace_import":      true,
	"import_require_clause": true,
	"namespace_export":      true,
	"array_pattern":         true,
	"rest_pattern":          true,
	"formal_parameters":     true,
}

// qualifiedParents only count their left-most identifier: `a.b.c` uses `a`.
var qualifiedParents = map[string]bool{
	"member_expression":      true,
	"nested_identifier":      true,
	"nested_type_identifier": true,
}

var jsxElements = map[string]bool{
	"jsx_opening_element":      true,
	"jsx_closing_element":      true,
	"jsx_self_closing_element": true,
}

func isIdentifierKind(kind string) bool {
	return kind == "identifier" || kind == "type_identifier" || kind == "shorthand_property_identifier"
}

// usages collects referenced identifiers of body in first-occurrence order.
// Nested module bodies are skipped; they report their own usages.
func (x *extractor) usages(body *sitter.Node) []string {
	var out []string
	seen := make(map[string]bool)

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		kind := n.Kind()
		for i := uint(0); i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c == nil {
				continue
			}
			field := n.FieldNameForChild(uint32(i))
			if field == "body" && (kind == "module" || kind == "internal_module") {
				continue
			}
			if isIdentifierKind(c.Kind()) {
				if x.isUsage(n, c, field) {
					name := x.text(c)
					if !seen[name] {
						seen[name] = true
						out = append(out, name)
					}
				}
				continue
			}
			walk(c)
		}
	}
	walk(body)
	return out
}

// isUsage applies the positional predicates: the identifier is not the name
// a construct declares, not in a binding position, and is the left-most part
// of a qualified name.
func (x *extractor) isUsage(parent, ident *sitter.Node, field string) bool {
	kind := parent.Kind()
	if fields, ok := declaredNameFields[kind]; ok && fields[field] {
		return false
	}
	if bindingParents[kind] {
		return false
	}
	if qualifiedParents[kind] {
		return ident.StartByte() == parent.StartByte()
	}

	switch kind {
	case "import_alias":
		// import A = B.C binds A.
		first := parent.NamedChild(0)
		return first == nil || first.StartByte() != ident.StartByte()
	case "export_specifier":
		// Re-exports reference another module, not a local binding.
		clause := parent.Parent()
		if clause == nil {
			return true
		}
		stmt := clause.Parent()
		return stmt == nil || stmt.ChildByFieldName("source") == nil
	}

	if jsxElements[kind] && field == "name" {
		// Lower-case tags are intrinsic elements.
		r, _ := utf8.DecodeRuneInString(x.text(ident))
		return !unicode.IsLower(r)
	}
	return true
}
