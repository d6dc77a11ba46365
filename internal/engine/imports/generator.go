package imports

import (
	"strings"

	"autoimport/internal/core/config"
	"autoimport/internal/engine/parser"
)

// Generator renders imports as source text using the formatting knobs of
// the imports configuration.
type Generator struct {
	quote         string
	semicolon     string
	braceSpace    string
	indent        string
	trailingComma bool
	wrapAt        int
}

func NewGenerator(cfg config.Imports) *Generator {
	g := &Generator{
		quote:         cfg.Quote(),
		indent:        cfg.Indent(),
		trailingComma: cfg.TrailingComma(),
		wrapAt:        cfg.MultiLineWrapThreshold,
	}
	if cfg.Semicolons() {
		g.semicolon = ";"
	}
	if cfg.BraceSpacing() {
		g.braceSpace = " "
	}
	if g.wrapAt <= 0 {
		g.wrapAt = config.DefaultMultiLineWrapThreshold
	}
	return g
}

// Generate renders one import statement without a trailing newline.
func (g *Generator) Generate(imp parser.Import) string {
	switch x := imp.(type) {
	case *parser.StringImport:
		return "import " + g.literal(x.Library) + g.semicolon
	case *parser.NamedImport:
		return g.named(x)
	case *parser.NamespaceImport:
		var b strings.Builder
		b.WriteString("import ")
		if x.TypeOnly {
			b.WriteString("type ")
		}
		if x.DefaultAlias != "" {
			b.WriteString(x.DefaultAlias + ", ")
		}
		b.WriteString("* as " + x.Alias + " from " + g.literal(x.Library) + g.semicolon)
		return b.String()
	case *parser.ExternalModuleImport:
		return "import " + x.Alias + " = require(" + g.literal(x.Library) + ")" + g.semicolon
	}
	return ""
}

func (g *Generator) literal(s string) string {
	return g.quote + s + g.quote
}

func (g *Generator) named(x *parser.NamedImport) string {
	head := "import "
	if x.TypeOnly {
		head += "type "
	}
	tail := " from " + g.literal(x.Library) + g.semicolon

	if len(x.Specifiers) == 0 {
		if x.DefaultAlias != "" {
			return head + x.DefaultAlias + tail
		}
		return head + "{}" + tail
	}
	if x.DefaultAlias != "" {
		head += x.DefaultAlias + ", "
	}

	specs := make([]string, 0, len(x.Specifiers))
	for _, s := range x.Specifiers {
		specs = append(specs, specifierText(s))
	}
	single := head + "{" + g.braceSpace + strings.Join(specs, ", ") + g.braceSpace + "}" + tail
	if len(single) <= g.wrapAt {
		return single
	}

	var b strings.Builder
	b.WriteString(head + "{\n")
	for i, s := range specs {
		b.WriteString(g.indent + s)
		if i < len(specs)-1 || g.trailingComma {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}" + tail)
	return b.String()
}

func specifierText(s parser.Specifier) string {
	text := s.Name
	if s.TypeOnly {
		text = "type " + text
	}
	if s.Alias != "" && s.Alias != s.Name {
		text += " as " + s.Alias
	}
	return text
}
