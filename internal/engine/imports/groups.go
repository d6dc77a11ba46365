package imports

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"autoimport/internal/core/config"
	"autoimport/internal/core/errors"
	"autoimport/internal/engine/parser"
)

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

func parseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(OrderDesc)) {
		return OrderDesc
	}
	return OrderAsc
}

// Group is one bucket of the organized import block.
type Group interface {
	Reset()
	// ProcessImport claims imp when it belongs to the group.
	ProcessImport(imp parser.Import) bool
	SortedImports() []parser.Import
	Order() Order
}

type Keyword string

const (
	KeywordPlains    Keyword = "Plains"
	KeywordModules   Keyword = "Modules"
	KeywordWorkspace Keyword = "Workspace"
)

const remainingIdentifier = "Remaining"

// Sorting controls how groups order their imports.
type Sorting struct {
	Disabled         bool
	ByFirstSpecifier bool
}

type bucket struct {
	order   Order
	sorting Sorting
	imports []parser.Import
}

func (b *bucket) Reset()       { b.imports = nil }
func (b *bucket) Order() Order { return b.order }

func (b *bucket) SortedImports() []parser.Import {
	if b.sorting.Disabled {
		return append([]parser.Import(nil), b.imports...)
	}
	return SortImports(b.imports, b.order, b.sorting.ByFirstSpecifier)
}

// KeywordGroup claims imports by their shape: side-effect only, node module
// or workspace path.
type KeywordGroup struct {
	bucket
	Keyword Keyword
}

func (g *KeywordGroup) ProcessImport(imp parser.Import) bool {
	_, plain := imp.(*parser.StringImport)
	lib := imp.LibraryName()
	workspace := strings.HasPrefix(lib, ".") || strings.HasPrefix(lib, "/")

	var ok bool
	switch g.Keyword {
	case KeywordPlains:
		ok = plain
	case KeywordModules:
		ok = !plain && !workspace
	case KeywordWorkspace:
		ok = !plain && workspace
	}
	if ok {
		g.imports = append(g.imports, imp)
	}
	return ok
}

// RegexGroup claims imports whose library matches Pattern.
type RegexGroup struct {
	bucket
	Pattern string
	re      *regexp.Regexp
}

func (g *RegexGroup) ProcessImport(imp parser.Import) bool {
	if !g.re.MatchString(imp.LibraryName()) {
		return false
	}
	g.imports = append(g.imports, imp)
	return true
}

// RemainingGroup claims everything.
type RemainingGroup struct {
	bucket
}

func (g *RemainingGroup) ProcessImport(imp parser.Import) bool {
	g.imports = append(g.imports, imp)
	return true
}

// Groups is the configured group list in rendering order.
type Groups []Group

// ParseGroups builds groups from configuration. A Remaining group is
// appended when missing. Identifiers are keywords, "Remaining" or a
// regular expression wrapped in slashes.
func ParseGroups(cfg []config.ImportGroup, sorting Sorting) (Groups, error) {
	groups := make(Groups, 0, len(cfg)+1)
	hasRemaining := false
	for _, c := range cfg {
		id := strings.TrimSpace(c.Identifier)
		b := bucket{order: parseOrder(c.Order), sorting: sorting}

		if len(id) > 2 && strings.HasPrefix(id, "/") && strings.HasSuffix(id, "/") {
			re, err := regexp.Compile(id[1 : len(id)-1])
			if err != nil {
				return nil, errors.Wrap(errors.NewGroupIdentifierInvalid(id), errors.CodeGroupIdentifierInvalid, err.Error())
			}
			groups = append(groups, &RegexGroup{bucket: b, Pattern: id, re: re})
			continue
		}

		switch {
		case strings.EqualFold(id, remainingIdentifier):
			if hasRemaining {
				return nil, errors.NewGroupIdentifierInvalid(id)
			}
			hasRemaining = true
			groups = append(groups, &RemainingGroup{bucket: b})
		case strings.EqualFold(id, string(KeywordPlains)):
			groups = append(groups, &KeywordGroup{bucket: b, Keyword: KeywordPlains})
		case strings.EqualFold(id, string(KeywordModules)):
			groups = append(groups, &KeywordGroup{bucket: b, Keyword: KeywordModules})
		case strings.EqualFold(id, string(KeywordWorkspace)):
			groups = append(groups, &KeywordGroup{bucket: b, Keyword: KeywordWorkspace})
		default:
			return nil, errors.NewGroupIdentifierInvalid(id)
		}
	}
	if !hasRemaining {
		groups = append(groups, &RemainingGroup{bucket: bucket{order: OrderAsc, sorting: sorting}})
	}
	return groups, nil
}

// DefaultGroups is Plains, Modules, Workspace, Remaining, all ascending.
func DefaultGroups(sorting Sorting) Groups {
	cfg := make([]config.ImportGroup, 0, len(config.DefaultGroups))
	for _, id := range config.DefaultGroups {
		cfg = append(cfg, config.ImportGroup{Identifier: id, Order: string(OrderAsc)})
	}
	groups, _ := ParseGroups(cfg, sorting)
	return groups
}

func (gs Groups) Reset() {
	for _, g := range gs {
		g.Reset()
	}
}

// Assign offers imp to regex groups first, then to the others in order.
func (gs Groups) Assign(imp parser.Import) {
	for _, g := range gs {
		if _, ok := g.(*RegexGroup); ok && g.ProcessImport(imp) {
			return
		}
	}
	for _, g := range gs {
		if _, ok := g.(*RegexGroup); ok {
			continue
		}
		if g.ProcessImport(imp) {
			return
		}
	}
}

// Ordered returns every assigned import in rendering order.
func (gs Groups) Ordered() []parser.Import {
	var out []parser.Import
	for _, g := range gs {
		out = append(out, g.SortedImports()...)
	}
	return out
}

// Render joins the non-empty groups with one blank line.
func (gs Groups) Render(gen *Generator) string {
	blocks := make([]string, 0, len(gs))
	for _, g := range gs {
		imps := g.SortedImports()
		if len(imps) == 0 {
			continue
		}
		lines := make([]string, 0, len(imps))
		for _, imp := range imps {
			lines = append(lines, gen.Generate(imp))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// SortImports orders string imports first, then the rest by library name,
// or by first specifier when byFirstSpecifier is set. Comparison ignores
// case. The input is not modified.
func SortImports(imps []parser.Import, order Order, byFirstSpecifier bool) []parser.Import {
	out := append([]parser.Import(nil), imps...)
	key := func(imp parser.Import) string {
		if byFirstSpecifier {
			return strings.ToLower(firstSpecifier(imp))
		}
		return strings.ToLower(imp.LibraryName())
	}
	sort.SliceStable(out, func(i, j int) bool {
		_, si := out[i].(*parser.StringImport)
		_, sj := out[j].(*parser.StringImport)
		if si != sj {
			return si
		}
		ki, kj := key(out[i]), key(out[j])
		if order == OrderDesc {
			return ki > kj
		}
		return ki < kj
	})
	return out
}

func firstSpecifier(imp parser.Import) string {
	switch x := imp.(type) {
	case *parser.NamedImport:
		if x.DefaultAlias != "" {
			return x.DefaultAlias
		}
		if len(x.Specifiers) > 0 {
			return x.Specifiers[0].LocalName()
		}
	case *parser.NamespaceImport:
		return x.Alias
	case *parser.ExternalModuleImport:
		return x.Alias
	}
	return path.Base(imp.LibraryName())
}
