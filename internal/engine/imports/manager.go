// # internal/engine/imports/manager.go
package imports

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"autoimport/internal/core/config"
	"autoimport/internal/core/errors"
	"autoimport/internal/core/ports"
	"autoimport/internal/engine/parser"
	"autoimport/internal/engine/resolver"
	"autoimport/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the collaborators of a Manager.
type Deps struct {
	Host               ports.DocumentHost
	Parser             ports.SourceParser
	Config             config.Imports
	StripTrailingIndex bool
	// Root is the workspace root the index libraries are relative to.
	Root   string
	Logger *slog.Logger
}

// Manager edits the imports of one document. Changes accumulate on a
// working copy of the document's imports until Commit writes them through
// the host.
type Manager struct {
	deps      Deps
	path      string
	logger    *slog.Logger
	gen       *Generator
	text      string
	document  *parser.File
	imports   []parser.Import
	groups    Groups
	organized bool
}

// NewManager reads and parses the document at path.
func NewManager(ctx context.Context, deps Deps, path string) (*Manager, error) {
	if deps.Host == nil {
		return nil, errors.New(errors.CodeValidationError, "import manager requires a document host")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	m := &Manager{
		deps:   deps,
		path:   path,
		logger: deps.Logger.With("document", path),
		gen:    NewGenerator(deps.Config),
	}
	if err := m.load(ctx); err != nil {
		return nil, err
	}
	m.Reset()
	return m, nil
}

func (m *Manager) load(ctx context.Context) error {
	text, err := m.deps.Host.DocumentText(ctx, m.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", m.path, err)
	}
	file, err := m.deps.Parser.Parse([]byte(text), m.path)
	if err != nil {
		return err
	}
	m.text = text
	m.document = file
	return nil
}

func (m *Manager) sorting() Sorting {
	return Sorting{
		Disabled:         m.deps.Config.DisableImportsSorting,
		ByFirstSpecifier: m.deps.Config.OrganizeSortsByFirstSpecifier,
	}
}

// Reset drops all pending changes: the working imports become a fresh copy
// of the document's imports and the groups are rebuilt from configuration.
func (m *Manager) Reset() {
	groups, err := ParseGroups(m.deps.Config.Groups, m.sorting())
	if err != nil {
		m.logger.Warn("invalid import groups, using defaults", "error", err)
		groups = DefaultGroups(m.sorting())
	}
	m.groups = groups
	m.imports = parser.CloneImports(m.document.Imports)
	for _, imp := range m.imports {
		m.groups.Assign(imp)
	}
	m.organized = false
}

// Imports returns a copy of the working imports.
func (m *Manager) Imports() []parser.Import {
	return parser.CloneImports(m.imports)
}

// Document is the last parsed state of the document.
func (m *Manager) Document() *parser.File { return m.document }

// Text is the document text the edits are computed against.
func (m *Manager) Text() string { return m.text }

func (m *Manager) add(imp parser.Import) {
	m.imports = append(m.imports, imp)
	m.groups.Assign(imp)
}

// specifierFor returns the library to write in this document for an index
// library.
func (m *Manager) specifierFor(from string) string {
	lib := resolver.RelativeLibraryName(from, m.path, m.deps.Root)
	if m.deps.StripTrailingIndex && resolver.IsRelative(lib) {
		lib = resolver.StripTrailingIndex(lib)
	}
	return lib
}

func (m *Manager) absolute(library string) string {
	return resolver.AbsoluteLibraryName(library, m.path, m.deps.Root)
}

func (m *Manager) findNamed(target string) *parser.NamedImport {
	for _, imp := range m.imports {
		named, ok := imp.(*parser.NamedImport)
		if ok && !named.TypeOnly && resolver.SameLibrary(m.absolute(named.Library), target) {
			return named
		}
	}
	return nil
}

// AddDeclarationImport makes info importable in the document, merging into an
// existing import of the same library when there is one.
func (m *Manager) AddDeclarationImport(info resolver.DeclarationInfo) *Manager {
	return m.AddDeclarationImportAs(info, "")
}

// AddDeclarationImportAs is AddDeclarationImport binding the declaration
// under alias.
func (m *Manager) AddDeclarationImportAs(info resolver.DeclarationInfo, alias string) *Manager {
	decl := info.Declaration
	target := m.absolute(info.From)
	local := decl.Name()
	if alias != "" {
		local = alias
	}

	if mod, ok := decl.(*parser.ModuleDeclaration); ok && mod.Ambient {
		for _, imp := range m.imports {
			ns, ok := imp.(*parser.NamespaceImport)
			if ok && ns.Alias == local && resolver.SameLibrary(m.absolute(ns.Library), target) {
				return m
			}
		}
		m.add(&parser.NamespaceImport{Library: m.specifierFor(info.From), Alias: local})
		return m
	}

	named := m.findNamed(target)
	if decl.Kind() == parser.KindDefault {
		if named != nil {
			named.DefaultAlias = local
			return m
		}
		m.add(&parser.NamedImport{Library: m.specifierFor(info.From), DefaultAlias: local})
		return m
	}

	spec := parser.Specifier{Name: decl.Name()}
	if alias != "" && alias != decl.Name() {
		spec.Alias = alias
	}
	if named != nil {
		for _, s := range named.Specifiers {
			if s.Name == spec.Name && (alias == "" || s.Alias == spec.Alias) {
				return m
			}
		}
		named.Specifiers = append(named.Specifiers, spec)
		return m
	}
	m.add(&parser.NamedImport{Library: m.specifierFor(info.From), Specifiers: []parser.Specifier{spec}})
	return m
}

// Conflicts reports whether importing info under its own name would clash
// with a local declaration or with a binding imported from another library.
func (m *Manager) Conflicts(info resolver.DeclarationInfo) bool {
	name := info.Name()
	for _, d := range m.document.Declarations {
		if d.Name() == name {
			return true
		}
	}
	target := m.absolute(info.From)
	for _, imp := range m.imports {
		if resolver.SameLibrary(m.absolute(imp.LibraryName()), target) {
			continue
		}
		for _, bound := range boundNames(imp) {
			if bound == name {
				return true
			}
		}
	}
	return false
}

func boundNames(imp parser.Import) []string {
	switch x := imp.(type) {
	case *parser.NamedImport:
		out := make([]string, 0, len(x.Specifiers)+1)
		if x.DefaultAlias != "" {
			out = append(out, x.DefaultAlias)
		}
		for _, s := range x.Specifiers {
			out = append(out, s.LocalName())
		}
		return out
	case *parser.NamespaceImport:
		if x.DefaultAlias != "" {
			return []string{x.DefaultAlias, x.Alias}
		}
		return []string{x.Alias}
	case *parser.ExternalModuleImport:
		return []string{x.Alias}
	}
	return nil
}

// OrganizeImports drops unused imports, merges duplicates, sorts and
// regroups the working set.
func (m *Manager) OrganizeImports() *Manager {
	cfg := m.deps.Config
	kept := m.imports
	if !cfg.DisableImportRemovalOnOrganize {
		kept = m.removeUnused(m.imports)
	}
	kept = mergeNamed(kept)

	if m.deps.StripTrailingIndex {
		for _, imp := range kept {
			if lib := imp.LibraryName(); resolver.IsRelative(lib) {
				setLibrary(imp, resolver.StripTrailingIndex(lib))
			}
		}
	}
	if !cfg.DisableImportsSorting {
		for _, imp := range kept {
			if named, ok := imp.(*parser.NamedImport); ok {
				sortSpecifiers(named.Specifiers)
			}
		}
		kept = SortImports(kept, OrderAsc, cfg.OrganizeSortsByFirstSpecifier)
	}

	m.imports = kept
	m.groups.Reset()
	for _, imp := range m.imports {
		m.groups.Assign(imp)
	}
	m.organized = true
	return m
}

func (m *Manager) removeUnused(in []parser.Import) []parser.Import {
	used := make(map[string]bool)
	for _, u := range m.document.NonLocalUsages() {
		used[u] = true
	}
	ignored := make(map[string]bool, len(m.deps.Config.IgnoredFromRemoval))
	for _, lib := range m.deps.Config.IgnoredFromRemoval {
		ignored[lib] = true
	}

	out := make([]parser.Import, 0, len(in))
	for _, imp := range in {
		if ignored[imp.LibraryName()] {
			out = append(out, imp)
			continue
		}
		switch x := imp.(type) {
		case *parser.StringImport:
			out = append(out, x)
		case *parser.NamespaceImport:
			switch {
			case used[x.Alias]:
				if !used[x.DefaultAlias] {
					x.DefaultAlias = ""
				}
				out = append(out, x)
			case x.DefaultAlias != "" && used[x.DefaultAlias]:
				out = append(out, &parser.NamedImport{Library: x.Library, DefaultAlias: x.DefaultAlias, TypeOnly: x.TypeOnly, Range: x.Range})
			}
		case *parser.ExternalModuleImport:
			if used[x.Alias] {
				out = append(out, x)
			}
		case *parser.NamedImport:
			specs := x.Specifiers[:0:0]
			for _, s := range x.Specifiers {
				if used[s.LocalName()] && !hasSpecifier(specs, s) {
					specs = append(specs, s)
				}
			}
			x.Specifiers = specs
			if !used[x.DefaultAlias] {
				x.DefaultAlias = ""
			}
			if len(x.Specifiers) > 0 || x.DefaultAlias != "" {
				out = append(out, x)
			}
		}
	}
	return out
}

func hasSpecifier(specs []parser.Specifier, s parser.Specifier) bool {
	for _, existing := range specs {
		if existing.Name == s.Name && existing.Alias == s.Alias {
			return true
		}
	}
	return false
}

// mergeNamed folds named imports of the same library into the first one.
// A later default alias replaces an earlier one.
func mergeNamed(in []parser.Import) []parser.Import {
	type key struct {
		library  string
		typeOnly bool
	}
	first := make(map[key]*parser.NamedImport)
	out := make([]parser.Import, 0, len(in))
	for _, imp := range in {
		named, ok := imp.(*parser.NamedImport)
		if !ok {
			out = append(out, imp)
			continue
		}
		k := key{named.Library, named.TypeOnly}
		prev, seen := first[k]
		if !seen {
			first[k] = named
			out = append(out, named)
			continue
		}
		for _, s := range named.Specifiers {
			if !hasSpecifier(prev.Specifiers, s) {
				prev.Specifiers = append(prev.Specifiers, s)
			}
		}
		if named.DefaultAlias != "" {
			prev.DefaultAlias = named.DefaultAlias
		}
	}
	return out
}

func sortSpecifiers(specs []parser.Specifier) {
	sort.SliceStable(specs, func(i, j int) bool {
		a, b := strings.ToLower(specs[i].Name), strings.ToLower(specs[j].Name)
		if a != b {
			return a < b
		}
		if specs[i].Name != specs[j].Name {
			return specs[i].Name < specs[j].Name
		}
		return specs[i].Alias < specs[j].Alias
	})
}

func setLibrary(imp parser.Import, lib string) {
	switch x := imp.(type) {
	case *parser.StringImport:
		x.Library = lib
	case *parser.NamedImport:
		x.Library = lib
	case *parser.NamespaceImport:
		x.Library = lib
	case *parser.ExternalModuleImport:
		x.Library = lib
	}
}

// CalculateTextEdits projects the working imports onto the last parsed
// document text. After OrganizeImports the whole import block is rewritten;
// otherwise only added or changed imports are touched.
func (m *Manager) CalculateTextEdits() []ports.TextEdit {
	if m.organized {
		return m.organizeEdits()
	}
	return m.incrementalEdits()
}

func (m *Manager) organizeEdits() []ports.TextEdit {
	text := m.text
	var deletions []ports.TextEdit
	insertAt := -1
	for _, imp := range m.document.Imports {
		r := imp.SourceRange()
		if r == nil {
			continue
		}
		start, end, whole := importSpan(text, *r)
		if whole && end < len(text) {
			if next := lineEnd(text, end); strings.TrimSpace(text[end:next]) == "" {
				end = next
			}
		}
		deletions = append(deletions, ports.TextEdit{Start: start, End: end})

		// Code before the import keeps its line; the block goes below it.
		at := start
		if !whole && sharesLineWithCode(text, *r) {
			at = lineEnd(text, end)
		}
		if insertAt < 0 || at < insertAt {
			insertAt = at
		}
	}
	deletions = mergeSpans(deletions)

	var rest string
	if len(deletions) > 0 {
		stripped, err := ApplyEdits(text, deletions)
		if err != nil {
			m.logger.Warn("failed to compute import block", "error", err)
			return nil
		}
		shift := 0
		for _, d := range deletions {
			switch {
			case d.End <= insertAt:
				shift += d.End - d.Start
			case d.Start < insertAt:
				insertAt = d.Start
			}
		}
		rest = stripped[insertAt-shift:]
	} else {
		insertAt = insertionPoint(text)
		rest = text[insertAt:]
	}

	block := m.groups.Render(m.gen)
	if block != "" {
		block += "\n"
		if strings.TrimSpace(rest) != "" {
			block += "\n"
		}
		if insertAt == len(text) && insertAt > 0 && !strings.HasSuffix(text, "\n") {
			block = "\n" + block
		}
	}

	edits := deletions
	if block != "" {
		edits = append([]ports.TextEdit{{Start: insertAt, End: insertAt, NewText: block}}, deletions...)
	}
	if len(edits) == 0 {
		return nil
	}
	if result, err := ApplyEdits(text, edits); err == nil && result == text {
		return nil
	}
	return edits
}

func (m *Manager) incrementalEdits() []ports.TextEdit {
	text := m.text
	working := make(map[int]parser.Import, len(m.imports))
	for _, imp := range m.imports {
		if r := imp.SourceRange(); r != nil {
			working[r.Start] = imp
		}
	}

	var edits []ports.TextEdit
	lastLineEnd := -1
	for _, orig := range m.document.Imports {
		r := orig.SourceRange()
		if r == nil {
			continue
		}
		if _, le := lineSpan(text, *r); le > lastLineEnd {
			lastLineEnd = le
		}
		current, ok := working[r.Start]
		switch {
		case !ok:
			start, end, _ := importSpan(text, *r)
			edits = append(edits, ports.TextEdit{Start: start, End: end})
		case sameImport(orig, current):
		default:
			edits = append(edits, ports.TextEdit{Start: r.Start, End: r.End, NewText: m.gen.Generate(current)})
		}
	}

	var added []string
	for _, imp := range m.groups.Ordered() {
		if parser.IsSynthetic(imp) {
			added = append(added, m.gen.Generate(imp))
		}
	}
	if len(added) > 0 {
		insert := strings.Join(added, "\n") + "\n"
		at := lastLineEnd
		if at < 0 {
			at = insertionPoint(text)
			if strings.TrimSpace(text[at:]) != "" {
				insert += "\n"
			}
		}
		if at == len(text) && at > 0 && !strings.HasSuffix(text, "\n") {
			insert = "\n" + strings.TrimSuffix(insert, "\n")
		}
		edits = append(edits, ports.TextEdit{Start: at, End: at, NewText: insert})
	}
	return mergeSpans(edits)
}

// Commit applies the pending edits through the host. On success the
// document is re-read and the manager reset; a rejected edit leaves the
// working imports untouched so the caller can retry.
func (m *Manager) Commit(ctx context.Context) (bool, error) {
	ctx, span := observability.Tracer.Start(ctx, "imports.Commit", trace.WithAttributes(attribute.String("path", m.path)))
	defer span.End()

	mode := "incremental"
	if m.organized {
		mode = "organize"
	}
	edits := m.CalculateTextEdits()
	span.SetAttributes(attribute.String("mode", mode), attribute.Int("edits", len(edits)))
	if len(edits) == 0 {
		observability.CommitsTotal.WithLabelValues("noop").Inc()
		m.Reset()
		return true, nil
	}
	observability.ImportEditsTotal.WithLabelValues(mode).Add(float64(len(edits)))

	ok, err := m.deps.Host.ApplyEdits(ctx, m.path, edits)
	if err != nil {
		observability.CommitsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, errors.NewEditApplicationFailure(m.path, err)
	}
	if !ok {
		observability.CommitsTotal.WithLabelValues("rejected").Inc()
		m.logger.Warn("host rejected import edits", "edits", len(edits))
		return false, nil
	}
	observability.CommitsTotal.WithLabelValues("applied").Inc()
	m.logger.Debug("import edits applied", "mode", mode, "edits", len(edits))

	if err := m.load(ctx); err != nil {
		span.RecordError(err)
		return true, err
	}
	m.Reset()
	return true, nil
}

// sameImport compares two imports ignoring their source ranges and the
// order of specifiers.
func sameImport(a, b parser.Import) bool {
	switch x := a.(type) {
	case *parser.StringImport:
		y, ok := b.(*parser.StringImport)
		return ok && x.Library == y.Library
	case *parser.NamespaceImport:
		y, ok := b.(*parser.NamespaceImport)
		return ok && x.Library == y.Library && x.Alias == y.Alias && x.DefaultAlias == y.DefaultAlias && x.TypeOnly == y.TypeOnly
	case *parser.ExternalModuleImport:
		y, ok := b.(*parser.ExternalModuleImport)
		return ok && x.Library == y.Library && x.Alias == y.Alias
	case *parser.NamedImport:
		y, ok := b.(*parser.NamedImport)
		if !ok || x.Library != y.Library || x.DefaultAlias != y.DefaultAlias || x.TypeOnly != y.TypeOnly {
			return false
		}
		if len(x.Specifiers) != len(y.Specifiers) {
			return false
		}
		set := make(map[parser.Specifier]int, len(x.Specifiers))
		for _, s := range x.Specifiers {
			set[s]++
		}
		for _, s := range y.Specifiers {
			if set[s] == 0 {
				return false
			}
			set[s]--
		}
		return true
	}
	return false
}
