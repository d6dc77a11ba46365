package index

import (
	"sort"

	"autoimport/internal/engine/parser"
	"autoimport/internal/engine/resolver"
)

// exported is one name a file exposes and the declaration behind it.
type exported struct {
	name   string
	decl   parser.Declaration
	origin string // file that physically declares decl
}

// resolution turns a set of parsed files into symbol table rows.
type resolution struct {
	libs    *libraries
	files   map[string]*parser.File
	exports map[string][]exported
	active  map[string]bool
}

func newResolution(libs *libraries, files map[string]*parser.File) *resolution {
	return &resolution{
		libs:    libs,
		files:   files,
		exports: make(map[string][]exported, len(files)),
		active:  make(map[string]bool),
	}
}

// exportsOf computes, depth first, every name path exposes, following
// re-export chains. Cycles resolve to whatever was collected so far.
func (r *resolution) exportsOf(path string) []exported {
	if out, ok := r.exports[path]; ok {
		return out
	}
	if r.active[path] {
		return nil
	}
	file, ok := r.files[path]
	if !ok {
		return nil
	}
	r.active[path] = true
	defer delete(r.active, path)

	var out []exported
	for _, d := range file.Declarations {
		if d.Exported() {
			out = append(out, exported{name: d.Name(), decl: d, origin: path})
		}
	}

	for _, e := range file.Exports {
		switch x := e.(type) {
		case *parser.AllExport:
			target := r.libs.resolve(path, x.From)
			if x.Alias != "" {
				ns := parser.NewModuleDeclaration(x.Alias)
				if target != "" {
					ns.Body = &r.files[target].Resource
				}
				out = append(out, exported{name: x.Alias, decl: ns, origin: path})
				continue
			}
			if target == "" {
				continue
			}
			for _, t := range r.exportsOf(target) {
				// `export *` never forwards the default export.
				if t.decl.Kind() == parser.KindDefault {
					continue
				}
				out = append(out, t)
			}
		case *parser.NamedExport:
			target := r.libs.resolve(path, x.From)
			if target == "" {
				continue
			}
			forwarded := r.exportsOf(target)
			for _, spec := range x.Specifiers {
				for _, t := range forwarded {
					if !specifierMatches(spec.Name, t) {
						continue
					}
					name := spec.LocalName()
					decl := t.decl
					if name != t.name {
						decl = parser.Renamed(t.decl, name)
					}
					out = append(out, exported{name: name, decl: decl, origin: t.origin})
				}
			}
		case *parser.AssignedExport:
			for _, d := range x.Exported(&file.Resource) {
				out = append(out, exported{name: d.Name(), decl: d, origin: path})
				if m, ok := d.(*parser.ModuleDeclaration); ok {
					for _, member := range m.Declarations() {
						if member.Exported() {
							out = append(out, exported{name: member.Name(), decl: member, origin: path})
						}
					}
				}
			}
		}
	}

	r.exports[path] = out
	return out
}

func specifierMatches(name string, t exported) bool {
	if name == "default" {
		return t.decl.Kind() == parser.KindDefault
	}
	return t.name == name && t.decl.Kind() != parser.KindDefault
}

// movesInto reports whether re-exports through path take ownership of the
// forwarded declarations.
func (r *resolution) movesInto(path string) bool {
	return r.libs.isNodeModule(path) || (r.libs.strip && isBarrel(path))
}

type infoKey struct {
	kind parser.DeclarationKind
	name string
	from string
}

// infos builds the deduplicated symbol table rows, ordered by name, then
// library.
func (r *resolution) infos() []resolver.DeclarationInfo {
	paths := make([]string, 0, len(r.files))
	for p := range r.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	moved := make(map[parser.Declaration]bool)
	var rows []resolver.DeclarationInfo
	seen := make(map[infoKey]bool)
	add := func(d parser.Declaration, from string) {
		key := infoKey{d.Kind(), d.Name(), from}
		if seen[key] {
			return
		}
		seen[key] = true
		rows = append(rows, resolver.DeclarationInfo{Declaration: d, From: from})
	}

	// Re-exported declarations first, so ownership moves are known before
	// the declaring files are visited.
	for _, path := range paths {
		file := r.files[path]
		if file.IsGlobalDeclarationFile() {
			continue
		}
		from := r.libs.libraryFor(path)
		takesOwnership := r.movesInto(path)
		for _, e := range r.exportsOf(path) {
			if e.origin == path {
				continue
			}
			original := originalOf(e, r.files[e.origin])
			switch {
			case takesOwnership:
				moved[original] = true
				add(e.decl, from)
			case e.decl != original:
				// Aliased re-exports add an entry under the alias.
				add(e.decl, from)
			}
		}
	}

	for _, path := range paths {
		file := r.files[path]
		for _, m := range file.AmbientModules() {
			r.addAmbient(m, add)
		}
		if file.IsGlobalDeclarationFile() {
			continue
		}
		from := r.libs.libraryFor(path)
		for _, e := range r.exportsOf(path) {
			if e.origin != path || moved[e.decl] {
				continue
			}
			if m, ok := e.decl.(*parser.ModuleDeclaration); ok && m.Ambient {
				continue
			}
			add(e.decl, from)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Name() != rows[j].Name() {
			return rows[i].Name() < rows[j].Name()
		}
		return rows[i].From < rows[j].From
	})
	return rows
}

// originalOf returns the declaration as it appears in its declaring file,
// looking through aliases added by named re-exports.
func originalOf(e exported, origin *parser.File) parser.Declaration {
	if origin == nil {
		return e.decl
	}
	for _, d := range origin.Declarations {
		if d == e.decl {
			return d
		}
	}
	span := e.decl.Span()
	for _, d := range origin.Declarations {
		if d.Span() == span && d.Kind() == e.decl.Kind() {
			return d
		}
	}
	return e.decl
}

// addAmbient indexes `declare module "x" { }` under "x", plus a camel-cased
// namespace alias usable as `import * as x`.
func (r *resolution) addAmbient(m *parser.ModuleDeclaration, add func(parser.Declaration, string)) {
	from := m.Name()
	alias := &parser.ModuleDeclaration{
		DeclarationBase: parser.DeclarationBase{Identifier: parser.CamelCase(from), IsExported: true, Range: m.Span()},
		Ambient:         true,
		Body:            m.Body,
	}
	add(alias, from)
	if m.Body == nil {
		return
	}
	for _, d := range m.Body.Declarations {
		if d.Exported() {
			add(d, from)
		}
	}
	for _, e := range m.Body.Exports {
		if assigned, ok := e.(*parser.AssignedExport); ok {
			for _, d := range assigned.Exported(m.Body) {
				add(parser.Renamed(d, d.Name()), from)
				if inner, ok := d.(*parser.ModuleDeclaration); ok {
					for _, member := range inner.Declarations() {
						if member.Exported() {
							add(member, from)
						}
					}
				}
			}
		}
	}
}
