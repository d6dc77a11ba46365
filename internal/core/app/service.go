// # internal/core/app/service.go
package app

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"autoimport/internal/core/errors"
	"autoimport/internal/data/store"
	"autoimport/internal/engine/imports"
	"autoimport/internal/engine/index"
	"autoimport/internal/engine/resolver"
)

type OrganizeOptions struct {
	// DryRun computes the result without writing the document.
	DryRun bool
}

type OrganizeResult struct {
	Path    string
	Changed bool
	Before  string
	After   string
}

type AddImportRequest struct {
	Path string
	Name string
	// From narrows the candidates to one library. Relative values are
	// resolved against Path.
	From  string
	Alias string
}

type AddImportResult struct {
	Path        string
	Declaration resolver.DeclarationInfo
	Library     string
}

func (a *App) managerDeps(root string) imports.Deps {
	cfg := a.Config()
	return imports.Deps{
		Host:               a.Host,
		Parser:             a.Parser,
		Config:             cfg.Imports,
		StripTrailingIndex: cfg.Resolver.StripTrailingIndex,
		Root:               root,
		Logger:             a.Logger,
	}
}

// rootFor returns the workspace root of path, falling back to its directory
// when no workspace contains it.
func (a *App) rootFor(path string) string {
	if ws, ok := a.workspaceFor(path); ok {
		return ws.idx.Root()
	}
	return filepath.Dir(path)
}

// OrganizeFile organizes the imports of one document.
func (a *App) OrganizeFile(ctx context.Context, path string, opts OrganizeOptions) (OrganizeResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return OrganizeResult{}, errors.Wrap(err, errors.CodeValidationError, "resolve document path")
	}
	m, err := imports.NewManager(ctx, a.managerDeps(a.rootFor(abs)), abs)
	if err != nil {
		return OrganizeResult{}, err
	}

	before := m.Text()
	edits := m.OrganizeImports().CalculateTextEdits()
	after, err := imports.ApplyEdits(before, edits)
	if err != nil {
		return OrganizeResult{}, errors.NewEditApplicationFailure(abs, err)
	}
	res := OrganizeResult{Path: abs, Changed: len(edits) > 0, Before: before, After: after}
	if opts.DryRun || !res.Changed {
		return res, nil
	}

	ok, err := m.Commit(ctx)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, errors.AddContext(errors.New(errors.CodeConflict, "document changed while organizing, retry"), errors.CtxPath, abs)
	}
	return res, nil
}

// Candidates lists the declarations the document at path could still import.
func (a *App) Candidates(ctx context.Context, path string) ([]resolver.DeclarationInfo, error) {
	abs, idx, err := a.readyIndex(path)
	if err != nil {
		return nil, err
	}
	m, err := imports.NewManager(ctx, a.managerDeps(idx.Root()), abs)
	if err != nil {
		return nil, err
	}
	return resolver.FilterForDocument(idx.DeclarationInfos(), m.Document(), idx.Root()), nil
}

func (a *App) readyIndex(path string) (string, *index.WorkspaceIndex, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CodeValidationError, "resolve document path")
	}
	idx, ok := a.Index(abs)
	if !ok {
		return "", nil, errors.AddContext(errors.New(errors.CodeNotFound, "document is outside every workspace"), errors.CtxPath, abs)
	}
	if !idx.Ready() {
		a.Logger.Warn("declaration index not ready", "root", idx.Root(), "state", idx.State().String())
		err := errors.New(errors.CodeIndexNotReady, "declaration index is not ready")
		if cause := idx.Err(); cause != nil {
			err = errors.Wrap(cause, errors.CodeIndexNotReady, "declaration index is not ready")
		}
		return "", nil, errors.AddContext(err, "root", idx.Root())
	}
	return abs, idx, nil
}

// AddImport adds an import for the declaration req.Name to a document and
// writes it through the host.
func (a *App) AddImport(ctx context.Context, req AddImportRequest) (AddImportResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return AddImportResult{}, errors.New(errors.CodeValidationError, "declaration name must not be empty")
	}
	abs, idx, err := a.readyIndex(req.Path)
	if err != nil {
		return AddImportResult{}, err
	}
	root := idx.Root()
	m, err := imports.NewManager(ctx, a.managerDeps(root), abs)
	if err != nil {
		return AddImportResult{}, err
	}

	var candidates []resolver.DeclarationInfo
	for _, info := range resolver.FilterForDocument(idx.Lookup(req.Name), m.Document(), root) {
		if req.From != "" && !resolver.SameLibrary(info.From, a.canonicalLibrary(req.From, abs, root)) {
			continue
		}
		candidates = append(candidates, info)
	}

	switch len(candidates) {
	case 0:
		return AddImportResult{}, errors.AddContext(errors.New(errors.CodeNotFound, "no importable declaration found"), errors.CtxSymbol, req.Name)
	case 1:
	default:
		froms := make([]string, 0, len(candidates))
		for _, c := range candidates {
			froms = append(froms, c.From)
		}
		sort.Strings(froms)
		err := errors.AddContext(errors.New(errors.CodeAmbiguousDeclaration, "declaration is exported by several libraries"), errors.CtxSymbol, req.Name)
		return AddImportResult{}, errors.AddContext(err, "candidates", strings.Join(froms, ", "))
	}

	info := candidates[0]
	if req.Alias == "" && m.Conflicts(info) {
		err := errors.AddContext(errors.New(errors.CodeConflict, "name is already bound in the document, use an alias"), errors.CtxSymbol, req.Name)
		return AddImportResult{}, errors.AddContext(err, errors.CtxLibrary, info.From)
	}
	if req.Alias != "" {
		m.AddDeclarationImportAs(info, req.Alias)
	} else {
		m.AddDeclarationImport(info)
	}

	ok, err := m.Commit(ctx)
	if err != nil {
		return AddImportResult{}, err
	}
	if !ok {
		return AddImportResult{}, errors.AddContext(errors.New(errors.CodeConflict, "document changed while adding the import, retry"), errors.CtxPath, abs)
	}
	return AddImportResult{Path: abs, Declaration: info, Library: info.From}, nil
}

// canonicalLibrary turns a user supplied library into the index form.
func (a *App) canonicalLibrary(library, documentPath, root string) string {
	if resolver.IsRelative(library) {
		return resolver.AbsoluteLibraryName(library, documentPath, root)
	}
	return library
}

// Declarations returns the indexed declarations of the workspace at root
// whose names start with prefix, sorted by name then library.
func (a *App) Declarations(root, prefix string) ([]resolver.DeclarationInfo, error) {
	idx, ok := a.Index(root)
	if !ok {
		return nil, errors.AddContext(errors.New(errors.CodeNotFound, "workspace not registered"), "root", root)
	}
	var out []resolver.DeclarationInfo
	for _, info := range idx.DeclarationInfos() {
		if strings.HasPrefix(info.Name(), prefix) {
			out = append(out, info)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return out[i].From < out[j].From
	})
	return out, nil
}

// ExportIndex writes the current table of the workspace at root into the
// SQLite store at dbPath.
func (a *App) ExportIndex(ctx context.Context, root, dbPath string) (store.ExportMeta, error) {
	ws, ok := a.workspaceFor(root)
	if !ok {
		return store.ExportMeta{}, errors.AddContext(errors.New(errors.CodeNotFound, "workspace not registered"), "root", root)
	}
	if !ws.idx.Ready() {
		return store.ExportMeta{}, errors.AddContext(errors.New(errors.CodeIndexNotReady, "declaration index is not ready"), "root", ws.idx.Root())
	}

	s, err := store.OpenSQLiteDeclarationStore(dbPath, ws.idx.Root())
	if err != nil {
		return store.ExportMeta{}, err
	}
	defer s.Close()

	ws.mu.Lock()
	passID := ws.lastPass
	ws.mu.Unlock()

	infos := ws.idx.DeclarationInfos()
	meta := store.ExportMeta{
		PassID:       passID,
		ExportedAt:   time.Now().UTC(),
		Files:        ws.idx.Files(),
		Declarations: len(infos),
	}
	if err := s.Replace(ctx, infos, meta); err != nil {
		return store.ExportMeta{}, err
	}
	a.Logger.Info("declaration index exported", "root", ws.idx.Root(), "db", dbPath, "declarations", meta.Declarations)
	return meta, nil
}
