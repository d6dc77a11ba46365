// # internal/core/app/app.go
package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"autoimport/internal/core/config"
	"autoimport/internal/core/errors"
	"autoimport/internal/core/ports"
	"autoimport/internal/engine/index"
	"autoimport/internal/engine/parser"
	"autoimport/internal/shared/util"
)

// workspace pairs an index with the bookkeeping the app keeps about it.
type workspace struct {
	idx         *index.WorkspaceIndex
	unsubscribe func()

	mu       sync.Mutex
	lastPass string
	// saved collects updated documents until the next finished pass.
	saved map[string]struct{}
}

// App wires workspace indexes, the document host and the import manager.
type App struct {
	Logger *slog.Logger
	Parser ports.SourceParser
	Host   ports.DocumentHost

	cfgMu sync.RWMutex
	cfg   *config.Config

	mu         sync.RWMutex
	workspaces map[string]*workspace
	bg         sync.WaitGroup
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		Logger:     logger,
		Parser:     parser.NewParser(logger),
		Host:       NewFileHost(),
		cfg:        cfg,
		workspaces: make(map[string]*workspace),
	}, nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// UpdateConfig swaps the import settings of a reloaded configuration in.
// Index settings only apply to workspaces added afterwards.
func (a *App) UpdateConfig(next *config.Config) {
	if next == nil {
		return
	}
	a.cfgMu.Lock()
	a.cfg = next
	a.cfgMu.Unlock()
	a.Logger.Info("configuration reloaded")
}

// AddWorkspace creates the index for root and runs the initial build. A
// failed build leaves the workspace registered in the error state.
func (a *App) AddWorkspace(ctx context.Context, root string) (*index.WorkspaceIndex, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "resolve workspace root")
	}

	a.mu.Lock()
	if ws, ok := a.workspaces[abs]; ok {
		a.mu.Unlock()
		return ws.idx, nil
	}
	cfg := a.Config()
	idx, err := index.New(index.Options{
		Root:               abs,
		Index:              cfg.Index,
		StripTrailingIndex: cfg.Resolver.StripTrailingIndex,
		Parser:             a.Parser,
		Logger:             a.Logger,
	})
	if err != nil {
		a.mu.Unlock()
		return nil, err
	}
	ws := &workspace{idx: idx, saved: make(map[string]struct{})}
	ws.unsubscribe = idx.Subscribe(func(ev index.Event) { a.onIndexEvent(ws, ev) })
	a.workspaces[abs] = ws
	a.mu.Unlock()

	a.Logger.Info("workspace added", "root", abs)
	if err := idx.Rebuild(ctx); err != nil {
		return idx, err
	}
	return idx, nil
}

func (a *App) RemoveWorkspace(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	a.mu.Lock()
	ws, ok := a.workspaces[abs]
	delete(a.workspaces, abs)
	a.mu.Unlock()
	if !ok {
		return errors.AddContext(errors.New(errors.CodeNotFound, "workspace not registered"), "root", abs)
	}
	ws.unsubscribe()
	return ws.idx.Close()
}

// Workspaces returns the registered roots in sorted order.
func (a *App) Workspaces() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return util.SortedStringKeys(a.workspaces)
}

// Index returns the index whose root contains path. The deepest root wins.
func (a *App) Index(path string) (*index.WorkspaceIndex, bool) {
	ws, ok := a.workspaceFor(path)
	if !ok {
		return nil, false
	}
	return ws.idx, true
}

func (a *App) workspaceFor(path string) (*workspace, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	var best *workspace
	bestLen := -1
	for root, ws := range a.workspaces {
		if !util.HasPathPrefix(abs, root) {
			continue
		}
		if len(root) > bestLen {
			best, bestLen = ws, len(root)
		}
	}
	return best, best != nil
}

func (a *App) onIndexEvent(ws *workspace, ev index.Event) {
	switch ev.Kind {
	case ports.SyncFinish:
		ws.mu.Lock()
		ws.lastPass = ev.PassID
		pending := make([]string, 0, len(ws.saved))
		for path := range ws.saved {
			pending = append(pending, path)
		}
		ws.saved = make(map[string]struct{})
		ws.mu.Unlock()

		if len(pending) == 0 || !a.Config().Imports.OrganizeOnSave {
			return
		}
		sort.Strings(pending)
		a.bg.Add(1)
		go func() {
			defer a.bg.Done()
			a.organizeSaved(pending)
		}()
	case ports.SyncError:
		a.Logger.Debug("index pass failed", "root", ws.idx.Root(), "pass_id", ev.PassID, "error", ev.Err)
	}
}

// WaitBackground blocks until pending organize-on-save runs are done.
func (a *App) WaitBackground() { a.bg.Wait() }

func (a *App) organizeSaved(paths []string) {
	ctx := context.Background()
	for _, path := range paths {
		res, err := a.OrganizeFile(ctx, path, OrganizeOptions{})
		if err != nil {
			a.Logger.Warn("organize on save failed", "path", path, "error", err)
			continue
		}
		if res.Changed {
			a.Logger.Info("organized imports", "path", path)
		}
	}
}

// Close shuts every workspace index down.
func (a *App) Close() error {
	a.mu.Lock()
	list := make([]*workspace, 0, len(a.workspaces))
	for _, ws := range a.workspaces {
		list = append(list, ws)
	}
	a.workspaces = make(map[string]*workspace)
	a.mu.Unlock()

	var errs []error
	for _, ws := range list {
		ws.unsubscribe()
		if err := ws.idx.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.bg.Wait()
	return stderrors.Join(errs...)
}
