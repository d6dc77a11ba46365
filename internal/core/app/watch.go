package app

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"time"

	"autoimport/internal/core/config"
	"autoimport/internal/core/watcher"
	"autoimport/internal/engine/index"
	"autoimport/internal/shared/util"
)

// watchCoalesce groups the events of one save burst before they reach the
// index scheduler, which applies the real debounce.
const watchCoalesce = 50 * time.Millisecond

// Watching is a running file and config watch session.
type Watching struct {
	files  *watcher.Watcher
	config *config.Watcher
}

func (w *Watching) Stop() error {
	if w.config != nil {
		w.config.Stop()
	}
	return w.files.Close()
}

// StartWatching watches every registered workspace and feeds the changes
// into the owning index. When configPath is set the configuration is
// reloaded on change.
func (a *App) StartWatching(ctx context.Context, configPath string) (*Watching, error) {
	cfg := a.Config()
	fw, err := watcher.NewWatcher(watcher.Options{
		Coalesce:          watchCoalesce,
		IncludeJavaScript: cfg.Index.IncludeJavaScript,
		ExcludeDirs:       cfg.Watch.ExcludeDirs,
		ExcludeFiles:      cfg.Watch.ExcludeFiles,
		Logger:            a.Logger,
	}, a.dispatchChanges)
	if err != nil {
		return nil, err
	}
	if err := fw.Watch(a.Workspaces()); err != nil {
		return nil, stderrors.Join(err, fw.Close())
	}

	session := &Watching{files: fw}
	if configPath != "" {
		cw := config.NewWatcher(configPath, a.UpdateConfig)
		if err := cw.Start(ctx); err != nil {
			a.Logger.Warn("config watch disabled", "path", configPath, "error", err)
		} else {
			session.config = cw
		}
	}
	a.Logger.Info("watching workspaces", "roots", len(a.Workspaces()))
	return session, nil
}

// dispatchChanges splits a change set by workspace.
func (a *App) dispatchChanges(changes index.ChangeSet) {
	split := make(map[*workspace]*index.ChangeSet)
	route := func(path string) (*workspace, *index.ChangeSet) {
		ws, ok := a.workspaceFor(path)
		if !ok {
			return nil, nil
		}
		cs, ok := split[ws]
		if !ok {
			cs = &index.ChangeSet{}
			split[ws] = cs
		}
		return ws, cs
	}

	for _, path := range changes.Created {
		if _, cs := route(path); cs != nil {
			cs.Created = append(cs.Created, path)
		}
	}
	for _, path := range changes.Updated {
		ws, cs := route(path)
		if cs == nil {
			continue
		}
		cs.Updated = append(cs.Updated, path)
		ws.mu.Lock()
		ws.saved[filepath.Clean(path)] = struct{}{}
		ws.mu.Unlock()
	}
	for _, path := range changes.Deleted {
		if _, cs := route(path); cs != nil {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	for ws, cs := range split {
		rel := make([]string, 0, cs.Len())
		for _, p := range append(append(append([]string(nil), cs.Created...), cs.Updated...), cs.Deleted...) {
			if r, ok := util.RelSlash(ws.idx.Root(), p); ok {
				rel = append(rel, r)
			}
		}
		a.Logger.Debug("workspace changes", "root", ws.idx.Root(), "paths", rel)
		ws.idx.NotifyChanges(*cs)
	}
}
