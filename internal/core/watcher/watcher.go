// # internal/core/watcher/watcher.go
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"autoimport/internal/engine/index"
	"autoimport/internal/engine/parser"
	"autoimport/internal/shared/observability"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

type changeKind int

const (
	changeCreated changeKind = iota
	changeUpdated
	changeDeleted
)

// Watcher turns file system events below the watched roots into change
// sets. Events arriving within the coalesce window are delivered together.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	coalesce     time.Duration
	includeJS    bool
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	onChange     func(index.ChangeSet)
	callbackMu   sync.Mutex
	logger       *slog.Logger

	pending   map[string]changeKind
	pendingMu sync.Mutex
	timer     *time.Timer
}

type Options struct {
	Coalesce          time.Duration
	IncludeJavaScript bool
	// ExcludeDirs and ExcludeFiles are globs matched against base names.
	ExcludeDirs  []string
	ExcludeFiles []string
	Logger       *slog.Logger
}

func NewWatcher(opts Options, onChange func(index.ChangeSet)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledDirs, err := compileAll(opts.ExcludeDirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compileAll(opts.ExcludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		fsWatcher:    fsw,
		coalesce:     opts.Coalesce,
		includeJS:    opts.IncludeJavaScript,
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
		onChange:     onChange,
		logger:       logger,
		pending:      make(map[string]changeKind),
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if w.shouldExcludeDir(event.Name) {
				return
			}
			if err := w.watchRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
				return
			}
			// The index walks created directories itself.
			w.schedule(event.Name, changeCreated)
			return
		}
		if !w.shouldExcludeFile(event.Name) {
			w.schedule(event.Name, changeCreated)
		}

	case event.Op&fsnotify.Write == fsnotify.Write:
		if !w.shouldExcludeFile(event.Name) {
			w.schedule(event.Name, changeUpdated)
		}

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A removed path may have been a directory, which has no extension.
		if filepath.Ext(event.Name) == "" && !w.shouldExcludeDir(event.Name) {
			w.schedule(event.Name, changeDeleted)
			return
		}
		if !w.shouldExcludeFile(event.Name) {
			w.schedule(event.Name, changeDeleted)
		}
	}
}

func (w *Watcher) schedule(path string, kind changeKind) {
	w.pendingMu.Lock()
	if prev, ok := w.pending[path]; ok && prev == changeCreated && kind == changeUpdated {
		kind = changeCreated
	}
	w.pending[path] = kind

	if w.coalesce <= 0 {
		w.pendingMu.Unlock()
		w.flushChanges()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.coalesce, w.flushChanges)
	w.pendingMu.Unlock()
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	var changes index.ChangeSet
	for path, kind := range w.pending {
		switch kind {
		case changeCreated:
			changes.Created = append(changes.Created, path)
		case changeUpdated:
			changes.Updated = append(changes.Updated, path)
		case changeDeleted:
			changes.Deleted = append(changes.Deleted, path)
		}
	}
	w.pending = make(map[string]changeKind)
	w.pendingMu.Unlock()

	if changes.Empty() {
		return
	}
	sort.Strings(changes.Created)
	sort.Strings(changes.Updated)
	sort.Strings(changes.Deleted)

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(changes)
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	if base == "node_modules" {
		return true
	}
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	if !parser.IsSourcePath(path, w.includeJS) {
		return true
	}
	base := strings.ToLower(filepath.Base(path))
	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
