// # internal/engine/index/index.go
package index

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"autoimport/internal/core/config"
	"autoimport/internal/core/errors"
	"autoimport/internal/core/ports"
	"autoimport/internal/engine/parser"
	"autoimport/internal/engine/resolver"
	"autoimport/internal/shared/observability"
	"autoimport/internal/shared/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type State int

const (
	StateIdle State = iota
	StateSyncing
	StateError
)

func (s State) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Event is published on every index pass transition.
type Event struct {
	Kind         ports.IndexEventKind
	PassID       string
	Files        int
	Declarations int
	Err          error
}

type Options struct {
	Root               string
	Index              config.Index
	StripTrailingIndex bool
	// Parser defaults to a tree-sitter parser.
	Parser ports.SourceParser
	Logger *slog.Logger
}

// snapshot is an immutable symbol table. Readers never see a partial pass.
type snapshot struct {
	all    []resolver.DeclarationInfo
	byName map[string][]resolver.DeclarationInfo
	files  int
}

func newSnapshot(rows []resolver.DeclarationInfo, files int) *snapshot {
	byName := make(map[string][]resolver.DeclarationInfo)
	for _, row := range rows {
		byName[row.Name()] = append(byName[row.Name()], row)
	}
	return &snapshot{all: rows, byName: byName, files: files}
}

type cachedFile struct {
	file *parser.File
	hash string
}

// WorkspaceIndex owns the declaration table of one workspace root.
type WorkspaceIndex struct {
	root       string
	strip      bool
	parser     ports.SourceParser
	logger     *slog.Logger
	discoverer *Discoverer
	limiter    *util.Limiter
	sched      *scheduler

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	snap     *snapshot
	state    State
	built    bool
	lastErr  error
	passMu   sync.Mutex
	cache    map[string]*cachedFile
	subMu    sync.Mutex
	subs     map[int]func(Event)
	nextSub  int
	closeOne sync.Once
}

func New(opts Options) (*WorkspaceIndex, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.NewIndexBuildError(opts.Root, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := opts.Parser
	if p == nil {
		p = parser.NewParser(logger)
	}
	discoverer, err := NewDiscoverer(root, opts.Index, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	idx := &WorkspaceIndex{
		root:       root,
		strip:      opts.StripTrailingIndex,
		parser:     p,
		logger:     logger.With("workspace", root),
		discoverer: discoverer,
		limiter:    util.NewLimiter(opts.Index.MaxFilesPerSecond, 1),
		ctx:        ctx,
		cancel:     cancel,
		snap:       newSnapshot(nil, 0),
		cache:      make(map[string]*cachedFile),
		subs:       make(map[int]func(Event)),
	}
	debounce := opts.Index.Debounce
	if debounce <= 0 {
		debounce = config.DefaultDebounce
	}
	idx.sched = newScheduler(debounce, idx.runScheduled)
	return idx, nil
}

func (idx *WorkspaceIndex) Root() string { return idx.root }

// Subscribe registers fn for lifecycle events and returns an unsubscribe func.
// fn runs on the goroutine performing the pass.
func (idx *WorkspaceIndex) Subscribe(fn func(Event)) func() {
	idx.subMu.Lock()
	defer idx.subMu.Unlock()
	id := idx.nextSub
	idx.nextSub++
	idx.subs[id] = fn
	return func() {
		idx.subMu.Lock()
		defer idx.subMu.Unlock()
		delete(idx.subs, id)
	}
}

func (idx *WorkspaceIndex) publish(ev Event) {
	idx.subMu.Lock()
	fns := make([]func(Event), 0, len(idx.subs))
	for _, fn := range idx.subs {
		fns = append(fns, fn)
	}
	idx.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (idx *WorkspaceIndex) State() State {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.state
}

// Ready reports whether a complete table is available and no pass is running.
func (idx *WorkspaceIndex) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.built && idx.state == StateIdle
}

// Err returns the error of the last failed pass, if the index is in Error state.
func (idx *WorkspaceIndex) Err() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.state != StateError {
		return nil
	}
	return idx.lastErr
}

// DeclarationInfos returns every row of the current table.
func (idx *WorkspaceIndex) DeclarationInfos() []resolver.DeclarationInfo {
	idx.mu.RLock()
	snap := idx.snap
	idx.mu.RUnlock()
	return append([]resolver.DeclarationInfo(nil), snap.all...)
}

// Lookup returns every declaration named name. More than one result is an
// ambiguity the caller has to resolve.
func (idx *WorkspaceIndex) Lookup(name string) []resolver.DeclarationInfo {
	idx.mu.RLock()
	snap := idx.snap
	idx.mu.RUnlock()
	return append([]resolver.DeclarationInfo(nil), snap.byName[name]...)
}

// Files returns the number of files in the current table.
func (idx *WorkspaceIndex) Files() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.snap.files
}

// Rebuild discovers the workspace files and builds the table from scratch.
func (idx *WorkspaceIndex) Rebuild(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "index.Rebuild", trace.WithAttributes(attribute.String("root", idx.root)))
	defer span.End()

	files, err := idx.discoverer.Discover(ctx)
	if err != nil {
		passID := uuid.NewString()
		idx.publish(Event{Kind: ports.SyncStart, PassID: passID})
		idx.fail(passID, "full", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return idx.BuildIndex(ctx, files)
}

// BuildIndex parses files and replaces the table. Files that cannot be read
// or parsed are skipped.
func (idx *WorkspaceIndex) BuildIndex(ctx context.Context, files []string) error {
	idx.passMu.Lock()
	defer idx.passMu.Unlock()

	ctx, span := observability.Tracer.Start(ctx, "index.BuildIndex", trace.WithAttributes(attribute.Int("files", len(files))))
	defer span.End()

	passID := idx.begin()
	start := time.Now()

	cache := make(map[string]*cachedFile, len(files))
	for _, path := range sortedUnique(files) {
		if err := idx.throttle(ctx); err != nil {
			idx.fail(passID, "full", err)
			span.RecordError(err)
			return err
		}
		if entry, ok := idx.load(path); ok {
			cache[path] = entry
		}
	}

	idx.cache = cache
	idx.finish(passID, "full", start)
	return nil
}

// ReindexForChanges patches the table for one change set. Unchanged content
// is not re-parsed; deleting a directory drops every file below it.
func (idx *WorkspaceIndex) ReindexForChanges(ctx context.Context, changes ChangeSet) error {
	idx.passMu.Lock()
	defer idx.passMu.Unlock()

	ctx, span := observability.Tracer.Start(ctx, "index.ReindexForChanges", trace.WithAttributes(
		attribute.Int("created", len(changes.Created)),
		attribute.Int("updated", len(changes.Updated)),
		attribute.Int("deleted", len(changes.Deleted)),
	))
	defer span.End()

	passID := idx.begin()
	start := time.Now()

	cache := make(map[string]*cachedFile, len(idx.cache))
	for path, entry := range idx.cache {
		cache[path] = entry
	}

	for _, deleted := range changes.Deleted {
		deleted = filepath.Clean(deleted)
		prefix := deleted + string(filepath.Separator)
		for path := range cache {
			if path == deleted || strings.HasPrefix(path, prefix) {
				delete(cache, path)
			}
		}
	}

	changed := append(append([]string(nil), changes.Created...), changes.Updated...)
	for _, path := range sortedUnique(changed) {
		if err := idx.throttle(ctx); err != nil {
			idx.fail(passID, "incremental", err)
			span.RecordError(err)
			return err
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			idx.addDirectory(path, cache)
			continue
		}
		if !idx.discoverer.Accept(path) {
			continue
		}
		idx.refresh(path, cache)
	}

	idx.cache = cache
	idx.finish(passID, "incremental", start)
	return nil
}

// addDirectory indexes the accepted files below a created directory.
func (idx *WorkspaceIndex) addDirectory(dir string, cache map[string]*cachedFile) {
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if idx.discoverer.Accept(path) {
			idx.refresh(path, cache)
		}
		return nil
	})
}

func (idx *WorkspaceIndex) refresh(path string, cache map[string]*cachedFile) {
	content, err := os.ReadFile(path)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			idx.logger.Warn("failed to read file", "path", path, "error", err)
		}
		delete(cache, path)
		return
	}
	hash := util.ContentHash(content)
	if prev, ok := cache[path]; ok && prev.hash == hash {
		return
	}
	file, err := idx.parser.Parse(content, path)
	if err != nil {
		observability.ParseErrorsTotal.Inc()
		idx.logger.Warn("failed to parse file", "path", path, "error", err)
		delete(cache, path)
		return
	}
	cache[path] = &cachedFile{file: file, hash: hash}
}

func (idx *WorkspaceIndex) load(path string) (*cachedFile, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		idx.logger.Warn("failed to read file", "path", path, "error", err)
		return nil, false
	}
	file, err := idx.parser.Parse(content, path)
	if err != nil {
		observability.ParseErrorsTotal.Inc()
		idx.logger.Warn("failed to parse file", "path", path, "error", err)
		return nil, false
	}
	return &cachedFile{file: file, hash: util.ContentHash(content)}, true
}

func (idx *WorkspaceIndex) throttle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := idx.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}
	return nil
}

func (idx *WorkspaceIndex) begin() string {
	passID := uuid.NewString()
	idx.mu.Lock()
	idx.state = StateSyncing
	idx.mu.Unlock()
	idx.publish(Event{Kind: ports.SyncStart, PassID: passID})
	return passID
}

func (idx *WorkspaceIndex) fail(passID, kind string, err error) {
	idx.mu.Lock()
	idx.state = StateError
	idx.lastErr = err
	idx.mu.Unlock()
	observability.IndexPassesTotal.WithLabelValues(kind, "error").Inc()
	idx.logger.Error("index pass failed", "pass", passID, "error", err)
	idx.publish(Event{Kind: ports.SyncError, PassID: passID, Err: err})
}

// finish resolves the cache into a fresh snapshot and swaps it in.
func (idx *WorkspaceIndex) finish(passID, kind string, start time.Time) {
	files := make(map[string]*parser.File, len(idx.cache))
	for path, entry := range idx.cache {
		files[path] = entry.file
	}
	rows := newResolution(newLibraries(idx.root, idx.strip, files), files).infos()
	snap := newSnapshot(rows, len(files))

	idx.mu.Lock()
	idx.snap = snap
	idx.state = StateIdle
	idx.built = true
	idx.lastErr = nil
	idx.mu.Unlock()

	observability.IndexedFiles.Set(float64(len(files)))
	observability.IndexedDeclarations.Set(float64(len(rows)))
	observability.IndexPassDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	observability.IndexPassesTotal.WithLabelValues(kind, "success").Inc()
	idx.logger.Info("index pass finished",
		"pass", passID,
		"kind", kind,
		"files", len(files),
		"declarations", len(rows),
		"duration", time.Since(start),
		"heap_mb", util.HeapAllocMB(),
	)
	idx.publish(Event{Kind: ports.SyncFinish, PassID: passID, Files: len(files), Declarations: len(rows)})
}

// NotifyChanges feeds a watcher change set into the debounce scheduler.
func (idx *WorkspaceIndex) NotifyChanges(changes ChangeSet) {
	idx.sched.notify(changes)
}

// WaitIdle blocks until no scheduled pass is pending or running.
func (idx *WorkspaceIndex) WaitIdle() {
	idx.sched.waitIdle()
}

func (idx *WorkspaceIndex) runScheduled(changes ChangeSet) {
	// Failures are published as SyncError events.
	_ = idx.ReindexForChanges(idx.ctx, changes)
}

// Close stops scheduling and cancels a running pass between files.
func (idx *WorkspaceIndex) Close() error {
	idx.closeOne.Do(func() {
		idx.sched.close()
		idx.cancel()
		idx.subMu.Lock()
		idx.subs = make(map[int]func(Event))
		idx.subMu.Unlock()
	})
	return nil
}
