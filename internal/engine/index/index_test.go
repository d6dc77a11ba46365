package index

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"autoimport/internal/core/config"
	"autoimport/internal/core/errors"
	"autoimport/internal/core/ports"
	"autoimport/internal/engine/parser"
	"autoimport/internal/engine/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newIndex(t *testing.T, root string, strip bool) *WorkspaceIndex {
	t.Helper()
	idx, err := New(Options{
		Root:               root,
		Index:              config.Index{WorkspaceIgnorePatterns: []string{"**/build/**"}, Debounce: 20 * time.Millisecond},
		StripTrailingIndex: strip,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func froms(infos []resolver.DeclarationInfo) []string {
	out := make([]string, 0, len(infos))
	for _, i := range infos {
		out = append(out, i.From)
	}
	sort.Strings(out)
	return out
}

func TestBarrelResolution(t *testing.T) {
	cases := []struct {
		name  string
		strip bool
		want  []string
	}{
		{name: "PhysicalFile", strip: false, want: []string{"/a"}},
		{name: "StripTrailingIndex", strip: true, want: []string{"/"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writeFiles(t, root, map[string]string{
				"a.ts":     "export class Foo {}\n",
				"index.ts": "export * from './a';\n",
			})
			idx := newIndex(t, root, tc.strip)
			require.NoError(t, idx.Rebuild(context.Background()))

			assert.Equal(t, tc.want, froms(idx.Lookup("Foo")))
		})
	}
}

func TestDuplicateNamesAreKept(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/a.ts": "export class Widget {}\n",
		"src/b.ts": "export class Widget {}\n",
	})
	idx := newIndex(t, root, false)
	require.NoError(t, idx.Rebuild(context.Background()))

	widgets := idx.Lookup("Widget")
	require.Len(t, widgets, 2)
	assert.Equal(t, []string{"/src/a", "/src/b"}, froms(widgets))
	for _, w := range widgets {
		assert.Equal(t, "Widget", w.Name())
	}
}

func TestAliasedReExport(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.ts": "export class Foo {}\n",
		"b.ts": "export { Foo as Bar } from './a';\n",
	})
	idx := newIndex(t, root, false)
	require.NoError(t, idx.Rebuild(context.Background()))

	assert.Equal(t, []string{"/a"}, froms(idx.Lookup("Foo")))
	assert.Equal(t, []string{"/b"}, froms(idx.Lookup("Bar")))
}

func TestDefaultExportIndexedAsDefault(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"widget.ts": "export default class Widget {}\n",
	})
	idx := newIndex(t, root, false)
	require.NoError(t, idx.Rebuild(context.Background()))

	rows := idx.Lookup("Widget")
	require.Len(t, rows, 1)
	assert.Equal(t, parser.KindDefault, rows[0].Declaration.Kind())
	assert.Equal(t, "/widget", rows[0].From)
}

func TestNodeModulesAndTypings(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json": `{
	// comments and trailing commas are tolerated
	"dependencies": { "lib": "^1.0.0", },
	"devDependencies": { "@types/node": "^20.0.0" },
}`,
		"node_modules/lib/package.json":       `{"name": "lib", "types": "./dist/index.d.ts"}`,
		"node_modules/lib/dist/index.d.ts":    "export * from './thing';\n",
		"node_modules/lib/dist/thing.d.ts":    "export declare class Thing {}\n",
		"node_modules/undeclared/index.d.ts":  "export declare class Nope {}\n",
		"node_modules/@types/node/index.d.ts": "declare module 'fs' { export function readFile(): void; }\n",
		"typings/custom.d.ts":                 "declare module 'legacy-lib' { export const legacy: number; }\n",
		"build/generated.ts":                  "export class Generated {}\n",
		"src/app.ts":                          "export const app = 1;\n",
	})
	idx := newIndex(t, root, false)
	require.NoError(t, idx.Rebuild(context.Background()))

	assert.Equal(t, []string{"lib"}, froms(idx.Lookup("Thing")))
	assert.Empty(t, idx.Lookup("Nope"), "undeclared dependencies are not indexed")
	assert.Empty(t, idx.Lookup("Generated"), "ignored workspace folders are not indexed")
	assert.Equal(t, []string{"/src/app"}, froms(idx.Lookup("app")))

	assert.Equal(t, []string{"fs"}, froms(idx.Lookup("readFile")))
	fsModule := idx.Lookup("fs")
	require.Len(t, fsModule, 1)
	mod, ok := fsModule[0].Declaration.(*parser.ModuleDeclaration)
	require.True(t, ok)
	assert.True(t, mod.Ambient)

	assert.Equal(t, []string{"legacy-lib"}, froms(idx.Lookup("legacy")))
	assert.Equal(t, []string{"legacy-lib"}, froms(idx.Lookup("legacyLib")))
}

func TestParseErrorsSkipFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"broken.ts": "export class {\n",
		"ok.ts":     "export function ok() {}\n",
	})
	idx := newIndex(t, root, false)
	require.NoError(t, idx.Rebuild(context.Background()))

	assert.Equal(t, []string{"/ok"}, froms(idx.Lookup("ok")))
	assert.Equal(t, 1, idx.Files())
	assert.True(t, idx.Ready())
}

func TestRebuildMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	idx := newIndex(t, root, false)

	var mu sync.Mutex
	var events []Event
	idx.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	err := idx.Rebuild(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIndexBuildError))
	assert.Equal(t, StateError, idx.State())
	assert.False(t, idx.Ready())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, ports.SyncStart, events[0].Kind)
	assert.Equal(t, ports.SyncError, events[1].Kind)
	assert.Equal(t, events[0].PassID, events[1].PassID)
	assert.Error(t, events[1].Err)
}

func TestLifecycleEvents(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.ts": "export const a = 1;\n"})
	idx := newIndex(t, root, false)
	assert.False(t, idx.Ready())

	var events []Event
	unsubscribe := idx.Subscribe(func(ev Event) { events = append(events, ev) })
	require.NoError(t, idx.Rebuild(context.Background()))
	unsubscribe()
	require.NoError(t, idx.Rebuild(context.Background()))

	require.Len(t, events, 2)
	assert.Equal(t, ports.SyncStart, events[0].Kind)
	assert.Equal(t, ports.SyncFinish, events[1].Kind)
	assert.NotEmpty(t, events[0].PassID)
	assert.Equal(t, events[0].PassID, events[1].PassID)
	assert.Equal(t, 1, events[1].Declarations)
	assert.True(t, idx.Ready())
	assert.Equal(t, StateIdle, idx.State())
}

func TestReindexForChanges(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.ts":         "export class A {}\n",
		"lib/b.ts":     "export class B {}\n",
		"lib/deep/c.ts": "export class C {}\n",
	})
	idx := newIndex(t, root, false)
	ctx := context.Background()
	require.NoError(t, idx.Rebuild(ctx))
	require.Len(t, idx.Lookup("C"), 1)

	writeFiles(t, root, map[string]string{
		"a.ts":   "export class A {}\nexport class Extra {}\n",
		"new.ts": "export const created = true;\n",
	})
	require.NoError(t, idx.ReindexForChanges(ctx, ChangeSet{
		Created: []string{filepath.Join(root, "new.ts")},
		Updated: []string{filepath.Join(root, "a.ts")},
	}))
	assert.Equal(t, []string{"/a"}, froms(idx.Lookup("Extra")))
	assert.Equal(t, []string{"/new"}, froms(idx.Lookup("created")))

	require.NoError(t, os.RemoveAll(filepath.Join(root, "lib")))
	require.NoError(t, idx.ReindexForChanges(ctx, ChangeSet{Deleted: []string{filepath.Join(root, "lib")}}))
	assert.Empty(t, idx.Lookup("B"))
	assert.Empty(t, idx.Lookup("C"))
	assert.Len(t, idx.Lookup("A"), 1)
	assert.Equal(t, 2, idx.Files())
}

func TestReindexSkipsUnchangedContent(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.ts": "export class A {}\n"})

	counting := &countingParser{inner: parser.NewParser(nil)}
	idx, err := New(Options{Root: root, Parser: counting})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	ctx := context.Background()
	require.NoError(t, idx.Rebuild(ctx))
	require.NoError(t, idx.ReindexForChanges(ctx, ChangeSet{Updated: []string{filepath.Join(root, "a.ts")}}))
	assert.Equal(t, 1, counting.calls)

	writeFiles(t, root, map[string]string{"a.ts": "export class A2 {}\n"})
	require.NoError(t, idx.ReindexForChanges(ctx, ChangeSet{Updated: []string{filepath.Join(root, "a.ts")}}))
	assert.Equal(t, 2, counting.calls)
	assert.Len(t, idx.Lookup("A2"), 1)
}

func TestNotifyChangesDebounced(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.ts": "export class A {}\n"})
	idx := newIndex(t, root, false)
	require.NoError(t, idx.Rebuild(context.Background()))

	var passes int
	var mu sync.Mutex
	idx.Subscribe(func(ev Event) {
		if ev.Kind == ports.SyncFinish {
			mu.Lock()
			passes++
			mu.Unlock()
		}
	})

	path := filepath.Join(root, "b.ts")
	writeFiles(t, root, map[string]string{"b.ts": "export class B {}\n"})
	idx.NotifyChanges(ChangeSet{Created: []string{path}})
	idx.NotifyChanges(ChangeSet{Updated: []string{path}})
	idx.NotifyChanges(ChangeSet{Updated: []string{path}})
	idx.WaitIdle()

	mu.Lock()
	assert.Equal(t, 1, passes)
	mu.Unlock()
	assert.Equal(t, []string{"/b"}, froms(idx.Lookup("B")))
}

func TestCancelledBuild(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.ts": "export class A {}\n"})
	idx := newIndex(t, root, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := idx.BuildIndex(ctx, []string{filepath.Join(root, "a.ts")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateError, idx.State())
}

type countingParser struct {
	mu    sync.Mutex
	calls int
	inner ports.SourceParser
}

func (c *countingParser) Parse(source []byte, path string) (*parser.File, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Parse(source, path)
}
