// # internal/engine/parser/pool_test.go
package parser

import (
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

func typescriptLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
}

func TestParserPool_GetPut(t *testing.T) {
	pool := NewParserPool(typescriptLanguage())

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if pool.Leased() != 1 {
		t.Fatalf("expected 1 leased parser, got %d", pool.Leased())
	}
	pool.Put(sp)
	if pool.Leased() != 0 {
		t.Fatalf("expected 0 leased parsers, got %d", pool.Leased())
	}

	// Put(nil) is a no-op.
	pool.Put(nil)
}

func TestParserPool_ParsesValidTypeScript(t *testing.T) {
	pool := NewParserPool(typescriptLanguage())

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse([]byte("export const answer: number = 42;\n"), nil)
	if tree == nil {
		t.Fatal("expected non-nil parse tree")
	}
	defer tree.Close()

	if root := tree.RootNode(); root == nil || root.HasError() {
		t.Fatal("expected error-free root node")
	}
}

func TestParserPool_LanguageSetAfterReset(t *testing.T) {
	pool := NewParserPool(typescriptLanguage())

	sp := pool.Get()
	sp.Reset()
	pool.Put(sp)

	sp2 := pool.Get()
	defer pool.Put(sp2)

	tree := sp2.Parse([]byte("interface Ok {}\n"), nil)
	if tree == nil {
		t.Fatal("parser should still parse after a reset")
	}
	defer tree.Close()
}

func TestParserPool_ConcurrentAccess(t *testing.T) {
	pool := NewParserPool(typescriptLanguage())

	const goroutines = 10
	const iters = 20
	src := []byte("function run(): void {}\n")

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				sp := pool.Get()
				tree := sp.Parse(src, nil)
				if tree == nil {
					t.Errorf("expected non-nil parse tree")
				} else {
					tree.Close()
				}
				pool.Put(sp)
			}
		}()
	}
	wg.Wait()
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]Language{
		"a.ts":      LangTypeScript,
		"a.d.ts":    LangTypeScript,
		"a.tsx":     LangTSX,
		"a.js":      LangJavaScript,
		"a.mjs":     LangJavaScript,
		"":          LangTypeScript,
		"README.md": LangTypeScript,
	}
	for path, want := range cases {
		if got := DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestTrimSourceExtension(t *testing.T) {
	cases := map[string]string{
		"src/a.ts":           "src/a",
		"types/index.d.ts":   "types/index",
		"view.tsx":           "view",
		"lib.js":             "lib",
		"notes.txt":          "notes.txt",
		"pkg/sub/file.d.mts": "pkg/sub/file",
	}
	for in, want := range cases {
		if got := TrimSourceExtension(in); got != want {
			t.Errorf("TrimSourceExtension(%q) = %q, want %q", in, got, want)
		}
	}
}
