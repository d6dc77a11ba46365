// # internal/engine/parser/loader.go
package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

type Language string

const (
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangJavaScript Language = "javascript"
)

var (
	typeScriptExtensions = []string{".ts", ".tsx", ".mts", ".cts"}
	javaScriptExtensions = []string{".js", ".jsx", ".mjs", ".cjs"}
)

// GrammarLoader owns the compiled tree-sitter grammars and one parser pool per grammar.
type GrammarLoader struct {
	languages map[Language]*sitter.Language
	pools     map[Language]*ParserPool
}

func NewGrammarLoader() *GrammarLoader {
	gl := &GrammarLoader{
		languages: map[Language]*sitter.Language{
			LangTypeScript: sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			LangTSX:        sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
			LangJavaScript: sitter.NewLanguage(tree_sitter_javascript.Language()),
		},
		pools: make(map[Language]*ParserPool),
	}
	for lang, grammar := range gl.languages {
		gl.pools[lang] = NewParserPool(grammar)
	}
	return gl
}

func (gl *GrammarLoader) Grammar(lang Language) *sitter.Language {
	return gl.languages[lang]
}

func (gl *GrammarLoader) Pool(lang Language) *ParserPool {
	return gl.pools[lang]
}

// DetectLanguage picks the grammar for a path. Unknown and empty paths parse as TypeScript.
func DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".tsx":
		return LangTSX
	case ".js", ".jsx", ".mjs", ".cjs":
		// The JavaScript grammar accepts JSX.
		return LangJavaScript
	default:
		return LangTypeScript
	}
}

// IsDeclarationFile reports whether path is a `.d.ts` style declaration file.
func IsDeclarationFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(base, ".d.ts") || strings.HasSuffix(base, ".d.mts") || strings.HasSuffix(base, ".d.cts")
}

// SourceExtensions lists the file extensions that can be indexed.
func SourceExtensions(includeJavaScript bool) []string {
	out := append([]string(nil), typeScriptExtensions...)
	if includeJavaScript {
		out = append(out, javaScriptExtensions...)
	}
	return out
}

// IsSourcePath reports whether path has one of the indexable extensions.
func IsSourcePath(path string, includeJavaScript bool) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range SourceExtensions(includeJavaScript) {
		if ext == candidate {
			return true
		}
	}
	return false
}

// TrimSourceExtension strips `.d.ts`, `.ts`, `.tsx` and the JavaScript extensions.
func TrimSourceExtension(path string) string {
	lower := strings.ToLower(path)
	for _, suffix := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(lower, suffix) {
			return path[:len(path)-len(suffix)]
		}
	}
	ext := filepath.Ext(path)
	if IsSourcePath(path, true) {
		return path[:len(path)-len(ext)]
	}
	return path
}
