// # internal/engine/parser/parser.go
package parser

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"autoimport/internal/core/errors"
	"autoimport/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Parser turns TypeScript and JavaScript source text into Resource trees.
// It never reads the filesystem; callers supply the text.
type Parser struct {
	loader *GrammarLoader
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{loader: NewGrammarLoader(), logger: logger}
}

// Parse builds the Resource tree of one file. The grammar is chosen from the
// path extension. Malformed input fails with a PARSE_ERROR domain error that
// wraps a *errors.SyntaxError.
func (p *Parser) Parse(source []byte, path string) (*File, error) {
	start := time.Now()
	lang := DetectLanguage(path)

	if !utf8.Valid(source) {
		return nil, errors.NewParseError(path, invalidUTF8(source))
	}

	pool := p.loader.Pool(lang)
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, errors.NewParseError(path, fmt.Errorf("tree-sitter returned no tree for %s", lang))
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, errors.NewParseError(path, firstSyntaxError(root, source))
	}

	x := &extractor{src: source, path: path}
	file := &File{Path: path}
	file.Resource = *x.resource(ResourceFile, "", root, false)

	observability.ParsingDuration.WithLabelValues(string(lang)).Observe(time.Since(start).Seconds())
	p.logger.Debug("parsed source", "path", path, "declarations", len(file.Declarations), "imports", len(file.Imports))
	return file, nil
}

func invalidUTF8(source []byte) *errors.SyntaxError {
	line, col := 1, 1
	for i := 0; i < len(source); {
		r, size := utf8.DecodeRune(source[i:])
		if r == utf8.RuneError && size <= 1 {
			return &errors.SyntaxError{Line: line, Column: col, Snippet: "invalid UTF-8"}
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i += size
	}
	return &errors.SyntaxError{Line: line, Column: col, Snippet: "invalid UTF-8"}
}

// firstSyntaxError finds the left-most ERROR or MISSING node.
func firstSyntaxError(root *sitter.Node, source []byte) *errors.SyntaxError {
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil || n == nil {
			return
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return
		}
		if !n.HasError() {
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	if found == nil {
		found = root
	}

	pos := found.StartPosition()
	snippet := found.Utf8Text(source)
	if found.IsMissing() {
		snippet = "missing " + found.Kind()
	}
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	return &errors.SyntaxError{Line: int(pos.Row) + 1, Column: int(pos.Column) + 1, Snippet: snippet}
}
