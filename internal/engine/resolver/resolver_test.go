package resolver

import (
	"path/filepath"
	"testing"

	"autoimport/internal/engine/parser"

	"github.com/stretchr/testify/assert"
)

var root = filepath.FromSlash("/ws")

func doc(rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func info(name, from string) DeclarationInfo {
	return DeclarationInfo{
		Declaration: &parser.ClassDeclaration{DeclarationBase: parser.DeclarationBase{Identifier: name, IsExported: true}},
		From:        from,
	}
}

func names(infos []DeclarationInfo) []string {
	out := make([]string, 0, len(infos))
	for _, i := range infos {
		out = append(out, i.Name()+"@"+i.From)
	}
	return out
}

func TestAbsoluteLibraryName(t *testing.T) {
	cases := []struct {
		name     string
		library  string
		document string
		want     string
	}{
		{name: "Sibling", library: "./bar", document: "src/foo.ts", want: "/src/bar"},
		{name: "Parent", library: "../lib/util", document: "src/app/foo.ts", want: "/src/lib/util"},
		{name: "Directory", library: ".", document: "src/foo.ts", want: "/src"},
		{name: "RootDirectory", library: "..", document: "src/foo.ts", want: "/"},
		{name: "ExtensionStripped", library: "./bar.js", document: "src/foo.ts", want: "/src/bar"},
		{name: "NodeModule", library: "@angular/core", document: "src/foo.ts", want: "@angular/core"},
		{name: "AlreadyAbsolute", library: "/src/bar", document: "src/foo.ts", want: "/src/bar"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AbsoluteLibraryName(tc.library, doc(tc.document), root))
		})
	}
}

func TestRelativeLibraryName(t *testing.T) {
	cases := []struct {
		name     string
		from     string
		document string
		want     string
	}{
		{name: "Sibling", from: "/src/bar", document: "src/foo.ts", want: "./bar"},
		{name: "Nested", from: "/src/lib/bar", document: "src/foo.ts", want: "./lib/bar"},
		{name: "Parent", from: "/lib/bar", document: "src/app/foo.ts", want: "../../lib/bar"},
		{name: "RootBarrel", from: "/", document: "src/foo.ts", want: ".."},
		{name: "NodeModule", from: "lodash", document: "src/foo.ts", want: "lodash"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RelativeLibraryName(tc.from, doc(tc.document), root))
		})
	}
}

func TestRelativeAbsoluteRoundTrip(t *testing.T) {
	document := doc("src/features/page.ts")
	for _, from := range []string{"/src/a", "/src/features/b", "/lib/deep/c"} {
		rel := RelativeLibraryName(from, document, root)
		assert.Equal(t, from, AbsoluteLibraryName(rel, document, root), rel)
	}
}

func TestStripTrailingIndex(t *testing.T) {
	assert.Equal(t, "/", StripTrailingIndex("/index"))
	assert.Equal(t, "/src/models", StripTrailingIndex("/src/models/index"))
	assert.Equal(t, "../models", StripTrailingIndex("../models/index"))
	assert.Equal(t, ".", StripTrailingIndex("./index"))
	assert.Equal(t, "/src/indexer", StripTrailingIndex("/src/indexer"))
	assert.True(t, SameLibrary("/x/index", "/x"))
	assert.False(t, SameLibrary("/x", "/y"))
}

func TestDocumentLibrary(t *testing.T) {
	assert.Equal(t, "/src/app", DocumentLibrary(doc("src/app.ts"), root))
	assert.Equal(t, "/types/global", DocumentLibrary(doc("types/global.d.ts"), root))
}

func TestFilter(t *testing.T) {
	infos := []DeclarationInfo{
		info("Bar", "/src/bar"),
		info("Baz", "/src/bar"),
		info("Bar", "/src/other"),
		info("Def", "/src/def"),
		info("Map", "immutable"),
		info("List", "immutable"),
		info("Thing", "/src/things"),
		info("Sep", "/src/sep"),
	}
	imports := []parser.Import{
		&parser.NamedImport{Library: "./bar", Specifiers: []parser.Specifier{{Name: "Bar"}}},
		&parser.NamedImport{Library: "./def", DefaultAlias: "Def"},
		&parser.NamespaceImport{Library: "immutable", Alias: "Immutable"},
		&parser.NamedImport{Library: "./things/index", Specifiers: []parser.Specifier{{Name: "Thing", Alias: "T"}}},
		&parser.StringImport{Library: "./sep"},
	}
	original := parser.CloneImports(imports)

	got := Filter(infos, doc("src/main.ts"), imports, root)

	assert.Equal(t, []string{"Baz@/src/bar", "Bar@/src/other", "Sep@/src/sep"}, names(got))
	assert.Equal(t, original, imports, "imports must not be modified")
}

func TestFilterExternalModuleImport(t *testing.T) {
	infos := []DeclarationInfo{info("readFile", "fs"), info("join", "path")}
	imports := []parser.Import{&parser.ExternalModuleImport{Library: "fs", Alias: "fs"}}

	got := Filter(infos, doc("main.ts"), imports, root)
	assert.Equal(t, []string{"join@path"}, names(got))
}

func TestFilterForDocument(t *testing.T) {
	file := &parser.File{
		Path: doc("src/widget.ts"),
		Resource: parser.Resource{
			Declarations: []parser.Declaration{
				&parser.ClassDeclaration{DeclarationBase: parser.DeclarationBase{Identifier: "Local"}},
			},
		},
	}
	infos := []DeclarationInfo{
		info("Widget", "/src/widget"),
		info("Local", "/src/elsewhere"),
		info("Other", "/src/other"),
	}

	got := FilterForDocument(infos, file, root)
	assert.Equal(t, []string{"Other@/src/other"}, names(got))
}
