package imports

import (
	"testing"

	"autoimport/internal/core/config"
	"autoimport/internal/core/errors"
	"autoimport/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func libraries(imps []parser.Import) []string {
	out := make([]string, 0, len(imps))
	for _, imp := range imps {
		out = append(out, imp.LibraryName())
	}
	return out
}

func TestParseGroups(t *testing.T) {
	groups, err := ParseGroups([]config.ImportGroup{
		{Identifier: "Modules"},
		{Identifier: `/^@app\//`, Order: "desc"},
		{Identifier: "workspace"},
	}, Sorting{})
	require.NoError(t, err)
	require.Len(t, groups, 4)

	assert.IsType(t, &KeywordGroup{}, groups[0])
	regex, ok := groups[1].(*RegexGroup)
	require.True(t, ok)
	assert.Equal(t, OrderDesc, regex.Order())
	assert.Equal(t, KeywordWorkspace, groups[2].(*KeywordGroup).Keyword)
	assert.IsType(t, &RemainingGroup{}, groups[3])
}

func TestParseGroupsInvalid(t *testing.T) {
	cases := map[string][]config.ImportGroup{
		"UnknownKeyword":   {{Identifier: "Vendors"}},
		"BadRegex":         {{Identifier: "/([a-z/"}},
		"DuplicateRemains": {{Identifier: "Remaining"}, {Identifier: "Remaining"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGroups(cfg, Sorting{})
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeGroupIdentifierInvalid))
		})
	}
}

func TestRegexGroupsTakePrecedence(t *testing.T) {
	groups, err := ParseGroups([]config.ImportGroup{
		{Identifier: "Plains"},
		{Identifier: "Modules"},
		{Identifier: `/^@app\//`},
		{Identifier: "Workspace"},
	}, Sorting{})
	require.NoError(t, err)

	for _, imp := range []parser.Import{
		&parser.NamedImport{Library: "@app/core", Specifiers: []parser.Specifier{{Name: "Core"}}},
		&parser.NamedImport{Library: "lodash", Specifiers: []parser.Specifier{{Name: "map"}}},
		&parser.StringImport{Library: "polyfill"},
		&parser.NamedImport{Library: "./local", Specifiers: []parser.Specifier{{Name: "x"}}},
	} {
		groups.Assign(imp)
	}

	assert.Equal(t, []string{"polyfill"}, libraries(groups[0].SortedImports()))
	assert.Equal(t, []string{"lodash"}, libraries(groups[1].SortedImports()))
	assert.Equal(t, []string{"@app/core"}, libraries(groups[2].SortedImports()))
	assert.Equal(t, []string{"./local"}, libraries(groups[3].SortedImports()))
	assert.Empty(t, groups[4].SortedImports())

	groups.Reset()
	assert.Empty(t, groups.Ordered())
}

func TestKeywordGroupsLeaveStringImports(t *testing.T) {
	groups, err := ParseGroups([]config.ImportGroup{{Identifier: "Modules"}, {Identifier: "Workspace"}}, Sorting{})
	require.NoError(t, err)

	groups.Assign(&parser.StringImport{Library: "./styles.css"})
	groups.Assign(&parser.StringImport{Library: "zone.js"})

	assert.Empty(t, groups[0].SortedImports())
	assert.Empty(t, groups[1].SortedImports())
	assert.Equal(t, []string{"./styles.css", "zone.js"}, libraries(groups[2].SortedImports()))
}

func TestSortImports(t *testing.T) {
	imps := []parser.Import{
		&parser.NamedImport{Library: "b-lib", Specifiers: []parser.Specifier{{Name: "zeta"}}},
		&parser.NamespaceImport{Library: "A-lib", Alias: "omega"},
		&parser.StringImport{Library: "z-side"},
		&parser.NamedImport{Library: "c-lib", DefaultAlias: "Alpha"},
		&parser.StringImport{Library: "a/side"},
	}

	assert.Equal(t, []string{"a/side", "z-side", "A-lib", "b-lib", "c-lib"}, libraries(SortImports(imps, OrderAsc, false)))
	assert.Equal(t, []string{"z-side", "a/side", "c-lib", "b-lib", "A-lib"}, libraries(SortImports(imps, OrderDesc, false)))
	// First specifier order: Alpha, omega, zeta; strings by base name.
	assert.Equal(t, []string{"a/side", "z-side", "c-lib", "A-lib", "b-lib"}, libraries(SortImports(imps, OrderAsc, true)))

	assert.Equal(t, "b-lib", imps[0].LibraryName(), "input is not reordered")
}

func TestRenderGroups(t *testing.T) {
	groups := DefaultGroups(Sorting{})
	groups.Assign(&parser.NamedImport{Library: "./b", Specifiers: []parser.Specifier{{Name: "b"}}})
	groups.Assign(&parser.NamedImport{Library: "./a", Specifiers: []parser.Specifier{{Name: "a"}}})
	groups.Assign(&parser.StringImport{Library: "side"})

	gen := NewGenerator(config.DefaultConfig().Imports)
	assert.Equal(t, "import 'side';\n\nimport { a } from './a';\nimport { b } from './b';", groups.Render(gen))

	unsorted := DefaultGroups(Sorting{Disabled: true})
	unsorted.Assign(&parser.NamedImport{Library: "./b", Specifiers: []parser.Specifier{{Name: "b"}}})
	unsorted.Assign(&parser.NamedImport{Library: "./a", Specifiers: []parser.Specifier{{Name: "a"}}})
	assert.Equal(t, "import { b } from './b';\nimport { a } from './a';", unsorted.Render(gen))
}
