package imports

import (
	"strings"
	"testing"

	"autoimport/internal/core/config"
	"autoimport/internal/core/ports"
	"autoimport/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestGenerate(t *testing.T) {
	gen := NewGenerator(config.DefaultConfig().Imports)

	cases := []struct {
		name string
		imp  parser.Import
		want string
	}{
		{"String", &parser.StringImport{Library: "zone.js"}, "import 'zone.js';"},
		{"Named", &parser.NamedImport{Library: "./a", Specifiers: []parser.Specifier{{Name: "a"}, {Name: "b", Alias: "c"}}}, "import { a, b as c } from './a';"},
		{"DefaultOnly", &parser.NamedImport{Library: "./lib", DefaultAlias: "Foo"}, "import Foo from './lib';"},
		{"DefaultAndNamed", &parser.NamedImport{Library: "react", DefaultAlias: "React", Specifiers: []parser.Specifier{{Name: "useState"}}}, "import React, { useState } from 'react';"},
		{"TypeOnly", &parser.NamedImport{Library: "./types", TypeOnly: true, Specifiers: []parser.Specifier{{Name: "T"}}}, "import type { T } from './types';"},
		{"TypeSpecifier", &parser.NamedImport{Library: "./types", Specifiers: []parser.Specifier{{Name: "T", TypeOnly: true}, {Name: "v"}}}, "import { type T, v } from './types';"},
		{"Namespace", &parser.NamespaceImport{Library: "fs", Alias: "fs"}, "import * as fs from 'fs';"},
		{"NamespaceWithDefault", &parser.NamespaceImport{Library: "lib", Alias: "all", DefaultAlias: "lib"}, "import lib, * as all from 'lib';"},
		{"ExternalModule", &parser.ExternalModuleImport{Library: "legacy", Alias: "legacy"}, "import legacy = require('legacy');"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, gen.Generate(tc.imp))
		})
	}
}

func TestGenerateFormattingOptions(t *testing.T) {
	cfg := config.DefaultConfig().Imports
	cfg.StringQuoteStyle = `"`
	cfg.InsertSemicolons = boolPtr(false)
	cfg.InsertSpaceBeforeAndAfterBraces = boolPtr(false)
	gen := NewGenerator(cfg)

	imp := &parser.NamedImport{Library: "./a", Specifiers: []parser.Specifier{{Name: "a"}}}
	assert.Equal(t, `import {a} from "./a"`, gen.Generate(imp))
}

func TestGenerateMultiLine(t *testing.T) {
	cfg := config.DefaultConfig().Imports
	cfg.MultiLineWrapThreshold = 40
	imp := &parser.NamedImport{Library: "./components", Specifiers: []parser.Specifier{{Name: "Button"}, {Name: "Dialog"}, {Name: "Tooltip"}}}

	gen := NewGenerator(cfg)
	assert.Equal(t, "import {\n    Button,\n    Dialog,\n    Tooltip,\n} from './components';", gen.Generate(imp))

	cfg.MultiLineTrailingComma = boolPtr(false)
	cfg.InsertSpaces = boolPtr(false)
	gen = NewGenerator(cfg)
	assert.Equal(t, "import {\n\tButton,\n\tDialog,\n\tTooltip\n} from './components';", gen.Generate(imp))

	cfg.MultiLineWrapThreshold = 0
	gen = NewGenerator(cfg)
	assert.Equal(t, "import { Button, Dialog, Tooltip } from './components';", gen.Generate(imp))
}

func TestApplyEdits(t *testing.T) {
	text := "line one\nline two\nline three\n"

	out, err := ApplyEdits(text, []ports.TextEdit{
		{Start: 9, End: 18, NewText: ""},
		{Start: 0, End: 0, NewText: "head\n"},
		{Start: 9, End: 9, NewText: "inserted\n"},
	})
	require.NoError(t, err)
	assert.Equal(t, "head\nline one\ninserted\nline three\n", out)

	out, err = ApplyEdits(text, nil)
	require.NoError(t, err)
	assert.Equal(t, text, out)

	_, err = ApplyEdits(text, []ports.TextEdit{{Start: 0, End: 5}, {Start: 3, End: 8}})
	assert.Error(t, err)

	_, err = ApplyEdits(text, []ports.TextEdit{{Start: 5, End: 500}})
	assert.Error(t, err)
}

func TestInsertionPoint(t *testing.T) {
	cases := map[string]struct {
		text string
		want int
	}{
		"Empty":        {"", 0},
		"Code":         {"const a = 1;\n", 0},
		"Shebang":      {"#!/usr/bin/env node\nrun();\n", 20},
		"UseStrict":    {"\"use strict\";\n\nrun();\n", 15},
		"OnlyComments": {"// a\n/* b */\n", 13},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, insertionPoint(tc.text))
		})
	}
}

func TestImportSpan(t *testing.T) {
	cases := map[string]struct {
		text      string
		statement string
		wantStart int
		wantEnd   int
		wantWhole bool
	}{
		"OwnLine":         {"a();\nimport { A } from './a';\nb();\n", "import { A } from './a';", 5, 30, true},
		"TrailingComment": {"import { A } from './a'; // keep\nb();\n", "import { A } from './a';", 0, 33, true},
		"TrailingCode":    {"import { A } from './a';  b();\n", "import { A } from './a';", 0, 26, false},
		"LeadingCode":     {"b(); import { A } from './a';\n", "import { A } from './a';", 4, 29, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			start := strings.Index(tc.text, tc.statement)
			require.GreaterOrEqual(t, start, 0)
			r := parser.TextRange{Start: start, End: start + len(tc.statement)}

			gotStart, gotEnd, whole := importSpan(tc.text, r)
			assert.Equal(t, tc.wantStart, gotStart)
			assert.Equal(t, tc.wantEnd, gotEnd)
			assert.Equal(t, tc.wantWhole, whole)
		})
	}
}
