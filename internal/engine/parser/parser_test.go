package parser

import (
	"testing"

	"autoimport/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, path, src string) *File {
	t.Helper()
	file, err := NewParser(nil).Parse([]byte(src), path)
	require.NoError(t, err)
	return file
}

func findDeclaration(decls []Declaration, name string) Declaration {
	for _, d := range decls {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

func TestParseImports(t *testing.T) {
	src := `import 'reflect-metadata';
import Default, { A, B as C } from './lib';
import * as ns from 'ns-lib';
import fs = require('fs');
import type { T } from './types';
`
	file := parse(t, "src/main.ts", src)
	require.Len(t, file.Imports, 5)

	str, ok := file.Imports[0].(*StringImport)
	require.True(t, ok)
	assert.Equal(t, "reflect-metadata", str.Library)
	require.NotNil(t, str.Range)
	assert.Equal(t, 0, str.Range.Start)

	named, ok := file.Imports[1].(*NamedImport)
	require.True(t, ok)
	assert.Equal(t, "./lib", named.Library)
	assert.Equal(t, "Default", named.DefaultAlias)
	assert.Equal(t, []Specifier{{Name: "A"}, {Name: "B", Alias: "C"}}, named.Specifiers)

	nsImport, ok := file.Imports[2].(*NamespaceImport)
	require.True(t, ok)
	assert.Equal(t, "ns-lib", nsImport.Library)
	assert.Equal(t, "ns", nsImport.Alias)

	ext, ok := file.Imports[3].(*ExternalModuleImport)
	require.True(t, ok)
	assert.Equal(t, "fs", ext.Library)
	assert.Equal(t, "fs", ext.Alias)

	typeOnly, ok := file.Imports[4].(*NamedImport)
	require.True(t, ok)
	assert.True(t, typeOnly.TypeOnly)
}

func TestParseDeclarations(t *testing.T) {
	src := `export class Foo {
	private a: string;
	constructor(public b: number) {}
	method(x: string): void {}
}
export abstract class Base {}
export function fn(a: string, { b, c }: Opts, ...rest: any[]): number { return 1; }
export interface I { p: string; m(): void; }
export enum E { A, B = 2 }
export type Alias = string;
export const x = 1, [y, z] = arr;
let notExported = 2;
export namespace NS { export const inner = 1; }
declare module 'ambient-lib' { export function amb(): void; }
`
	file := parse(t, "src/decls.ts", src)

	foo, ok := findDeclaration(file.Declarations, "Foo").(*ClassDeclaration)
	require.True(t, ok)
	assert.True(t, foo.Exported())
	require.Len(t, foo.Properties, 2)
	assert.Equal(t, "a", foo.Properties[0].Name)
	assert.Equal(t, Private, foo.Properties[0].Visibility)
	assert.Equal(t, "b", foo.Properties[1].Name)
	require.NotNil(t, foo.Constructor)
	require.Len(t, foo.Constructor.Parameters, 1)
	require.Len(t, foo.Methods, 1)
	assert.Equal(t, "method", foo.Methods[0].Name)
	assert.Equal(t, "void", foo.Methods[0].ReturnType)

	base, ok := findDeclaration(file.Declarations, "Base").(*ClassDeclaration)
	require.True(t, ok)
	assert.True(t, base.Abstract)

	fn, ok := findDeclaration(file.Declarations, "fn").(*FunctionDeclaration)
	require.True(t, ok)
	require.Len(t, fn.Parameters, 4)
	assert.Equal(t, []string{"a", "b", "c", "rest"}, []string{fn.Parameters[0].Name(), fn.Parameters[1].Name(), fn.Parameters[2].Name(), fn.Parameters[3].Name()})
	assert.True(t, fn.Parameters[3].Rest)
	assert.Equal(t, "number", fn.ReturnType)

	iface, ok := findDeclaration(file.Declarations, "I").(*InterfaceDeclaration)
	require.True(t, ok)
	assert.Len(t, iface.Properties, 1)
	assert.Len(t, iface.Methods, 1)

	enum, ok := findDeclaration(file.Declarations, "E").(*EnumDeclaration)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, enum.Members)

	assert.Equal(t, KindTypeAlias, findDeclaration(file.Declarations, "Alias").Kind())

	for _, name := range []string{"x", "y", "z"} {
		v, ok := findDeclaration(file.Declarations, name).(*VariableDeclaration)
		require.True(t, ok, name)
		assert.True(t, v.Const, name)
		assert.True(t, v.Exported(), name)
	}
	local, ok := findDeclaration(file.Declarations, "notExported").(*VariableDeclaration)
	require.True(t, ok)
	assert.False(t, local.Const)
	assert.False(t, local.Exported())

	ns, ok := findDeclaration(file.Declarations, "NS").(*ModuleDeclaration)
	require.True(t, ok)
	assert.True(t, ns.Exported())
	assert.False(t, ns.Ambient)
	inner := findDeclaration(ns.Declarations(), "inner")
	require.NotNil(t, inner)
	assert.True(t, inner.Exported())

	ambient, ok := findDeclaration(file.Declarations, "ambient-lib").(*ModuleDeclaration)
	require.True(t, ok)
	assert.True(t, ambient.Ambient)
	amb := findDeclaration(ambient.Declarations(), "amb")
	require.NotNil(t, amb)
	assert.True(t, amb.Exported())

	assert.Len(t, file.Resources, 2)
}

func TestParseExports(t *testing.T) {
	src := `export * from './a';
export * as utils from './utils';
export { b, c as d } from './b';
const local = 1;
export { local, local as renamedLocal };
export default local;
`
	file := parse(t, "src/index.ts", src)
	require.Len(t, file.Exports, 3)

	all, ok := file.Exports[0].(*AllExport)
	require.True(t, ok)
	assert.Equal(t, "./a", all.From)
	assert.Empty(t, all.Alias)

	nsAll, ok := file.Exports[1].(*AllExport)
	require.True(t, ok)
	assert.Equal(t, "utils", nsAll.Alias)

	named, ok := file.Exports[2].(*NamedExport)
	require.True(t, ok)
	assert.Equal(t, "./b", named.From)
	assert.Equal(t, []Specifier{{Name: "b"}, {Name: "c", Alias: "d"}}, named.Specifiers)

	local := findDeclaration(file.Declarations, "local")
	require.NotNil(t, local)
	assert.True(t, local.Exported())

	renamedLocal := findDeclaration(file.Declarations, "renamedLocal")
	require.NotNil(t, renamedLocal)
	assert.Equal(t, KindVariable, renamedLocal.Kind())

	var def Declaration
	for _, d := range file.Declarations {
		if d.Kind() == KindDefault {
			def = d
		}
	}
	require.NotNil(t, def)
	assert.Equal(t, "local", def.Name())

	assert.Contains(t, file.Usages, "local")
}

func TestParseReExportOfImportedBinding(t *testing.T) {
	file := parse(t, "src/index.ts", "import { Thing } from './thing';\nexport { Thing as Renamed };\n")
	require.Len(t, file.Exports, 1)
	named, ok := file.Exports[0].(*NamedExport)
	require.True(t, ok)
	assert.Equal(t, "./thing", named.From)
	assert.Equal(t, []Specifier{{Name: "Thing", Alias: "Renamed"}}, named.Specifiers)
}

func TestParseAssignedExport(t *testing.T) {
	file := parse(t, "typings/lib.d.ts", "declare class Lib {}\nexport = Lib;\n")
	require.Len(t, file.Exports, 1)
	assigned, ok := file.Exports[0].(*AssignedExport)
	require.True(t, ok)
	assert.Equal(t, "Lib", assigned.Identifier)

	exported := assigned.Exported(&file.Resource)
	require.Len(t, exported, 1)
	assert.Equal(t, KindClass, exported[0].Kind())
}

func TestParseDefaultExports(t *testing.T) {
	file := parse(t, "src/widget.ts", "export default class Widget {}\n")
	class := findDeclaration(file.Declarations, "Widget")
	require.NotNil(t, class)

	var sawClass, sawDefault bool
	for _, d := range file.Declarations {
		switch d.Kind() {
		case KindClass:
			sawClass = true
			assert.False(t, d.Exported(), "default class is only importable as default")
		case KindDefault:
			sawDefault = true
			assert.Equal(t, "Widget", d.Name())
		}
	}
	assert.True(t, sawClass)
	assert.True(t, sawDefault)

	anon := parse(t, "src/my-widget.ts", "export default function () { return 1; }\n")
	require.Len(t, anon.Declarations, 1)
	assert.Equal(t, KindDefault, anon.Declarations[0].Kind())
	assert.Equal(t, "myWidget", anon.Declarations[0].Name())
}

func TestUsages(t *testing.T) {
	src := `import { Used, Unused } from './lib';
import * as ns from 'ns';
const value: Used = ns.create();
function local(param: string) { return helper.run(param); }
`
	file := parse(t, "src/usage.ts", src)
	usages := file.NonLocalUsages()

	assert.Contains(t, usages, "Used")
	assert.Contains(t, usages, "ns")
	assert.Contains(t, usages, "helper")
	for _, absent := range []string{"Unused", "value", "local", "create", "run"} {
		assert.NotContains(t, usages, absent)
	}
}

func TestUsagesFirstOccurrenceOrder(t *testing.T) {
	file := parse(t, "src/order.ts", "a();\nb();\na();\n")
	assert.Equal(t, []string{"a", "b"}, file.Usages)
}

func TestUsagesQualifiedNames(t *testing.T) {
	file := parse(t, "src/q.ts", "let v: models.User;\nconst w = api.client.get();\n")
	assert.Equal(t, []string{"models", "api"}, file.NonLocalUsages())
}

func TestUsagesSubscriptAndAssignment(t *testing.T) {
	file := parse(t, "src/sub.ts", "const v = table[key];\ntarget[slot] = value;\ncounter = total;\n")
	assert.Equal(t, []string{"table", "key", "target", "slot", "value", "counter", "total"}, file.NonLocalUsages())
}

func TestNestedNonLocalUsages(t *testing.T) {
	src := `import { Outer } from './o';
namespace Inner { export const v = Outer; export const w = Sibling; }
const Sibling = 1;
`
	file := parse(t, "src/nested.ts", src)
	require.Len(t, file.Resources, 1)
	assert.Equal(t, "Inner", file.Resources[0].Name)
	assert.Equal(t, []string{"Outer"}, file.NonLocalUsages())
}

func TestParseTSXUsages(t *testing.T) {
	file := parse(t, "src/view.tsx", "const el = <Widget prop={x} />;\nconst d = <div />;\n")
	usages := file.NonLocalUsages()
	assert.Contains(t, usages, "Widget")
	assert.Contains(t, usages, "x")
	assert.NotContains(t, usages, "div")
}

func TestParseJavaScript(t *testing.T) {
	file := parse(t, "src/a.js", "import def from './x';\nexport function jsFn(a, b = 1) { return def(a, b); }\n")
	fn, ok := findDeclaration(file.Declarations, "jsFn").(*FunctionDeclaration)
	require.True(t, ok)
	require.Len(t, fn.Parameters, 2)
	assert.True(t, fn.Parameters[1].Optional)
	assert.Contains(t, file.NonLocalUsages(), "def")
}

func TestParseSyntaxError(t *testing.T) {
	_, err := NewParser(nil).Parse([]byte("export class {\n"), "src/broken.ts")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParseError))
	se, ok := errors.AsSyntaxError(err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, se.Line, 1)
}

func TestParseInvalidUTF8(t *testing.T) {
	_, err := NewParser(nil).Parse([]byte("const a = '\xff';"), "src/bad.ts")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParseError))
}

func TestGlobalDeclarationFile(t *testing.T) {
	global := parse(t, "typings/globals.d.ts", "declare const VERSION: string;\ndeclare module 'legacy' { export const x: number; }\n")
	assert.True(t, global.IsGlobalDeclarationFile())
	require.Len(t, global.AmbientModules(), 1)
	assert.Equal(t, "legacy", global.AmbientModules()[0].Name())

	moduleFile := parse(t, "typings/mod.d.ts", "export declare const x: number;\n")
	assert.False(t, moduleFile.IsGlobalDeclarationFile())
}

func TestImportClone(t *testing.T) {
	original := &NamedImport{Library: "./a", Specifiers: []Specifier{{Name: "A"}}, Range: &TextRange{Start: 0, End: 10}}
	clone := original.Clone().(*NamedImport)
	clone.Specifiers = append(clone.Specifiers, Specifier{Name: "B"})
	clone.Specifiers[0].Alias = "Changed"
	clone.Range.End = 99

	assert.Equal(t, []Specifier{{Name: "A"}}, original.Specifiers)
	assert.Equal(t, 10, original.Range.End)
	assert.False(t, IsSynthetic(original))
	assert.True(t, IsSynthetic(&StringImport{Library: "x"}))
}

func TestCamelCase(t *testing.T) {
	cases := map[string]string{
		"my-widget":        "myWidget",
		"reflect-metadata": "reflectMetadata",
		"@angular/core":    "angularCore",
		"lodash":           "lodash",
		"3d":               "_3d",
	}
	for in, want := range cases {
		assert.Equal(t, want, CamelCase(in), in)
	}
}
