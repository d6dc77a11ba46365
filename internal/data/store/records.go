package store

import (
	"autoimport/internal/engine/parser"
	"autoimport/internal/engine/resolver"
)

func recordOf(info resolver.DeclarationInfo) DeclarationRecord {
	span := info.Declaration.Span()
	rec := DeclarationRecord{
		Name:  info.Name(),
		Kind:  info.Declaration.Kind().String(),
		From:  info.From,
		Start: span.Start,
		End:   span.End,
	}
	if m, ok := info.Declaration.(*parser.ModuleDeclaration); ok {
		rec.Ambient = m.Ambient
	}
	return rec
}
