// # cmd/autoimport/ui.go
package main

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"autoimport/internal/core/app"
	"autoimport/internal/core/errors"
	"autoimport/internal/engine/resolver"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	nameStyle = lipgloss.NewStyle().Bold(true)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

func renderDeclarations(infos []resolver.DeclarationInfo, prefix string) string {
	var b strings.Builder
	count := 0
	for _, info := range infos {
		if !strings.HasPrefix(info.Name(), prefix) {
			continue
		}
		count++
		fmt.Fprintf(&b, "%s %s %s\n",
			nameStyle.Render(info.Name()),
			kindStyle.Render("("+info.Declaration.Kind().String()+")"),
			info.From,
		)
	}
	b.WriteString(titleStyle(fmt.Sprintf("%d declaration(s)", count)))
	b.WriteString("\n")
	return b.String()
}

func renderOrganize(res app.OrganizeResult, showText bool) string {
	switch {
	case showText:
		return res.After
	case res.Changed:
		return successStyle.Render("organized "+res.Path) + "\n"
	default:
		return statusStyle.Render("unchanged "+res.Path) + "\n"
	}
}

func renderCheck(res app.OrganizeResult) string {
	if res.Changed {
		return errorStyle.Render("needs organizing "+res.Path) + "\n"
	}
	return statusStyle.Render("ok "+res.Path) + "\n"
}

// renderError prints a domain error with its code and context on
// separate lines.
func renderError(err error) string {
	var de *errors.DomainError
	if !stderrors.As(err, &de) {
		return errorStyle.Render("error: ") + err.Error()
	}

	var b strings.Builder
	b.WriteString(errorStyle.Render(fmt.Sprintf("error [%s]: ", de.Code)))
	b.WriteString(de.Message)
	if de.Err != nil {
		b.WriteString(": " + de.Err.Error())
	}
	keys := make([]string, 0, len(de.Context))
	for k := range de.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %v", k, de.Context[k])
	}
	return b.String()
}
