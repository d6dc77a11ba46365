package imports

import (
	"sort"
	"strings"

	"autoimport/internal/core/ports"
	"autoimport/internal/engine/parser"
)

func lineStart(text string, off int) int {
	return strings.LastIndexByte(text[:off], '\n') + 1
}

// lineEnd returns the offset just past the newline ending the line that
// contains off, or len(text) on the last line.
func lineEnd(text string, off int) int {
	i := strings.IndexByte(text[off:], '\n')
	if i < 0 {
		return len(text)
	}
	return off + i + 1
}

// lineSpan widens r to the whole lines it touches.
func lineSpan(text string, r parser.TextRange) (int, int) {
	last := r.End - 1
	if last < r.Start {
		last = r.Start
	}
	if last > len(text) {
		last = len(text)
	}
	return lineStart(text, r.Start), lineEnd(text, last)
}

// importSpan is the range to delete for an import statement. It covers the
// whole lines of r when only whitespace, a semicolon or a line comment share
// them. Otherwise it covers r and the blanks next to it, so code on the same
// line survives; whole is false in that case.
func importSpan(text string, r parser.TextRange) (start, end int, whole bool) {
	ls, le := lineSpan(text, r)
	stop := r.End
	if stop > le {
		stop = le
	}
	before := strings.TrimSpace(text[ls:r.Start])
	after := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text[stop:le]), ";"))
	if before == "" && (after == "" || strings.HasPrefix(after, "//")) {
		return ls, le, true
	}

	start, end = r.Start, stop
	if after != "" {
		for end < len(text) && isBlank(text[end]) {
			end++
		}
		return start, end, false
	}
	for start > ls && isBlank(text[start-1]) {
		start--
	}
	return start, end, false
}

// sharesLineWithCode reports whether non-blank text precedes r on its line.
func sharesLineWithCode(text string, r parser.TextRange) bool {
	return strings.TrimSpace(text[lineStart(text, r.Start):r.Start]) != ""
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

// insertionPoint is the start of the first line that is not blank, a
// shebang, a "use strict" directive or a comment.
func insertionPoint(text string) int {
	inComment := false
	for off := 0; off < len(text); {
		end := lineEnd(text, off)
		line := strings.TrimSpace(text[off:end])
		switch {
		case inComment:
			inComment = !strings.Contains(line, "*/")
		case line == "", strings.HasPrefix(line, "#!"), strings.HasPrefix(line, "//"), isUseStrict(line):
		case strings.HasPrefix(line, "/*"):
			inComment = !strings.Contains(line[2:], "*/")
		default:
			return off
		}
		off = end
	}
	return len(text)
}

func isUseStrict(line string) bool {
	line = strings.TrimSuffix(line, ";")
	return line == `'use strict'` || line == `"use strict"`
}

// mergeSpans orders edits by start and folds overlapping or adjacent pure
// deletions into one.
func mergeSpans(edits []ports.TextEdit) []ports.TextEdit {
	if len(edits) < 2 {
		return edits
	}
	sorted := append([]ports.TextEdit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := make([]ports.TextEdit, 0, len(sorted))
	out = append(out, sorted[0])
	for _, e := range sorted[1:] {
		prev := &out[len(out)-1]
		if isDeletion(*prev) && isDeletion(e) && e.Start <= prev.End {
			if e.End > prev.End {
				prev.End = e.End
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

func isDeletion(e ports.TextEdit) bool {
	return e.NewText == "" && e.End > e.Start
}
