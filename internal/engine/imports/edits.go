package imports

import (
	"fmt"
	"sort"
	"strings"

	"autoimport/internal/core/ports"
)

// ApplyEdits returns text with edits applied. Edits must not overlap; an
// insert and a replace may share a start offset, in which case the insert
// goes first. Offsets are bytes into the original text.
func ApplyEdits(text string, edits []ports.TextEdit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}

	sorted := append([]ports.TextEdit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End-sorted[i].Start < sorted[j].End-sorted[j].Start
	})

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(text) {
			return "", fmt.Errorf("edit [%d,%d) out of range for %d bytes", e.Start, e.End, len(text))
		}
		if e.Start < last {
			return "", fmt.Errorf("edit [%d,%d) overlaps previous edit ending at %d", e.Start, e.End, last)
		}
		b.WriteString(text[last:e.Start])
		b.WriteString(e.NewText)
		last = e.End
	}
	b.WriteString(text[last:])
	return b.String(), nil
}
