package ports

import (
	"context"

	"autoimport/internal/engine/parser"
)

// SourceParser abstracts source parsing so the index and the import manager
// can be driven by a fake in tests.
type SourceParser interface {
	Parse(source []byte, path string) (*parser.File, error)
}

// TextEdit replaces the byte span [Start, End) of a document with NewText.
// Start == End is an insert.
type TextEdit struct {
	Start   int
	End     int
	NewText string
}

// DocumentHost is the editor-side collaborator that owns document text.
type DocumentHost interface {
	// DocumentText returns the live text of the document at path.
	DocumentText(ctx context.Context, path string) (string, error)
	// ApplyEdits applies all edits as one atomic operation. A false result
	// without error means the host rejected them, for example because the
	// document changed concurrently.
	ApplyEdits(ctx context.Context, path string, edits []TextEdit) (bool, error)
}

// IndexEventKind classifies index lifecycle notifications for status indicators.
type IndexEventKind string

const (
	SyncStart  IndexEventKind = "sync_start"
	SyncFinish IndexEventKind = "sync_finish"
	SyncError  IndexEventKind = "sync_error"
)
