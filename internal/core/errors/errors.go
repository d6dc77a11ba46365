package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported     ErrorCode = "NOT_SUPPORTED"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	CodeParseError             ErrorCode = "PARSE_ERROR"
	CodeIndexBuildError        ErrorCode = "INDEX_BUILD_ERROR"
	CodeIndexNotReady          ErrorCode = "INDEX_NOT_READY"
	CodeGroupIdentifierInvalid ErrorCode = "IMPORT_GROUP_IDENTIFIER_INVALID"
	CodeEditApplicationFailure ErrorCode = "EDIT_APPLICATION_FAILURE"
	CodeAmbiguousDeclaration   ErrorCode = "AMBIGUOUS_DECLARATION"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxLanguage  = "language"
	CtxSymbol    = "symbol"
	CtxLibrary   = "library"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a key/value pair to a DomainError, wrapping plain errors as internal.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// SyntaxError locates the first malformed construct of a source file.
// Line and Column are 1-based.
type SyntaxError struct {
	Line    int
	Column  int
	Snippet string
}

func (e *SyntaxError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("syntax error at %d:%d", e.Line, e.Column)
	}
	return fmt.Sprintf("syntax error at %d:%d near %q", e.Line, e.Column, e.Snippet)
}

// NewParseError reports that path could not be turned into a resource tree.
func NewParseError(path string, cause error) error {
	de := &DomainError{Code: CodeParseError, Message: "failed to parse source", Err: cause}
	if path != "" {
		de.WithContext(CtxPath, path)
	}
	return de
}

func NewIndexBuildError(root string, cause error) error {
	return (&DomainError{Code: CodeIndexBuildError, Message: "failed to build declaration index", Err: cause}).
		WithContext(CtxPath, root)
}

func NewGroupIdentifierInvalid(identifier string) error {
	return &DomainError{
		Code:    CodeGroupIdentifierInvalid,
		Message: fmt.Sprintf("import group identifier %q is not a keyword or a /regex/", identifier),
	}
}

func NewEditApplicationFailure(path string, cause error) error {
	return (&DomainError{Code: CodeEditApplicationFailure, Message: "host failed to apply text edits", Err: cause}).
		WithContext(CtxPath, path)
}

// AsSyntaxError extracts the syntax location from a parse failure.
func AsSyntaxError(err error) (*SyntaxError, bool) {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
