package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		if !IsCode(err, CodeInternal) {
			t.Error("expected IsCode to return true for wrapped CodeInternal")
		}
	})
}

func TestParseErrorCarriesSyntaxLocation(t *testing.T) {
	err := NewParseError("src/a.ts", &SyntaxError{Line: 3, Column: 7, Snippet: "{"})
	if !IsCode(err, CodeParseError) {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
	se, ok := AsSyntaxError(err)
	if !ok {
		t.Fatal("expected syntax error in chain")
	}
	if se.Line != 3 || se.Column != 7 {
		t.Errorf("unexpected location %d:%d", se.Line, se.Column)
	}
	if !strings.Contains(err.Error(), "src/a.ts") {
		t.Errorf("expected path in message, got %s", err.Error())
	}
}

func TestAddContextOnPlainError(t *testing.T) {
	err := AddContext(errors.New("boom"), CtxLibrary, "react")
	if !IsCode(err, CodeInternal) {
		t.Fatalf("expected plain error to be wrapped as internal, got %v", err)
	}
}
