package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewError(t *testing.T) {
	err := New(CategoryValidation, CodeMissingField, "payer name is required")

	if err.Category != CategoryValidation {
		t.Errorf("category = %s, want %s", err.Category, CategoryValidation)
	}
	if err.Code != CodeMissingField {
		t.Errorf("code = %s, want %s", err.Code, CodeMissingField)
	}
	if err.Error() != "payer name is required" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestErrorWithSuggestion(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "file not found").
		WithSuggestion("check the path")

	if !strings.Contains(err.Error(), "suggestion: check the path") {
		t.Errorf("suggestion missing from message: %s", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk I/O error")
	err := Wrap(cause, CategoryMemory, CodeStoreUnavailable, "mapping store failed")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match its cause via errors.Is")
	}

	if Wrap(nil, CategoryMemory, CodeStoreUnavailable, "noop") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryMatching, 5},
		{CategoryInternal, 5},
		{CategoryMemory, 6},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := New(tt.category, CodeUnexpectedError, "test")
			if got := err.GetExitCode(); got != tt.want {
				t.Errorf("exit code = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConstructorContext(t *testing.T) {
	err := ParseError(CodeInvalidData, "statement.xlsx", 12, "amount", "abc", nil)

	if err.Category != CategoryParse {
		t.Errorf("category = %s, want %s", err.Category, CategoryParse)
	}
	if err.Context["file"] != "statement.xlsx" {
		t.Errorf("file context = %v", err.Context["file"])
	}
	if err.Context["row"] != 12 {
		t.Errorf("row context = %v", err.Context["row"])
	}
	if err.Suggestion == "" {
		t.Error("constructor should attach a suggestion")
	}
}

func TestMemoryErrorConstructor(t *testing.T) {
	cause := fmt.Errorf("database is locked")
	err := MemoryError(CodeStoreUnavailable, "lookup", cause)

	if err.Category != CategoryMemory {
		t.Errorf("category = %s, want %s", err.Category, CategoryMemory)
	}
	if err.Code != CodeStoreUnavailable {
		t.Errorf("code = %s, want %s", err.Code, CodeStoreUnavailable)
	}
	if !stderrors.Is(err, cause) {
		t.Error("cause should be preserved")
	}
}

func TestAsReconcilerError(t *testing.T) {
	inner := MatchingError(CodeRosterNotLoaded, "reconcile", nil)
	wrapped := fmt.Errorf("batch failed: %w", inner)

	extracted, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("expected to extract ReconcilerError from chain")
	}
	if extracted.Code != CodeRosterNotLoaded {
		t.Errorf("code = %s, want %s", extracted.Code, CodeRosterNotLoaded)
	}

	if _, ok := AsReconcilerError(fmt.Errorf("plain")); ok {
		t.Error("plain error should not extract")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	original := ValidationError(CodeInvalidAmount, "amount", "abc", nil)
	result := WrapIfNeeded(original, CategoryInternal, CodeUnexpectedError, "fallback")
	if result != original {
		t.Error("already-typed error should pass through unchanged")
	}

	plain := fmt.Errorf("boom")
	result = WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "fallback")
	if result.Category != CategoryInternal {
		t.Errorf("category = %s, want %s", result.Category, CategoryInternal)
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		FileError(CodeFileNotFound, "roster.csv", nil),
		ParseError(CodeInvalidData, "statement.xlsx", 3, "amount", "x", nil),
		ParseError(CodeInvalidData, "statement.xlsx", 7, "date", "y", nil),
	}

	summary := NewErrorSummary(errs)
	if summary.Total != 3 {
		t.Errorf("total = %d, want 3", summary.Total)
	}
	if summary.ByCategory[CategoryParse] != 2 {
		t.Errorf("parse count = %d, want 2", summary.ByCategory[CategoryParse])
	}
	if !summary.HasCategory(CategoryFile) {
		t.Error("expected file category")
	}
	if summary.GetExitCode() != 3 {
		t.Errorf("exit code = %d, want 3", summary.GetExitCode())
	}

	empty := NewErrorSummary(nil)
	if empty.Error() != "no errors" {
		t.Errorf("empty summary message = %s", empty.Error())
	}
	if empty.GetExitCode() != 0 {
		t.Errorf("empty summary exit code = %d, want 0", empty.GetExitCode())
	}
}
