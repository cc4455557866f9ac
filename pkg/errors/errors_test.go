package errors

import (
	"fmt"
	"testing"
)

func TestEngineErrorMessage(t *testing.T) {
	err := New(CategoryValidation, CodeInvalidConfig, "bad value")
	if err.Error() != "bad value" {
		t.Errorf("Expected plain message, got %q", err.Error())
	}

	err = err.WithSuggestion("fix it")
	if err.Error() != "bad value (suggestion: fix it)" {
		t.Errorf("Expected suggestion appended, got %q", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, CategoryDataAccess, CodeTransactionsLoad, "load failed")

	if err.Unwrap() != cause {
		t.Error("Expected cause preserved through Unwrap")
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, CategoryInternal, CodeUnexpected, "whatever"); err != nil {
		t.Error("Expected nil for nil cause")
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected int
	}{
		{CategoryPrecondition, 2},
		{CategoryValidation, 3},
		{CategoryDataAccess, 4},
		{CategoryMatching, 5},
		{CategoryInternal, 5},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpected, "x")
		if got := err.ExitCode(); got != tt.expected {
			t.Errorf("ExitCode for %s = %d, expected %d", tt.category, got, tt.expected)
		}
	}
}

func TestAsEngineErrorThroughChain(t *testing.T) {
	inner := New(CategoryDataAccess, CodeEntriesLoad, "load failed")
	wrapped := fmt.Errorf("run aborted: %w", inner)

	got, ok := AsEngineError(wrapped)
	if !ok {
		t.Fatal("Expected engine error found in chain")
	}
	if got.Code != CodeEntriesLoad {
		t.Errorf("Expected code preserved, got %s", got.Code)
	}
}

func TestHasCategory(t *testing.T) {
	err := PreconditionError(CodeMissingCompanyID, "")
	if !HasCategory(err, CategoryPrecondition) {
		t.Error("Expected precondition category")
	}
	if HasCategory(err, CategoryInternal) {
		t.Error("Did not expect internal category")
	}
	if HasCategory(fmt.Errorf("plain"), CategoryInternal) {
		t.Error("Did not expect category on a plain error")
	}
}

func TestDataAccessErrorContext(t *testing.T) {
	err := DataAccessError(CodeRulesLoad, "extract_rules", fmt.Errorf("locked"))

	if err.Category != CategoryDataAccess {
		t.Errorf("Expected data access category, got %s", err.Category)
	}
	if err.Context["source"] != "extract_rules" {
		t.Errorf("Expected source in context, got %v", err.Context)
	}
}

func TestFormatContextStable(t *testing.T) {
	ctx := Context{"b": 2, "a": 1, "c": "x"}

	first := FormatContext(ctx)
	if first != "a=1 b=2 c=x" {
		t.Errorf("Expected sorted context, got %q", first)
	}

	for i := 0; i < 10; i++ {
		if got := FormatContext(ctx); got != first {
			t.Errorf("Expected stable output, got %q vs %q", got, first)
		}
	}
}
