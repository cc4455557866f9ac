// Package errors defines the categorized error type used across the
// reconciliation engine. Each error carries a category, a stable code, an
// optional remediation suggestion and structured context, so callers can map
// failures to HTTP statuses or process exit codes without string matching.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by where in the run they originate.
type ErrorCategory string

const (
	// CategoryPrecondition covers request problems detected before any data
	// access, such as a missing tenant identifier.
	CategoryPrecondition ErrorCategory = "precondition"

	// CategoryDataAccess covers failures loading the reference snapshot.
	// These are fatal for the run; no partial results are returned.
	CategoryDataAccess ErrorCategory = "data_access"

	CategoryValidation ErrorCategory = "validation"
	CategoryMatching   ErrorCategory = "matching"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorCode identifies the specific failure within a category.
type ErrorCode string

const (
	// Precondition errors
	CodeMissingCompanyID ErrorCode = "missing_company_id"
	CodeInvalidRequest   ErrorCode = "invalid_request"

	// Data access errors
	CodeTransactionsLoad ErrorCode = "transactions_load_failed"
	CodeEntriesLoad      ErrorCode = "entries_load_failed"
	CodeEntitiesLoad     ErrorCode = "entities_load_failed"
	CodeRulesLoad        ErrorCode = "rules_load_failed"
	CodeSettingsLoad     ErrorCode = "settings_load_failed"
	CodeStoreUnavailable ErrorCode = "store_unavailable"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeInvalidConfig ErrorCode = "invalid_config"

	// Matching errors
	CodeEngineNotLoaded ErrorCode = "engine_not_loaded"

	// Internal errors
	CodeUnexpected ErrorCode = "unexpected_error"
)

// EngineError is the base error type for all engine errors.
type EngineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries additional key/value detail about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// ExitCode maps the error category to a process exit code for the CLI.
func (e *EngineError) ExitCode() int {
	switch e.Category {
	case CategoryPrecondition:
		return 2
	case CategoryValidation:
		return 3
	case CategoryDataAccess:
		return 4
	case CategoryMatching, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext attaches a key/value pair to the error.
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a remediation hint to the error.
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new EngineError.
func New(category ErrorCategory, code ErrorCode, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with engine error context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// PreconditionError creates an error for a request rejected before any data
// access.
func PreconditionError(code ErrorCode, detail string) *EngineError {
	var message, suggestion string

	switch code {
	case CodeMissingCompanyID:
		message = "company id is required"
		suggestion = "provide the tenant company identifier in the request"
	case CodeInvalidRequest:
		message = fmt.Sprintf("invalid request: %s", detail)
		suggestion = "correct the request parameters and retry"
	default:
		message = fmt.Sprintf("precondition failed: %s", detail)
		suggestion = "check the request and try again"
	}

	return New(CategoryPrecondition, code, message).
		WithSuggestion(suggestion).
		WithContext("detail", detail)
}

// DataAccessError creates an error for a failed reference-data load. The run
// is aborted; the underlying cause is preserved for logging.
func DataAccessError(code ErrorCode, source string, err error) *EngineError {
	message := fmt.Sprintf("failed to load %s", source)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryDataAccess, code, message)
	} else {
		result = New(CategoryDataAccess, code, message)
	}

	return result.
		WithSuggestion("check store connectivity and tenant data").
		WithContext("source", source)
}

// ValidationError creates an error for invalid configuration or record data.
func ValidationError(code ErrorCode, field string, value interface{}) *EngineError {
	var message, suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "amounts must be valid decimal numbers"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use date format YYYY-MM-DD"
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration value for '%s': %v", field, value)
		suggestion = "check the configuration documentation for valid ranges"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	return New(CategoryValidation, code, message).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// InternalError creates an error for unexpected failures.
func InternalError(operation string, err error) *EngineError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpected, message)
	} else {
		result = New(CategoryInternal, CodeUnexpected, message)
	}

	return result.
		WithSuggestion("this is likely a bug - report it with the error details").
		WithContext("operation", operation)
}

// IsEngineError reports whether err is an *EngineError.
func IsEngineError(err error) bool {
	_, ok := err.(*EngineError)
	return ok
}

// AsEngineError extracts an *EngineError from an error chain.
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// HasCategory reports whether err belongs to the given category.
func HasCategory(err error, category ErrorCategory) bool {
	if engineErr, ok := AsEngineError(err); ok {
		return engineErr.Category == category
	}
	return false
}

// FormatContext renders the context map as a stable "k=v" list for logging.
func FormatContext(ctx Context) string {
	if len(ctx) == 0 {
		return ""
	}

	parts := make([]string, 0, len(ctx))
	for k, v := range ctx {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	// Map order is unspecified; sort for stable output.
	for i := 1; i < len(parts); i++ {
		for j := i; j > 0 && parts[j] < parts[j-1]; j-- {
			parts[j], parts[j-1] = parts[j-1], parts[j]
		}
	}
	return strings.Join(parts, " ")
}
