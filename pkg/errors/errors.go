// Package errors provides the categorized error type shared by the matching
// engine, workspace and commit executor. Generation and scoring failures are
// recovered locally (skip-and-log); conflict and commit failures are surfaced
// to the caller per item.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryScoring       ErrorCategory = "scoring"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryCommit        ErrorCategory = "commit"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Validation errors
	CodeInvalidRecord ErrorCode = "invalid_record"
	CodeMissingField  ErrorCode = "missing_field"
	CodeUnknownItem   ErrorCode = "unknown_item"

	// Scoring errors
	CodePatternUnavailable ErrorCode = "pattern_unavailable"
	CodeFeatureFailed      ErrorCode = "feature_failed"

	// Conflict errors
	CodeAlreadyReconciled  ErrorCode = "already_reconciled"
	CodeItemStale          ErrorCode = "item_stale"
	CodeZoneNotCommittable ErrorCode = "zone_not_committable"

	// Commit errors
	CodeCommitRejected ErrorCode = "commit_rejected"
	CodeCommitFailed   ErrorCode = "commit_failed"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// Context provides additional information about the error
type Context map[string]interface{}

// EngineError is the base error type for all engine errors
type EngineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// GetExitCode returns an appropriate process exit code for the error
func (e *EngineError) GetExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryConfiguration:
		return 3
	case CategoryConflict:
		return 4
	case CategoryCommit:
		return 5
	case CategoryScoring, CategoryInternal:
		return 6
	default:
		return 1
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new EngineError
func New(category ErrorCategory, code ErrorCode, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with EngineError context
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

// Specific error constructors

// ValidationError reports a malformed or missing field in a snapshot record.
// The offending record is excluded from candidate generation; the pass
// continues for the rest.
func ValidationError(kind, id string, err error) *EngineError {
	message := fmt.Sprintf("invalid %s record %s", kind, id)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryValidation, CodeInvalidRecord, message)
	} else {
		result = New(CategoryValidation, CodeInvalidRecord, message)
	}

	return result.
		WithContext("kind", kind).
		WithContext("id", id)
}

// ScoringError reports a feature computation that could not be completed.
// Callers fall back to a documented default value rather than failing the
// whole pass.
func ScoringError(feature string, err error) *EngineError {
	message := fmt.Sprintf("feature %s could not be computed", feature)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryScoring, CodeFeatureFailed, message)
	} else {
		result = New(CategoryScoring, CodeFeatureFailed, message)
	}

	return result.WithContext("feature", feature)
}

// ConflictError reports an item that was already reconciled or is otherwise
// unavailable for the requested workspace operation.
func ConflictError(code ErrorCode, kind, id, detail string) *EngineError {
	message := fmt.Sprintf("conflict on %s %s: %s", kind, id, detail)

	return New(CategoryConflict, code, message).
		WithContext("kind", kind).
		WithContext("id", id)
}

// CommitError reports a rejected or failed commit call for a single
// invoice/transaction pair. It never escalates to abort the rest of a batch.
func CommitError(invoiceID, transactionID, reason string, err error) *EngineError {
	message := fmt.Sprintf("commit failed for invoice %s / transaction %s: %s",
		invoiceID, transactionID, reason)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryCommit, CodeCommitFailed, message)
	} else {
		result = New(CategoryCommit, CodeCommitFailed, message)
	}

	return result.
		WithContext("invoice_id", invoiceID).
		WithContext("transaction_id", transactionID).
		WithContext("reason", reason)
}

// ConfigurationError reports an invalid engine configuration value
func ConfigurationError(setting string, value interface{}, err error) *EngineError {
	message := fmt.Sprintf("invalid configuration for '%s': %v", setting, value)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, CodeInvalidConfig, message)
	} else {
		result = New(CategoryConfiguration, CodeInvalidConfig, message)
	}

	return result.
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError reports an unexpected engine failure
func InternalError(operation string, err error) *EngineError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.WithContext("operation", operation)
}

// ErrorSummary aggregates multiple errors from a generation or commit pass
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*EngineError        `json:"errors"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*EngineError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	return es.ByCategory[category] > 0
}

// IsEngineError checks if an error is an EngineError
func IsEngineError(err error) bool {
	_, ok := err.(*EngineError)
	return ok
}

// AsEngineError extracts an EngineError from an error chain
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// IsCategory reports whether err carries an EngineError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	if engineErr, ok := AsEngineError(err); ok {
		return engineErr.Category == category
	}
	return false
}
