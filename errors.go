package formpipe

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeTransaction   ErrorType = "transaction"
	ErrorTypeExecution     ErrorType = "execution"
	ErrorTypeInternal      ErrorType = "internal"
)

// Error codes surfaced per row during import and per field during
// request-style validation.
const (
	ErrCodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	ErrCodeInvalidFormat        = "INVALID_FORMAT"
	ErrCodeOutOfRange           = "OUT_OF_RANGE"
	ErrCodeInvalidOption        = "INVALID_OPTION"
	ErrCodeLengthViolation      = "LENGTH_VIOLATION"
	ErrCodePatternMismatch      = "PATTERN_MISMATCH"
	ErrCodeUnknownField         = "UNKNOWN_FIELD"

	// Chunk-level and run-level codes
	ErrCodePersistenceFailure = "PERSISTENCE_FAILURE"
	ErrCodeTemplateNotFound   = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateInactive   = "TEMPLATE_INACTIVE"
	ErrCodeTemplateInvalid    = "TEMPLATE_INVALID"
	ErrCodeSourceFailure      = "SOURCE_FAILURE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// PipeError represents unified errors from the form pipeline.
type PipeError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *PipeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *PipeError) Unwrap() error {
	return e.Cause
}

// WithCause adds a cause to a PipeError
func (e *PipeError) WithCause(cause error) *PipeError {
	e.Cause = cause
	return e
}

// WithField adds field context to a PipeError
func (e *PipeError) WithField(field string) *PipeError {
	e.Field = field
	return e
}

// WithDetail adds a single detail to a PipeError
func (e *PipeError) WithDetail(key string, value any) *PipeError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewPipeError creates a new PipeError
func NewPipeError(errorType ErrorType, code, message string) *PipeError {
	return &PipeError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewFieldError creates a validation error carrying the offending field label.
// The message embeds the label so row-level error reporting stays readable
// without extra context.
func NewFieldError(code, label, message string) *PipeError {
	return &PipeError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Field:   label,
	}
}

// NewTemplateNotFoundError creates a fatal error for a missing template.
func NewTemplateNotFoundError(templateID int64) *PipeError {
	return &PipeError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeTemplateNotFound,
		Message: fmt.Sprintf("form template %d not found", templateID),
	}
}

// NewTemplateInactiveError creates a fatal error for an inactive template.
func NewTemplateInactiveError(templateID int64) *PipeError {
	return &PipeError{
		Type:    ErrorTypeConfiguration,
		Code:    ErrCodeTemplateInactive,
		Message: fmt.Sprintf("form template %d is inactive and cannot accept submissions", templateID),
	}
}

// NewPersistenceError creates a chunk-level persistence error.
func NewPersistenceError(message string, cause error) *PipeError {
	return &PipeError{
		Type:    ErrorTypeTransaction,
		Code:    ErrCodePersistenceFailure,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *PipeError {
	return &PipeError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode extracts the pipeline error code from err, or INTERNAL_ERROR
// when err carries no code.
func ErrorCode(err error) string {
	var pe *PipeError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeInternalError
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var pe *PipeError
	if errors.As(err, &pe) {
		return pe.Type == ErrorTypeValidation
	}
	return false
}

// IsTemplateNotFound checks if an error signals a missing template
func IsTemplateNotFound(err error) bool {
	var pe *PipeError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeTemplateNotFound
	}
	return false
}

// IsFatalRunError reports whether err must abort an entire import run
// before any row is processed (missing or inactive template).
func IsFatalRunError(err error) bool {
	var pe *PipeError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeTemplateNotFound || pe.Code == ErrCodeTemplateInactive
	}
	return false
}

// ============================================================================
// ValidationErrors Type and Constructors
// ============================================================================

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []*PipeError `json:"errors"`
}

// Error implements the error interface for ValidationErrors
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "no validation errors"
	}
	if len(ve.Errors) == 1 {
		return ve.Errors[0].Error()
	}
	return fmt.Sprintf("multiple validation errors: %d errors found", len(ve.Errors))
}

// Add adds a new error to the collection
func (ve *ValidationErrors) Add(err *PipeError) {
	ve.Errors = append(ve.Errors, err)
}

// HasErrors returns true if there are any errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToError returns the ValidationErrors as an error if there are any errors, nil otherwise
func (ve *ValidationErrors) ToError() error {
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// ByCode returns errors grouped by error code
func (ve *ValidationErrors) ByCode() map[string][]*PipeError {
	grouped := make(map[string][]*PipeError)
	for _, err := range ve.Errors {
		grouped[err.Code] = append(grouped[err.Code], err)
	}
	return grouped
}

// NewValidationErrors creates a new ValidationErrors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*PipeError, 0),
	}
}
