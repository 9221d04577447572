package types

import (
	"fmt"
)

// ErrorCode is a typed string for categorizing relay errors.
type ErrorCode string

// Error code constants. Callers MUST use these instead of hardcoded strings.
const (
	// Input validation (template parsing and normalization)
	ErrCodeValidationInvalidTemplate ErrorCode = "validation_invalid_template"
	ErrCodeValidationMissingAttrs    ErrorCode = "validation_missing_attributes"
	ErrCodeValidationUnmappedEnum    ErrorCode = "validation_unmapped_enum_value"
	ErrCodeValidationInvalidEvent    ErrorCode = "validation_invalid_event"

	// Delivery
	ErrCodeDeliveryHardFailure    ErrorCode = "delivery_hard_failure"
	ErrCodeDeliveryPartialFailure ErrorCode = "delivery_partial_failure"

	// Internal
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// IsValidation reports whether the code belongs to the input validation family.
func (c ErrorCode) IsValidation() bool {
	switch c {
	case ErrCodeValidationInvalidTemplate,
		ErrCodeValidationMissingAttrs,
		ErrCodeValidationUnmappedEnum,
		ErrCodeValidationInvalidEvent:
		return true
	}
	return false
}

// AppError is the standard error type used throughout the relay.
// It carries a stable code for exit-path decisions, a human-readable message,
// an optional cause, and structured details forwarded to the crash reporter.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
