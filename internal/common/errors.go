package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")

	// ErrInvalidField marks a matcher bound to an unrecognized OCR text field.
	// This is a configuration defect and surfaces at registry construction.
	ErrInvalidField = errors.New("invalid OCR field")

	// ErrUnknownInsightType marks a request for an insight category
	// the extraction registry does not know.
	ErrUnknownInsightType = errors.New("unknown insight type")

	// ErrUnknownAnnotator marks an annotation request for an insight type
	// with no registered annotator.
	ErrUnknownAnnotator = errors.New("unknown annotator")

	// ErrReconciliation marks an aborted sibling-offset update. The whole
	// annotation attempt failed; no sibling was shifted.
	ErrReconciliation = errors.New("offset reconciliation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
