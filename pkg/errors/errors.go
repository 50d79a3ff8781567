// Package errors provides structured error types for overlaybx.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the overlay processor
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Configuration and input validation failures
//   - *_NOT_FOUND: Missing files or collections
//   - STREAM_*: Background stream conditions
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "bunch crossing time must be positive, got %g", bx)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStreamRead, origErr, "read %s", location)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidGeometry Code = "INVALID_GEOMETRY"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeFileNotFound       Code = "FILE_NOT_FOUND"
	ErrCodeCollectionNotFound Code = "COLLECTION_NOT_FOUND"

	// Background stream errors
	ErrCodeStreamExhausted Code = "STREAM_EXHAUSTED"
	ErrCodeStreamRead      Code = "STREAM_READ"

	// Merge errors
	ErrCodeTypeMismatch     Code = "TYPE_MISMATCH"
	ErrCodeLayerOutOfRange  Code = "LAYER_OUT_OF_RANGE"
	ErrCodeDanglingRelation Code = "DANGLING_RELATION"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
