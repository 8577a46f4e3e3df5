// Package errors provides structured error types for coinstack.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the TUI
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input rejected at an entry point, no state change
//   - *_NOT_FOUND: Resource not found
//   - CORRUPT_*: Persisted data that cannot be decoded
//   - STORE_*: Persistence backend failures
//   - INTERNAL_*: Unexpected internal errors
//
// Placement exhaustion and missing prices are deliberately absent: both are
// recovered locally and never surface as errors.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidQuantity, "quantity must be positive, got %v", q)
//	if errors.Is(err, errors.ErrCodeInvalidQuantity) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStoreUnavailable, origErr, "load %s", key)
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
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidAsset    Code = "INVALID_ASSET"
	ErrCodeInvalidQuantity Code = "INVALID_QUANTITY"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeBlockNotFound Code = "BLOCK_NOT_FOUND"

	// Persistence errors
	ErrCodeCorruptRecord    Code = "CORRUPT_RECORD"
	ErrCodeStoreUnavailable Code = "STORE_UNAVAILABLE"

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

// IsInvalid reports whether err was produced by input validation.
// Callers use it to tell "rejected, nothing changed" apart from real failures.
func IsInvalid(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidAsset, ErrCodeInvalidQuantity,
		ErrCodeInvalidConfig:
		return true
	}
	return false
}
