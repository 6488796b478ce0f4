package newsletter

import (
	"errors"
	"fmt"
)

// Error represents a newsletter library error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for newsletter operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates a database operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodeDelivery indicates an outbound email send failed.
	ErrCodeDelivery = "DELIVERY_ERROR"

	// ErrCodeTokenInvalid indicates a token that is malformed, forged,
	// already used, or otherwise does not resolve.
	ErrCodeTokenInvalid = "TOKEN_INVALID"

	// ErrCodeTokenExpired indicates a structurally valid token past its
	// validity window. Distinct from TOKEN_INVALID so callers can show a
	// different message.
	ErrCodeTokenExpired = "TOKEN_EXPIRED"

	// ErrCodeSuppressed indicates a suppressed address attempting to
	// re-enter the subscribe path.
	ErrCodeSuppressed = "SUPPRESSED"

	// ErrCodeUnauthorized indicates a webhook shared-secret mismatch.
	ErrCodeUnauthorized = "UNAUTHORIZED"
)

// Common errors.
var (
	// ErrNoData is returned when a query returns no results.
	// This is not necessarily an error condition in all cases.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}

	// ErrTokenInvalid is returned when a token cannot be verified.
	ErrTokenInvalid = &Error{
		Code:    ErrCodeTokenInvalid,
		Message: "token is invalid",
	}

	// ErrTokenExpired is returned when a verified token is past its expiry.
	ErrTokenExpired = &Error{
		Code:    ErrCodeTokenExpired,
		Message: "token has expired",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	var nlErr *Error
	if errors.As(err, &nlErr) {
		return nlErr.Code == ErrCodeNoData
	}
	return errors.Is(err, ErrNoData)
}

// HasCode checks if an error carries the given code.
func HasCode(err error, code string) bool {
	var nlErr *Error
	if errors.As(err, &nlErr) {
		return nlErr.Code == code
	}
	return false
}

// IsTokenExpired checks if an error carries the TOKEN_EXPIRED code.
func IsTokenExpired(err error) bool {
	var nlErr *Error
	if errors.As(err, &nlErr) {
		return nlErr.Code == ErrCodeTokenExpired
	}
	return errors.Is(err, ErrTokenExpired)
}
