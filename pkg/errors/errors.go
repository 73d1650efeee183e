package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// ErrCodeInternalError when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// UserMessage is the text safe to show an end user for err.
func UserMessage(err error) string {
	switch CodeOf(err) {
	case ErrCodeInsufficientFunds:
		var appErr *AppError
		stderrors.As(err, &appErr)
		return appErr.Message
	case ErrCodeNotFound:
		return "not found"
	case ErrCodeValidation:
		return "invalid request"
	case ErrCodeUnavailable:
		return "this reward is not available right now"
	case ErrCodeRateLimitExceeded:
		return "too many requests, slow down"
	default:
		return "something went wrong, please try again later"
	}
}

// Common error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeInvariantViolation  = "INVARIANT_VIOLATION"
	ErrCodeUnavailable         = "UNAVAILABLE"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
)
