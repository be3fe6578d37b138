package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents a workflow error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes. Validation and lookup failures are recorded as FAIL,
// transport and timeout failures as ERROR.
const (
	ErrValidation ErrorCode = iota + 1000
	ErrLookup
	ErrTransport
	ErrTimeout
	ErrCancelled
)

// Validation reports a parsed response that did not match the expected contract.
func Validation(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// Lookup reports an entity that could not be resolved from a listing.
func Lookup(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrLookup,
		Message: fmt.Sprintf("%s not found in listing", resource),
		Err:     err,
	}
}

// Transport wraps a network, timeout or decoding failure of a call.
func Transport(op string, err error) *AppError {
	code := ErrTransport
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		code = ErrTimeout
	case stderrors.Is(err, context.Canceled):
		code = ErrCancelled
	}
	return &AppError{
		Code:    code,
		Message: op,
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

// IsFailure reports whether err is a contract mismatch rather than a transport problem.
func IsFailure(err error) bool {
	switch CodeOf(err) {
	case ErrValidation, ErrLookup:
		return true
	}
	return false
}

func IsTransport(err error) bool {
	switch CodeOf(err) {
	case ErrTransport, ErrTimeout, ErrCancelled:
		return true
	}
	return false
}
