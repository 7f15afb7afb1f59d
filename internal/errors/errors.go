// Package errors defines the error taxonomy shared by the storage, cache and
// activity layers. Every error carries a code and can be matched with
// errors.Is against the exported sentinels.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown            = "UNKNOWN"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeValueOutOfRange    = "VALUE_OUT_OF_RANGE"
	CodeMalformedRecord    = "MALFORMED_RECORD"
)

// Sentinels matched by errors.Is on any *Error of the same code.
var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrValueOutOfRange    = errors.New("value out of range")
	ErrMalformedRecord    = errors.New("malformed record")
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error represents a coded application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is the sentinel for this error's code.
func (e *Error) Is(target error) bool {
	switch e.code {
	case CodeBackendUnavailable:
		return target == ErrBackendUnavailable
	case CodeValueOutOfRange:
		return target == ErrValueOutOfRange
	case CodeMalformedRecord:
		return target == ErrMalformedRecord
	}
	return false
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't have one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// NewBackendUnavailable wraps a connection or transport failure.
func NewBackendUnavailable(message string, cause error) error {
	return &Error{code: CodeBackendUnavailable, message: message, err: cause}
}

// NewValueOutOfRange reports an identifier that does not fit the storage range.
func NewValueOutOfRange(field string, value any) error {
	return &Error{
		code:    CodeValueOutOfRange,
		message: fmt.Sprintf("%s out of range: %v", field, value),
	}
}

// NewMalformedRecord reports a stored value that cannot be parsed back.
func NewMalformedRecord(message string, cause error) error {
	return &Error{code: CodeMalformedRecord, message: message, err: cause}
}
