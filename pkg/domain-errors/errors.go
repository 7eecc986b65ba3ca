// Package domainerrors provides coded errors for the engine.
//
// Every rejection crossing a service boundary carries a machine-checkable
// Code plus a human-readable message. Handlers translate codes to HTTP
// statuses; callers branch on HasCode instead of string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and transports.
type Code string

const (
	// CodeInvalidInput marks malformed input rejected before any read/write.
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation marks structured domain validation failures.
	CodeValidation Code = "validation_failed"
	// CodeConflict marks overlap, quota, duplicate-fingerprint, and
	// self-dealing rejections. The message names the specific conflict.
	CodeConflict Code = "conflict"
	// CodeNotFound marks lookups for records that do not exist.
	CodeNotFound Code = "not_found"
	// CodeInvariantViolation marks operations invalid for the current
	// lifecycle state of an aggregate.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeIntegrity marks audit-chain hash mismatches. Integrity failures
	// are reported, never auto-repaired.
	CodeIntegrity Code = "integrity_violation"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks authenticated callers lacking permission.
	CodeForbidden Code = "forbidden"
	// CodeTimeout marks operations aborted by deadline or cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Construct via New or Wrap.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			break
		}
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error is not a coded error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
