// Package aggregates defines the error vocabulary shared by every write path.
// Callers branch on ErrorCode; the wrapped cause (often a domain sentinel)
// stays reachable through errors.Is.
package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

// Error renders "[code] op: message".
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("[" + string(e.Code) + "]")
	if e.Op != "" {
		b.WriteString(" " + e.Op)
	}
	if e.Message != "" {
		if e.Op != "" {
			b.WriteString(":")
		}
		b.WriteString(" " + e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{Code: code, Op: strings.TrimSpace(op), Message: strings.TrimSpace(message), Cause: cause}
}

// Wrap tags err with code.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func Precondition(op string, sentinel error, format string, args ...any) error {
	return NewError(CodePreconditionFailed, op, fmt.Sprintf(format, args...), sentinel)
}

func Conflict(op string, sentinel error, format string, args ...any) error {
	return NewError(CodeConflict, op, fmt.Sprintf(format, args...), sentinel)
}

func NotFound(op string, format string, args ...any) error {
	return NewError(CodeNotFound, op, fmt.Sprintf(format, args...), nil)
}

// CodeOf returns the outermost code in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if errors.As(err, &aggErr) {
		return aggErr.Code
	}
	return ""
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Retryable reports whether the caller may safely run the same write again.
func Retryable(err error) bool { return IsCode(err, CodeRetryable) }
