// Package errors provides structured, coded errors for claimflow.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies an error category for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound   Code = "E101"
	CodeFilePermission Code = "E102"
	CodeInvalidFormat  Code = "E103"
	CodeMissingColumn  Code = "E104"
	CodeEmptyInput     Code = "E105"
	CodeInvalidConfig  Code = "E106"

	// Processing errors (2xx)
	CodeParseFailed     Code = "E201"
	CodeAnalysisFailed  Code = "E202"
	CodeContextCanceled Code = "E203"

	// Output errors (3xx)
	CodeWriteFailed  Code = "E301"
	CodeUploadFailed Code = "E302"
	CodeDuckDB       Code = "E303"

	CodeUnknown Code = "E999"
)

// Error is the structured error type used across claimflow.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface. Context keys are printed in sorted
// order so messages are stable.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Context[k])
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds a key/value pair to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps err with a code and message. Returns nil for a nil err.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// --- Convenience constructors ---

// FileNotFound reports a missing input file.
func FileNotFound(path string) *Error {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// MissingColumn reports a required column absent from the input header.
func MissingColumn(column string, available []string) *Error {
	return New(CodeMissingColumn, "required column not found").
		WithContext("column", column).
		WithContext("available", available)
}

// InvalidFormat reports an input format claimflow cannot read.
func InvalidFormat(format string) *Error {
	return New(CodeInvalidFormat, "unsupported input format").WithContext("format", format)
}

// WriteFailed reports a failed export.
func WriteFailed(path string, err error) *Error {
	return Wrap(err, CodeWriteFailed, "export failed").WithContext("path", path)
}

// --- Error checking utilities ---

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the code from err, or CodeUnknown.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:\n", len(m.Errors))
	for i, err := range m.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Add adds a non-nil error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
