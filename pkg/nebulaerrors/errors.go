// Package nebulaerrors provides structured error handling for the agent with
// error categorization, key-value context and stack traces.
//
// # Overview
//
// Reader errors fall into a small set of categories. The category decides how
// the caller reacts:
//
//   - ErrorTypeConfig: a required setting is missing or malformed (fatal)
//   - ErrorTypeConnection: connection or query-open failure (fatal)
//   - ErrorTypeSchema: result metadata could not be introspected (fatal)
//   - ErrorTypeRowRead: cursor advance or value encoding failed (fatal)
//   - ErrorTypeResourceClose: a resource failed to close during teardown
//     (never returned to callers, only logged)
//
// # Basic Usage
//
//	if err := rows.Err(); err != nil {
//	    return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeRowRead, "cursor advance failed").
//	        WithDetail("query", query)
//	}
//
// # Thread Safety
//
// Error instances are not thread-safe for modification. Use WithDetail before
// sharing an error across goroutines.
package nebulaerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of an error.
type ErrorType string

const (
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents invalid arguments or state
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeConnection represents connection and query-open errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeSchema represents result metadata introspection errors
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeRowRead represents cursor advance and value encoding errors
	ErrorTypeRowRead ErrorType = "row_read"
	// ErrorTypeResourceClose represents teardown errors
	ErrorTypeResourceClose ErrorType = "resource_close"
	// ErrorTypeSink represents downstream delivery errors
	ErrorTypeSink ErrorType = "sink"
)

// Error represents a structured error with context.
//
// Fields:
//   - Type: categorizes the error
//   - Message: human-readable description
//   - Cause: the underlying error
//   - Details: key-value pairs with additional context
//   - Stack: call stack at the point of creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	Function string // Fully qualified function name
	File     string // Source file path
	Line     int    // Line number in source file
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error. It can be chained.
//
// Example:
//
//	err := nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "missing setting").
//	    WithDetail("key", "job.sqlserverJob.hostname")
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message, capturing the
// call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with a type and message, preserving the
// original error as the cause. If err is already a structured Error its stack
// is preserved. Returns nil if err is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether the outermost structured error in err's chain has
// the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsFatal reports whether err must stop the reader. Only resource close
// errors are non-fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !IsType(err, ErrorTypeResourceClose)
}

// IsRetryable reports whether a connection attempt that failed with err may
// be retried. Configuration errors are never retried.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return true
	}

	switch e.Type {
	case ErrorTypeConnection:
		return true
	default:
		return false
	}
}

// captureStack captures the call stack, skipping the given number of frames.
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
