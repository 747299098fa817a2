// Package nebulaerrors provides the structured error taxonomy used across the
// ORM layer. Every failure surfaced by the schema registry, the pool manager,
// the query executor and the record protocol is an *Error carrying a type that
// callers can branch on.
//
// # Error Types
//
//   - ErrorTypeSchema: a record type declaration is invalid (missing or
//     duplicate primary key). Raised only at registration.
//   - ErrorTypeConfig: pool configuration is missing a required key or holds
//     an out-of-range value.
//   - ErrorTypeArgument: a caller passed a malformed limit shape or an args
//     list that does not match the statement's placeholder count.
//   - ErrorTypeQuery: the database client failed while executing, fetching,
//     committing or rolling back.
//   - ErrorTypeConnection: a connection could not be acquired, or the pool is
//     not in the ready state.
//
// An absent row is never an error: Find and FindNumber return a nil result.
//
// # Basic Usage
//
//	if _, err := table.FindAll(ctx, opts); err != nil {
//	    if nebulaerrors.IsType(err, nebulaerrors.ErrorTypeArgument) {
//	        // caller bug, do not retry
//	    }
//	}
//
// # Stack Traces
//
// Stack traces are captured at creation points. Wrapping an *Error keeps the
// stack of the innermost structured error.
package nebulaerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeSchema represents invalid record type declarations
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeArgument represents caller contract violations
	ErrorTypeArgument ErrorType = "argument"
	// ErrorTypeValidation represents invalid record state
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeQuery represents query execution errors
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeConnection represents connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
)

// Error represents a structured error with context.
//
// Fields:
//   - Type: Categorizes the error for handling strategies
//   - Message: Human-readable error description
//   - Cause: The underlying error that caused this error
//   - Details: Key-value pairs providing additional context
//   - Stack: Call stack at the point of error creation
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

// WithDetail adds a key-value detail to the error. Calls can be chained.
//
// Example:
//
//	err := nebulaerrors.New(nebulaerrors.ErrorTypeSchema, "duplicate primary key").
//	    WithDetail("model", "User").
//	    WithDetail("attribute", "email")
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a previously attached detail.
func (e *Error) Detail(key string) (interface{}, bool) {
	v, ok := e.Details[key]
	return v, ok
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

// Newf is New with a format string.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context, preserving the original
// error as the cause. If the error is already a structured Error, its stack
// trace is preserved. Returns nil if the input error is nil.
//
// Example:
//
//	rows, err := conn.QueryContext(ctx, query, args...)
//	if err != nil {
//	    return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeQuery, "query failed")
//	}
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

// IsRetryable reports whether the error is transient. Only connection and
// timeout errors qualify; schema, config and argument errors are caller bugs
// and query errors depend on the statement.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeConnection:
		return true
	default:
		return false
	}
}

// IsType checks if the outermost structured error is of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// captureStack captures the current call stack up to maxFrames deep,
// skipping the specified number of frames from the top.
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
