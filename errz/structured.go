// Package errz defines the structured error type shared by the compiler and
// the virtual machine. Every failure surfaces as an *Error carrying one of a
// closed set of kinds, the source location of the failing construct, and a
// call-stack traceback for runtime errors.
package errz

import (
	"bytes"
	"fmt"
	"strings"
)

// ErrorKind represents the category of an error. The set is closed: runtime
// and compile failures always map to exactly one of these kinds.
type ErrorKind int

const (
	// ErrGeneric indicates a general runtime error (assert failures, etc).
	ErrGeneric ErrorKind = iota
	// ErrCompile indicates the compiler rejected the program.
	ErrCompile
	// ErrUndefinedVariable indicates a reference to an unknown local name.
	ErrUndefinedVariable
	// ErrUndefinedGlobal indicates a reference to an unknown global name.
	ErrUndefinedGlobal
	// ErrAssign indicates an invalid assignment, such as to an immutable binding.
	ErrAssign
	// ErrType indicates a type mismatch or invalid operation on a type.
	ErrType
	// ErrDivisionByZero indicates integer division or modulo by zero.
	ErrDivisionByZero
	// ErrIndexOutOfBounds indicates a sequence subscript outside its bounds.
	ErrIndexOutOfBounds
	// ErrNotCallable indicates a call on a value that is not callable.
	ErrNotCallable
	// ErrArityMismatch indicates a call with the wrong number of arguments.
	ErrArityMismatch
	// ErrUnknownField indicates access to a missing field or method.
	ErrUnknownField
	// ErrStackOverflow indicates the call depth limit was exceeded.
	ErrStackOverflow
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrCompile:
		return "compile error"
	case ErrUndefinedVariable:
		return "undefined variable"
	case ErrUndefinedGlobal:
		return "undefined global"
	case ErrAssign:
		return "assign error"
	case ErrType:
		return "type error"
	case ErrDivisionByZero:
		return "division by zero"
	case ErrIndexOutOfBounds:
		return "index out of bounds"
	case ErrNotCallable:
		return "not callable"
	case ErrArityMismatch:
		return "arity mismatch"
	case ErrUnknownField:
		return "unknown field"
	case ErrStackOverflow:
		return "stack overflow"
	default:
		return "error"
	}
}

// Error is a structured error with a kind, source location, and stack trace.
type Error struct {
	Message  string
	Kind     ErrorKind
	Location SourceLocation
	Stack    []StackFrame
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Location)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two *Errors match when their
// kinds are equal, so callers can test for a kind with errors.Is(err,
// &errz.Error{Kind: errz.ErrType}).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	if other.Message != "" && other.Message != e.Message {
		return false
	}
	return other.Kind == e.Kind
}

// WithCause wraps the error with a cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// FriendlyMessage returns a human-friendly message with the source location
// and a traceback when one was captured.
func (e *Error) FriendlyMessage() string {
	var msg bytes.Buffer
	if e.Location.IsZero() {
		fmt.Fprintf(&msg, "%s: %s\n", e.Kind, e.Message)
	} else {
		fmt.Fprintf(&msg, "%s: %s\n  --> %s\n", e.Kind, e.Message, e.Location)
	}
	if len(e.Stack) > 0 {
		msg.WriteString("\n")
		msg.WriteString(FormatStackTrace(e.Stack))
	}
	return strings.TrimRight(msg.String(), "\n") + "\n"
}

// New creates a new Error with the given kind and message.
func New(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At returns a copy of the error annotated with a source location, unless a
// location was already set.
func (e *Error) At(loc SourceLocation) *Error {
	if !e.Location.IsZero() {
		return e
	}
	clone := *e
	clone.Location = loc
	return &clone
}

// WithStack returns a copy of the error annotated with a stack trace, unless
// a trace was already attached.
func (e *Error) WithStack(stack []StackFrame) *Error {
	if len(e.Stack) > 0 {
		return e
	}
	clone := *e
	clone.Stack = stack
	return &clone
}
