// Package errors implements the runtime's two-strata diagnostics model: a
// typed error carrying source location and call-stack context, plus a
// process-wide installable log/fatal callback pair mirroring
// surgescript_util_set_error_functions from the original C runtime.
package errors

import (
	"fmt"
	"log"
	"strings"
)

// Kind distinguishes the two error strata the runtime ever raises.
type Kind string

const (
	RuntimeError Kind = "RuntimeError"
	CompileError Kind = "CompileError"
)

// SourceLocation represents a location in source code.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// StackFrame represents a single frame in the call stack at the point an
// error was raised.
type StackFrame struct {
	Function string
	File     string
	Line     int
	Column   int
}

// EmberError is the module's typed error: a Kind and message plus optional
// source location and call-stack context. The runtime packages report their
// fatal conditions through Fatal rather than by returning an EmberError.
type EmberError struct {
	Kind      Kind
	Message   string
	Location  SourceLocation
	CallStack []StackFrame
	Source    string
}

// Error implements the error interface.
func (e *EmberError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))

	if e.Location.File != "" {
		sb.WriteString(fmt.Sprintf("\n  at %s:%d:%d", e.Location.File, e.Location.Line, e.Location.Column))
		if e.Source != "" {
			sb.WriteString(fmt.Sprintf("\n  %d | %s", e.Location.Line, e.Source))
			if e.Location.Column > 0 {
				sb.WriteString(fmt.Sprintf("\n  %s^", strings.Repeat(" ", len(fmt.Sprintf("%d | ", e.Location.Line))+e.Location.Column-1)))
			}
		}
	}

	if len(e.CallStack) > 0 {
		sb.WriteString("\nCall Stack:")
		for _, frame := range e.CallStack {
			if frame.Function != "" {
				sb.WriteString(fmt.Sprintf("\n  at %s (%s:%d:%d)", frame.Function, frame.File, frame.Line, frame.Column))
			} else {
				sb.WriteString(fmt.Sprintf("\n  at %s:%d:%d", frame.File, frame.Line, frame.Column))
			}
		}
	}

	return sb.String()
}

// NewRuntimeError creates an error for a failure discovered while a
// program is executing (null dereference, empty heap cell, stack
// underflow, unresolved CALL target).
func NewRuntimeError(message string) *EmberError {
	return &EmberError{Kind: RuntimeError, Message: message}
}

// NewCompileError creates an error for a failure discovered while building
// a Program (an unplaced label, a duplicate function parameter).
func NewCompileError(message string, file string, line, column int) *EmberError {
	return &EmberError{
		Kind:    CompileError,
		Message: message,
		Location: SourceLocation{
			File:   file,
			Line:   line,
			Column: column,
		},
	}
}

// WithSource attaches the source line the error occurred on.
func (e *EmberError) WithSource(source string) *EmberError {
	e.Source = source
	return e
}

// WithStack attaches a call stack.
func (e *EmberError) WithStack(stack []StackFrame) *EmberError {
	e.CallStack = stack
	return e
}

// AddStackFrame appends a single call-stack frame, innermost call last.
func (e *EmberError) AddStackFrame(function, file string, line, column int) *EmberError {
	e.CallStack = append(e.CallStack, StackFrame{
		Function: function,
		File:     file,
		Line:     line,
		Column:   column,
	})
	return e
}

// logFunc and fatalFunc are the installable diagnostics callbacks,
// mirroring surgescript_util_set_error_functions. The defaults write to
// the standard logger and panic; an embedder installs its own pair via
// SetDiagnostics to intercept both without the runtime needing to know
// anything about its host.
var (
	logFunc   = func(msg string) { log.Print(msg) }
	fatalFunc = func(msg string) { panic(msg) }
)

// SetDiagnostics installs custom log and fatal callbacks. Passing nil for
// either leaves that callback unchanged.
func SetDiagnostics(logFn, fatalFn func(string)) {
	if logFn != nil {
		logFunc = logFn
	}
	if fatalFn != nil {
		fatalFunc = fatalFn
	}
}

// Log reports a non-fatal diagnostic through the installed log callback.
func Log(format string, args ...interface{}) {
	logFunc(fmt.Sprintf(format, args...))
}

// Fatal reports an unrecoverable diagnostic through the installed fatal
// callback. The default callback panics, so Fatal does not return; if an
// embedder installs a callback that returns, Fatal returns to its caller.
func Fatal(format string, args ...interface{}) {
	fatalFunc(fmt.Sprintf(format, args...))
}
