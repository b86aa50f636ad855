package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeErrorMessageIncludesKind(t *testing.T) {
	err := NewRuntimeError("stack underflow")
	assert.True(t, strings.HasPrefix(err.Error(), "RuntimeError: stack underflow"))
}

func TestCompileErrorIncludesLocation(t *testing.T) {
	err := NewCompileError("unplaced label", "main.ss", 12, 4)
	assert.Contains(t, err.Error(), "main.ss:12:4")
}

func TestWithSourceAddsCaretLine(t *testing.T) {
	err := NewCompileError("unexpected token", "main.ss", 3, 5).WithSource("x = 1 +")
	msg := err.Error()
	assert.Contains(t, msg, "x = 1 +")
	assert.Contains(t, msg, "^")
}

func TestAddStackFrameAppendsInOrder(t *testing.T) {
	err := NewRuntimeError("null dereference")
	err.AddStackFrame("main", "main.ss", 1, 1)
	err.AddStackFrame("update", "main.ss", 10, 2)

	require.Len(t, err.CallStack, 2)
	assert.Equal(t, "main", err.CallStack[0].Function)
	assert.Equal(t, "update", err.CallStack[1].Function)

	msg := err.Error()
	assert.True(t, strings.Index(msg, "main (") < strings.Index(msg, "update ("))
}

func TestSetDiagnosticsOverridesCallbacks(t *testing.T) {
	var logged, failed string
	SetDiagnostics(
		func(msg string) { logged = msg },
		func(msg string) { failed = msg },
	)
	defer SetDiagnostics(
		func(msg string) { logged = "" },
		func(msg string) { panic(msg) },
	)

	Log("heap cell %d is empty", 3)
	assert.Equal(t, "heap cell 3 is empty", logged)

	Fatal("unresolved CALL target %q", "update")
	assert.Equal(t, `unresolved CALL target "update"`, failed)
}

func TestNilCallbackLeavesExistingOneInstalled(t *testing.T) {
	var logged string
	SetDiagnostics(func(msg string) { logged = msg }, nil)
	SetDiagnostics(nil, func(msg string) { panic(msg) })

	Log("still wired")
	assert.Equal(t, "still wired", logged)
}
