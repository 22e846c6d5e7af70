package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/rubric/vm"
)

// SyntaxError reports source that does not parse. It unwraps to a
// vm.RuntimeError of kind SyntaxError so callers can test for it with
// vm.IsKind.
type SyntaxError struct {
	File string
	Line int
	Msg  string

	// Incomplete is set when the parser ran out of input, so more lines
	// could still complete the program.
	Incomplete bool
}

// IsIncomplete reports whether err is a syntax error caused by input that
// ended too early.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se) && se.Incomplete
}

func (e *SyntaxError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: syntax error, %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: syntax error, %s", e.File, e.Line, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return vm.NewRuntimeError(vm.SyntaxError, e.Msg)
}

// EvalError attaches the source location where a runtime error surfaced.
// Errors are wrapped once, at the innermost location.
type EvalError struct {
	File string
	Line int
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// ---------------------------------------------------------------------------
// Non-local control flow
// ---------------------------------------------------------------------------

// Control flow that leaves a block or loop travels up the Go call stack as
// an error until the construct it targets catches it.

// breakSignal leaves the loop or block call it targets. A nil tag targets
// the innermost while, until or for loop.
type breakSignal struct {
	tag   *vm.Proc
	value vm.Value
}

func (*breakSignal) Error() string { return "break from proc-closure" }

// nextSignal ends the current block call or loop iteration.
type nextSignal struct {
	value vm.Value
}

func (*nextSignal) Error() string { return "next used outside of block" }

// returnSignal unwinds to the method, lambda or file frame home.
type returnSignal struct {
	home  *frame
	value vm.Value
}

func (*returnSignal) Error() string { return "unexpected return" }

func isSignal(err error) bool {
	switch err.(type) {
	case *breakSignal, *nextSignal, *returnSignal:
		return true
	}
	return false
}

// localJump converts a control signal that escaped every frame able to
// catch it into a LocalJumpError.
func localJump(err error) error {
	if isSignal(err) {
		return vm.NewRuntimeError(vm.LocalJumpError, err.Error())
	}
	return err
}

// located wraps err with a source location unless it already carries one
// or is a control signal.
func located(file string, line int, err error) error {
	if err == nil || isSignal(err) {
		return err
	}
	var ee *EvalError
	if errors.As(err, &ee) {
		return err
	}
	var se *SyntaxError
	if errors.As(err, &se) {
		return err
	}
	return &EvalError{File: file, Line: line, Err: err}
}
