package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Runtime error taxonomy
// ---------------------------------------------------------------------------

// CycleError reports an include that would make a module its own ancestor.
// The registry is left unchanged.
type CycleError struct {
	Target *Class
	Module *Class
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic include detected: %s into %s", e.Module.FullName(), e.Target.FullName())
}

// VisibilityError reports a private or protected method called from outside
// its allowed call context.
type VisibilityError struct {
	Name       string
	Visibility Visibility
	Receiver   string // class name of the receiver
}

func (e *VisibilityError) Error() string {
	return fmt.Sprintf("%s method `%s' called for %s", e.Visibility, e.Name, e.Receiver)
}

// NotFoundError reports that no ancestor defines a method. It is produced
// by the default method_missing, so it only reaches callers once the
// fallback hook declined to handle the message.
type NotFoundError struct {
	Name     string
	Receiver string
	Super    bool
}

func (e *NotFoundError) Error() string {
	if e.Super {
		return fmt.Sprintf("super: no superclass method `%s' for %s", e.Name, e.Receiver)
	}
	return fmt.Sprintf("undefined method `%s' for %s", e.Name, e.Receiver)
}

// FileNotFoundError reports a load path that resolved nowhere.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("no such file to load -- %s", e.Path)
}

// Error kinds carried by RuntimeError.
const (
	ArgumentError     = "ArgumentError"
	TypeError         = "TypeError"
	NameError         = "NameError"
	IndexError        = "IndexError"
	ZeroDivisionError = "ZeroDivisionError"
	SyntaxError       = "SyntaxError"
	LocalJumpError    = "LocalJumpError"
	RangeError        = "RangeError"
	KeyError          = "KeyError"
	FloatDomainError  = "FloatDomainError"
	StandardError     = "RuntimeError"
)

// RuntimeError is a language-level failure with a class-like kind name.
type RuntimeError struct {
	Kind    string
	Message string
}

// NewRuntimeError creates a RuntimeError of the given kind.
func NewRuntimeError(kind, msg string) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: msg}
}

// Errorf creates a RuntimeError with a formatted message.
func Errorf(kind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *RuntimeError) Error() string {
	return e.Kind + ": " + e.Message
}

// IsKind reports whether err is (or wraps) a RuntimeError of the given kind.
func IsKind(err error, kind string) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Kind == kind
}

func argCountError(got, want int) error {
	return Errorf(ArgumentError, "wrong number of arguments (%d for %d)", got, want)
}
