package errors

import (
	"fmt"
	"io"
)

// ShapeError is the interface implemented by all shapegraph errors.
type ShapeError interface {
	error
	Loc() Location
	Kind() string // "Precondition", "Type", "Script"
	// Message returns the specific error message without location info.
	Message() string
	Unwrap() error
}

// --- Concrete Error Types ---

// PreconditionError reports a violated engine precondition: mutating a
// member that does not exist, adding to a non-extensible shape, changing a
// prototype to the one already installed. The engine panics with it; it is a
// bug in the calling layer, not a runtime-data condition.
type PreconditionError struct {
	Location
	Op    string // engine operation that detected the violation
	Msg   string
	Cause error
}

func (e *PreconditionError) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("Precondition violated in %s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("Precondition violated in %s at %s: %s", e.Op, e.Location, e.Msg)
}
func (e *PreconditionError) Loc() Location   { return e.Location }
func (e *PreconditionError) Kind() string    { return "Precondition" }
func (e *PreconditionError) Message() string { return e.Msg }
func (e *PreconditionError) Unwrap() error   { return e.Cause }
func (e *PreconditionError) At(loc Location) *PreconditionError {
	e.Location = loc
	return e
}

// Preconditionf builds a PreconditionError for op.
func Preconditionf(op, format string, args ...any) *PreconditionError {
	return &PreconditionError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// TypeError is an object-level rejection, the kind a language runtime would
// surface to user code (writing a read-only member, extending a frozen object).
type TypeError struct {
	Location
	Msg   string
	Cause error
}

func (e *TypeError) Error() string {
	if e.Location.IsZero() {
		return "TypeError: " + e.Msg
	}
	return fmt.Sprintf("TypeError at %s: %s", e.Location, e.Msg)
}
func (e *TypeError) Loc() Location   { return e.Location }
func (e *TypeError) Kind() string    { return "Type" }
func (e *TypeError) Message() string { return e.Msg }
func (e *TypeError) Unwrap() error   { return e.Cause }
func (e *TypeError) At(loc Location) *TypeError {
	e.Location = loc
	return e
}

// TypeErrorf builds a TypeError.
func TypeErrorf(format string, args ...any) *TypeError {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

// ScriptError represents a malformed mutation script or configuration file.
type ScriptError struct {
	Location
	Msg   string
	Cause error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("Script Error at %s: %s", e.Location, e.Msg)
}
func (e *ScriptError) Loc() Location   { return e.Location }
func (e *ScriptError) Kind() string    { return "Script" }
func (e *ScriptError) Message() string { return e.Msg }
func (e *ScriptError) Unwrap() error   { return e.Cause }
func (e *ScriptError) CausedBy(cause error) *ScriptError {
	e.Cause = cause
	return e
}

// --- Error Reporting ---

// DisplayErrors writes a list of errors to w, one block per error.
func DisplayErrors(w io.Writer, errs []ShapeError) {
	for _, err := range errs {
		loc := err.Loc()
		if loc.IsZero() {
			fmt.Fprintf(w, "%s Error: %s\n", err.Kind(), err.Message())
		} else {
			fmt.Fprintf(w, "%s Error at %s: %s\n", err.Kind(), loc, err.Message())
		}
		if cause := err.Unwrap(); cause != nil {
			fmt.Fprintf(w, "  caused by: %v\n", cause)
		}
	}
}
