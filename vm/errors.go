package vm

import (
	"fmt"

	"github.com/chazu/tessera/compiler"
)

// ---------------------------------------------------------------------------
// Evaluation and linkage errors
// ---------------------------------------------------------------------------

// ErrorKind classifies an evaluation failure.
type ErrorKind int

const (
	ErrUnbound ErrorKind = iota
	ErrTypeMismatch
	ErrNotCallable
	ErrArity
	ErrDivideByZero
	ErrRedefinition
	ErrStepLimit
	ErrCanceled
	ErrNative
	ErrStackOverflow
)

var errorKindNames = map[ErrorKind]string{
	ErrUnbound:       "unbound name",
	ErrTypeMismatch:  "type mismatch",
	ErrNotCallable:   "not callable",
	ErrArity:         "arity mismatch",
	ErrDivideByZero:  "division by zero",
	ErrRedefinition:  "redefinition",
	ErrStepLimit:     "step limit exceeded",
	ErrCanceled:      "canceled",
	ErrNative:        "native error",
	ErrStackOverflow: "stack overflow",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// EvalError is a fatal evaluation failure. It unwinds every active frame
// and aborts the run; it is never caught by script code.
type EvalError struct {
	Kind   ErrorKind
	Module string
	Pos    compiler.Position
	Msg    string
	Err    error // underlying cause for ErrNative and ErrCanceled
}

func (e *EvalError) Error() string {
	loc := e.Module
	if e.Pos.Line > 0 {
		if loc != "" {
			loc += ":"
		}
		loc += e.Pos.String()
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", loc, e.Kind, e.Msg)
}

func (e *EvalError) Unwrap() error { return e.Err }

// evalErr builds an EvalError without location; the interpreter fills in
// module and position when the error crosses a node.
func evalErr(kind ErrorKind, format string, args ...interface{}) *EvalError {
	return &EvalError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// LinkError reports an import that cannot be resolved or that closes a
// cycle. Linking happens before any statement of the importing module runs.
type LinkError struct {
	Module string
	Msg    string
	Err    error
}

func (e *LinkError) Error() string {
	if e.Module == "" {
		return "link error: " + e.Msg
	}
	return fmt.Sprintf("link error in %s: %s", e.Module, e.Msg)
}

func (e *LinkError) Unwrap() error { return e.Err }
