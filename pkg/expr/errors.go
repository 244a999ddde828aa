package expr

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one of
// them so callers can branch with errors.Is.
var (
	// ErrExpressionSyntax reports an expression that does not parse.
	ErrExpressionSyntax = errors.New("expression syntax error")
	// ErrUnsafeConstruct reports a construct the sandbox refuses to run
	// (attribute access, subscripts, assignment, disallowed calls, ...).
	ErrUnsafeConstruct = errors.New("unsafe construct")
	// ErrUndefinedReference reports a variable missing from the evaluation
	// variables.
	ErrUndefinedReference = errors.New("undefined reference")
	// ErrEvaluation reports a runtime failure of a valid, safe expression
	// (type mismatch, division by zero, overflow, ...).
	ErrEvaluation = errors.New("evaluation error")
)

// Error carries the failing expression and the byte offset of the offending
// token when one is known (Pos is -1 otherwise).
type Error struct {
	Kind       error
	Expression string
	Pos        int
	Msg        string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Pos >= 0 {
		return fmt.Sprintf("expr: %s: %s (offset %d in %q)", e.Kind, e.Msg, e.Pos, e.Expression)
	}
	return fmt.Sprintf("expr: %s: %s (in %q)", e.Kind, e.Msg, e.Expression)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

func newError(kind error, src string, pos int, format string, args ...any) *Error {
	return &Error{
		Kind:       kind,
		Expression: src,
		Pos:        pos,
		Msg:        fmt.Sprintf(format, args...),
	}
}

// Kind classifies err into a short label usable as a metric or log value:
// "syntax", "unsafe", "undefined", "runtime" or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExpressionSyntax):
		return "syntax"
	case errors.Is(err, ErrUnsafeConstruct):
		return "unsafe"
	case errors.Is(err, ErrUndefinedReference):
		return "undefined"
	case errors.Is(err, ErrEvaluation):
		return "runtime"
	default:
		return "unknown"
	}
}
