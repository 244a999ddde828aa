// Package expr implements the sandboxed expression language used by field
// modifiers. Expressions are single Python-style expressions over literals,
// variables and a fixed table of helper functions:
//
//	your_name if your_name else "stranger"
//	quantity * 2 > limit and not disabled
//	"Mr." if title in ["mr", "sir"] else ""
//
// Attribute access, subscripts, assignment, statements, dunder names and
// calls to anything but a registered helper are rejected at compile time
// with ErrUnsafeConstruct. Evaluation failures wrap ErrEvaluation, missing
// variables wrap ErrUndefinedReference and parse failures wrap
// ErrExpressionSyntax.
package expr
