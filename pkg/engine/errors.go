package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/goliatone/go-flexforms/pkg/expr"
)

// ErrCyclicDependency is matched by every *CyclicDependencyError.
var ErrCyclicDependency = errors.New("cyclic dependency")

// CyclicDependencyError reports modifiers that depend on each other. Cycle
// lists the fields on one cycle with the first name repeated at the end.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "engine: cyclic dependency: " + strings.Join(e.Cycle, " -> ")
}

// Is lets errors.Is(err, ErrCyclicDependency) match.
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// FieldError is a locally recovered failure attached to one field. Attribute
// and Expression are empty for failures that are not tied to a modifier,
// such as an input value the field type could not coerce.
type FieldError struct {
	Field      string
	Attribute  string
	Expression string
	Err        error
}

func (e FieldError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("engine: field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("engine: field %q attribute %q: %v", e.Field, e.Attribute, e.Err)
}

func (e FieldError) Unwrap() error { return e.Err }

// Kind classifies the error for logs and metrics. Failures outside the
// expression taxonomy are reported as "input".
func (e FieldError) Kind() string {
	if kind := expr.Kind(e.Err); kind != "unknown" {
		return kind
	}
	return "input"
}

// joinFieldErrors aggregates errs into a *multierror.Error, or nil.
func joinFieldErrors(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	var result *multierror.Error
	for _, err := range errs {
		result = multierror.Append(result, err)
	}
	result.ErrorFormat = formatErrors
	return result
}

func formatErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = "  * " + err.Error()
	}
	return fmt.Sprintf("%d field errors:\n%s", len(errs), strings.Join(lines, "\n"))
}
