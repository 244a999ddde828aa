package materialize

import (
	"github.com/hashicorp/go-multierror"

	"github.com/goliatone/go-flexforms/pkg/engine"
)

// Errors collects the field errors of one materialization in the order they
// were recorded. A nil *Errors holds no errors.
type Errors struct {
	list []engine.FieldError
}

func newErrors(errs []engine.FieldError) *Errors {
	if len(errs) == 0 {
		return nil
	}
	out := make([]engine.FieldError, len(errs))
	copy(out, errs)
	return &Errors{list: out}
}

// Len returns the number of errors.
func (e *Errors) Len() int {
	if e == nil {
		return 0
	}
	return len(e.list)
}

// All returns every error.
func (e *Errors) All() []engine.FieldError {
	if e == nil {
		return nil
	}
	out := make([]engine.FieldError, len(e.list))
	copy(out, e.list)
	return out
}

// For returns the errors attached to field.
func (e *Errors) For(field string) []engine.FieldError {
	if e == nil {
		return nil
	}
	var out []engine.FieldError
	for _, err := range e.list {
		if err.Field == field {
			out = append(out, err)
		}
	}
	return out
}

// Fields returns the names of fields with errors, in first-error order.
func (e *Errors) Fields() []string {
	if e == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, err := range e.list {
		if !seen[err.Field] {
			seen[err.Field] = true
			out = append(out, err.Field)
		}
	}
	return out
}

// Err returns the errors as a *multierror.Error, or nil.
func (e *Errors) Err() error {
	if e.Len() == 0 {
		return nil
	}
	var result *multierror.Error
	for _, err := range e.list {
		result = multierror.Append(result, err)
	}
	return result
}
