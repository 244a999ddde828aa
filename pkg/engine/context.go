package engine

import (
	"sort"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/expr"
)

// Coercer cleans a raw value for a field type. Implementations return the
// raw value and a nil error for types they do not handle.
type Coercer interface {
	Coerce(fieldType string, raw any) (any, error)
}

// CoercerFunc adapts a function to Coercer.
type CoercerFunc func(fieldType string, raw any) (any, error)

func (f CoercerFunc) Coerce(fieldType string, raw any) (any, error) {
	return f(fieldType, raw)
}

// Context is the read-only set of values expressions are evaluated against.
// It holds every form field (the submitted value, else the field's initial
// option) plus any extra submitted keys.
type Context struct {
	values map[string]any
}

// NewContext builds the evaluation context for one pass. Values the coercer
// rejects stay in the context as submitted and are reported as field errors.
func NewContext(fields []definition.Field, submitted map[string]any, coercer Coercer) (Context, []FieldError) {
	values := make(map[string]any, len(fields)+len(submitted))
	for name, raw := range submitted {
		values[name] = expr.Normalize(raw)
	}

	var errs []FieldError
	for _, field := range fields {
		raw, ok := submitted[field.Name]
		if !ok {
			raw = field.Initial()
		}
		value := raw
		if coercer != nil {
			cleaned, err := coercer.Coerce(field.Type, raw)
			if err != nil {
				errs = append(errs, FieldError{Field: field.Name, Err: err})
			} else {
				value = cleaned
			}
		}
		values[field.Name] = expr.Normalize(value)
	}
	return Context{values: values}, errs
}

// ContextFromValues wraps an already prepared value map. The map is copied.
func ContextFromValues(values map[string]any) Context {
	out := make(map[string]any, len(values))
	for name, value := range values {
		out[name] = expr.Normalize(value)
	}
	return Context{values: out}
}

// Get returns the value bound to name.
func (c Context) Get(name string) (any, bool) {
	value, ok := c.values[name]
	return value, ok
}

// Has reports whether name is bound.
func (c Context) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Len returns the number of bound names.
func (c Context) Len() int { return len(c.values) }

// Names returns the bound names in sorted order.
func (c Context) Names() []string {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns a shallow copy of the bindings.
func (c Context) Values() map[string]any {
	out := make(map[string]any, len(c.values))
	for name, value := range c.values {
		out[name] = value
	}
	return out
}

// missing returns the names in refs that are not bound.
func (c Context) missing(refs []string) []string {
	var out []string
	for _, ref := range refs {
		if _, ok := c.values[ref]; !ok {
			out = append(out, ref)
		}
	}
	return out
}
