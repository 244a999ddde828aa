package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/expr"
)

// Overlay maps field name -> attribute -> value computed by a modifier.
type Overlay map[string]map[string]any

// Get returns the override for one attribute of field.
func (o Overlay) Get(field, attribute string) (any, bool) {
	attrs, ok := o[field]
	if !ok {
		return nil, false
	}
	value, ok := attrs[attribute]
	return value, ok
}

// Fields returns the overridden field names in sorted order.
func (o Overlay) Fields() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o Overlay) set(field, attribute string, value any) {
	attrs, ok := o[field]
	if !ok {
		attrs = make(map[string]any)
		o[field] = attrs
	}
	attrs[attribute] = value
}

// Apply evaluates the modifiers of fields in schedule order against ctx and
// collects their results. Within a field modifiers run in definition order,
// so the last modifier of an attribute wins. A modifier that fails leaves its
// attribute untouched and is reported as a FieldError; the pass continues.
//
// Modifiers reading a name that is neither bound in ctx nor a declared field
// are skipped with an ErrUndefinedReference field error. An undefined
// reference raised during evaluation means order was not produced from
// fields and is returned as a fatal error.
func Apply(fields []definition.Field, ctx Context, order []string, programs Programs) (Overlay, []FieldError, error) {
	byName := make(map[string]definition.Field, len(fields))
	for _, field := range fields {
		byName[field.Name] = field
	}

	overlay := Overlay{}
	var errs []FieldError
	for _, name := range order {
		field, ok := byName[name]
		if !ok {
			continue
		}
		compiled := programs[name]
		for i, mod := range field.Modifiers {
			if i >= len(compiled) || compiled[i] == nil {
				continue
			}
			prog := compiled[i]
			if missing := ctx.missing(prog.References()); len(missing) > 0 {
				errs = append(errs, FieldError{
					Field:      name,
					Attribute:  mod.Attribute,
					Expression: mod.Expression,
					Err:        danglingError(mod.Expression, missing),
				})
				continue
			}

			value, err := prog.Eval(ctx.values)
			if err != nil {
				if errors.Is(err, expr.ErrUndefinedReference) {
					return nil, nil, fmt.Errorf("engine: field %q attribute %q evaluated before its inputs: %w", name, mod.Attribute, err)
				}
				errs = append(errs, FieldError{
					Field:      name,
					Attribute:  mod.Attribute,
					Expression: mod.Expression,
					Err:        err,
				})
				continue
			}
			overlay.set(name, mod.Attribute, value)
		}
	}
	return overlay, errs, nil
}

func danglingError(expression string, missing []string) error {
	return &expr.Error{
		Kind:       expr.ErrUndefinedReference,
		Expression: expression,
		Pos:        -1,
		Msg:        fmt.Sprintf("%s not a field of this form", quoteNames(missing)),
	}
}

func quoteNames(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	if len(quoted) == 1 {
		return quoted[0] + " is"
	}
	return strings.Join(quoted, ", ") + " are"
}
