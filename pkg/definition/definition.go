// Package definition holds the data shape of a dynamic form: fields, their
// base options and the ordered modifiers that override those options at
// runtime. Definitions are plain data; loaders in sub-packages produce them
// from YAML/JSON, HCL or Postgres and the engine consumes them read-only.
package definition

import (
	"errors"
	"fmt"
	"strings"
)

// Option keys understood by the built-in field types. Modifiers may target
// any of them; unknown attributes are carried through to the presentation
// field untouched.
const (
	AttrLabel       = "label"
	AttrLabelSuffix = "label_suffix"
	AttrHelpText    = "help_text"
	AttrRequired    = "required"
	AttrInitial     = "initial"
	AttrHidden      = "hidden"
	AttrVisible     = "visible"
	AttrChoices     = "choices"
	AttrDisabled    = "disabled"
	AttrValue       = "value"
)

var knownAttributes = []string{
	AttrLabel, AttrLabelSuffix, AttrHelpText, AttrRequired, AttrInitial,
	AttrHidden, AttrVisible, AttrChoices, AttrDisabled, AttrValue,
}

// KnownAttributes returns the attribute names with built-in semantics.
func KnownAttributes() []string {
	out := make([]string, len(knownAttributes))
	copy(out, knownAttributes)
	return out
}

// IsKnownAttribute reports whether name has built-in semantics.
func IsKnownAttribute(name string) bool {
	for _, attr := range knownAttributes {
		if attr == name {
			return true
		}
	}
	return false
}

// Modifier overrides one option of its field with the result of Expression.
type Modifier struct {
	Attribute  string `json:"attribute" yaml:"attribute"`
	Expression string `json:"expression" yaml:"expression"`
}

// Field is a single form field definition.
type Field struct {
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Type      string         `json:"type" yaml:"type"`
	Options   map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
	Modifiers []Modifier     `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
}

// Label returns the configured label, falling back to the field name.
func (f Field) Label() string {
	if label, ok := f.Options[AttrLabel].(string); ok && strings.TrimSpace(label) != "" {
		return label
	}
	return f.Name
}

// Initial returns the field's initial option, or nil when unset.
func (f Field) Initial() any {
	if f.Options == nil {
		return nil
	}
	return f.Options[AttrInitial]
}

// Form is an ordered collection of fields.
type Form struct {
	FormatVersion string  `json:"format_version,omitempty" yaml:"format_version,omitempty"`
	Name          string  `json:"name,omitempty" yaml:"name,omitempty"`
	Label         string  `json:"label,omitempty" yaml:"label,omitempty"`
	Description   string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields        []Field `json:"fields" yaml:"fields"`
}

// Field returns the field called name.
func (f Form) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// FieldNames returns field names in definition order.
func (f Form) FieldNames() []string {
	names := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		names = append(names, field.Name)
	}
	return names
}

// ModifierCount returns the number of modifiers across all fields.
func (f Form) ModifierCount() int {
	total := 0
	for _, field := range f.Fields {
		total += len(field.Modifiers)
	}
	return total
}

// Normalize fills in derived names: a form or field without a name gets one
// slugified from its label. The receiver is not modified.
func (f Form) Normalize() Form {
	out := f
	if strings.TrimSpace(out.Name) == "" {
		out.Name = Slugify(out.Label)
	}
	out.Fields = make([]Field, len(f.Fields))
	for i, field := range f.Fields {
		if strings.TrimSpace(field.Name) == "" {
			if label, ok := field.Options[AttrLabel].(string); ok {
				field.Name = Slugify(label)
			}
		}
		out.Fields[i] = field
	}
	return out
}

// ErrInvalidDefinition is wrapped by every structural validation failure.
var ErrInvalidDefinition = errors.New("invalid form definition")

// Validate checks structural integrity: every field has a name and a type,
// names are unique and every modifier names an attribute and an expression.
// Expression validity is checked by the engine, not here.
func (f Form) Validate() error {
	seen := make(map[string]int, len(f.Fields))
	for i, field := range f.Fields {
		if strings.TrimSpace(field.Name) == "" {
			return fmt.Errorf("definition: field %d: name is required: %w", i, ErrInvalidDefinition)
		}
		if strings.TrimSpace(field.Type) == "" {
			return fmt.Errorf("definition: field %q: type is required: %w", field.Name, ErrInvalidDefinition)
		}
		if prev, ok := seen[field.Name]; ok {
			return fmt.Errorf("definition: field %q defined twice (positions %d and %d): %w", field.Name, prev, i, ErrInvalidDefinition)
		}
		seen[field.Name] = i
		for j, mod := range field.Modifiers {
			if strings.TrimSpace(mod.Attribute) == "" {
				return fmt.Errorf("definition: field %q modifier %d: attribute is required: %w", field.Name, j, ErrInvalidDefinition)
			}
			if strings.TrimSpace(mod.Expression) == "" {
				return fmt.Errorf("definition: field %q modifier %d: expression is required: %w", field.Name, j, ErrInvalidDefinition)
			}
		}
	}
	return nil
}
