package model

// ValueKind classifies the runtime value a field collects.
type ValueKind string

const (
	KindText            ValueKind = "text"
	KindInteger         ValueKind = "integer"
	KindDecimal         ValueKind = "decimal"
	KindBoolean         ValueKind = "boolean"
	KindNullableBoolean ValueKind = "nullable_boolean"
	KindDate            ValueKind = "date"
	KindTime            ValueKind = "time"
	KindDateTime        ValueKind = "datetime"
	KindDuration        ValueKind = "duration"
	KindChoice          ValueKind = "choice"
	KindMultiChoice     ValueKind = "multi_choice"
	KindFile            ValueKind = "file"
)

const (
	ValidationRuleMin       = "min"
	ValidationRuleMax       = "max"
	ValidationRuleMaxLength = "maxLength"
	ValidationRuleMaxDigits = "maxDigits"
	ValidationRuleDecimals  = "decimalPlaces"
	ValidationRulePattern   = "pattern"
)

// ValidationRule represents a single constraint derived from the field type
// and its options. Thresholds are encoded in Params["value"] as strings to
// keep JSON snapshots stable.
type ValidationRule struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

// Choice is a selectable option. Value keeps its native type (bools for the
// yes/no types, nil for "unknown").
type Choice struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Field is the effective, per-submission configuration of one form field
// after modifier overrides have been merged.
type Field struct {
	Name          string            `json:"name"`
	Type          string            `json:"type"`
	Kind          ValueKind         `json:"kind"`
	Widget        string            `json:"widget"`
	Label         string            `json:"label,omitempty"`
	LabelSuffix   string            `json:"labelSuffix,omitempty"`
	HelpText      string            `json:"helpText,omitempty"`
	Required      bool              `json:"required"`
	Hidden        bool              `json:"hidden,omitempty"`
	Disabled      bool              `json:"disabled,omitempty"`
	Initial       any               `json:"initial,omitempty"`
	Value         any               `json:"value,omitempty"`
	Choices       []Choice          `json:"choices,omitempty"`
	WidgetOptions map[string]any    `json:"widgetOptions,omitempty"`
	Attributes    map[string]any    `json:"attributes,omitempty"`
	Validations   []ValidationRule  `json:"validations,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Errors        []string          `json:"errors,omitempty"`
}

// Form is the top-level representation renderers consume.
type Form struct {
	Name        string            `json:"name"`
	Label       string            `json:"label,omitempty"`
	Description string            `json:"description,omitempty"`
	Fields      []Field           `json:"fields"`
	Metadata    map[string]string `json:"metadata,omitempty"`
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

// Visible returns the fields that are not hidden, in order.
func (f Form) Visible() []Field {
	out := make([]Field, 0, len(f.Fields))
	for _, field := range f.Fields {
		if !field.Hidden {
			out = append(out, field)
		}
	}
	return out
}
