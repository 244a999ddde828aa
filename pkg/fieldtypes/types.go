package fieldtypes

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-flexforms/pkg/model"
)

// CoerceFunc cleans a raw submitted value into the field's native type.
type CoerceFunc func(raw any) (any, error)

// Factory builds the presentation field for one field definition from its
// decoded, effective configuration.
type Factory func(t Type, name string, cfg Config) (model.Field, error)

// Type describes one entry of the field-type catalog.
type Type struct {
	// Key is the tag definitions use in their `type`, e.g. "SINGLE_LINE_TEXT".
	Key string
	// Label is the human-friendly name of the type.
	Label string
	Kind  model.ValueKind
	// Widget is the default widget; the `widget` option overrides it.
	Widget string
	// Options are default options merged underneath the definition's own.
	Options map[string]any
	// WidgetOptions are default widget options merged underneath the
	// `widget_options` option.
	WidgetOptions map[string]any
	Coerce        CoerceFunc
	Factory       Factory
}

// Build runs the type's factory, falling back to BuildField.
func (t Type) Build(name string, cfg Config) (model.Field, error) {
	if t.Factory != nil {
		return t.Factory(t, name, cfg)
	}
	return BuildField(t, name, cfg)
}

// BuildField is the default factory. Hidden fields are never required.
func BuildField(t Type, name string, cfg Config) (model.Field, error) {
	field := model.Field{
		Name:        name,
		Type:        t.Key,
		Kind:        t.Kind,
		Widget:      t.Widget,
		Label:       cfg.Label,
		LabelSuffix: cfg.LabelSuffix,
		HelpText:    cfg.HelpText,
		Required:    cfg.Required && !cfg.Hidden,
		Hidden:      cfg.Hidden,
		Disabled:    cfg.Disabled,
		Initial:     cfg.Initial,
		Value:       cfg.Value,
		Choices:     cfg.Choices,
	}
	if strings.TrimSpace(cfg.Widget) != "" {
		field.Widget = cfg.Widget
	}
	if field.Label == "" {
		field.Label = name
	}

	if len(t.WidgetOptions) > 0 || len(cfg.WidgetOptions) > 0 {
		field.WidgetOptions = make(map[string]any, len(t.WidgetOptions)+len(cfg.WidgetOptions))
		for k, v := range t.WidgetOptions {
			field.WidgetOptions[k] = v
		}
		for k, v := range cfg.WidgetOptions {
			field.WidgetOptions[k] = v
		}
	}
	if len(cfg.Extra) > 0 {
		field.Attributes = make(map[string]any, len(cfg.Extra))
		for k, v := range cfg.Extra {
			field.Attributes[k] = v
		}
	}
	field.Validations = validations(cfg)

	if cfg.MinValue != nil && cfg.MaxValue != nil && *cfg.MinValue > *cfg.MaxValue {
		return model.Field{}, fmt.Errorf("fieldtypes: %s: min_value %v exceeds max_value %v", name, *cfg.MinValue, *cfg.MaxValue)
	}
	return field, nil
}

func validations(cfg Config) []model.ValidationRule {
	var rules []model.ValidationRule
	add := func(kind, value string) {
		rules = append(rules, model.ValidationRule{Kind: kind, Params: map[string]string{"value": value}})
	}
	if cfg.MinValue != nil {
		add(model.ValidationRuleMin, strconv.FormatFloat(*cfg.MinValue, 'f', -1, 64))
	}
	if cfg.MaxValue != nil {
		add(model.ValidationRuleMax, strconv.FormatFloat(*cfg.MaxValue, 'f', -1, 64))
	}
	if cfg.MaxLength != nil {
		add(model.ValidationRuleMaxLength, strconv.Itoa(*cfg.MaxLength))
	}
	if cfg.MaxDigits != nil {
		add(model.ValidationRuleMaxDigits, strconv.Itoa(*cfg.MaxDigits))
	}
	if cfg.DecimalPlaces != nil {
		add(model.ValidationRuleDecimals, strconv.Itoa(*cfg.DecimalPlaces))
	}
	if strings.TrimSpace(cfg.Pattern) != "" {
		rules = append(rules, model.ValidationRule{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": cfg.Pattern}})
	}
	return rules
}

// Keys returns the sorted keys of the supplied types.
func Keys(types []Type) []string {
	keys := make([]string, 0, len(types))
	for _, t := range types {
		keys = append(keys, t.Key)
	}
	sort.Strings(keys)
	return keys
}
