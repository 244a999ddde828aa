package fieldtypes

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/expr"
	"github.com/goliatone/go-flexforms/pkg/model"
)

// Config is the typed view of a field's effective options.
type Config struct {
	Label         string         `mapstructure:"label"`
	LabelSuffix   string         `mapstructure:"label_suffix"`
	HelpText      string         `mapstructure:"help_text"`
	Required      bool           `mapstructure:"required"`
	Initial       any            `mapstructure:"initial"`
	Hidden        bool           `mapstructure:"hidden"`
	Disabled      bool           `mapstructure:"disabled"`
	Value         any            `mapstructure:"value"`
	Choices       []model.Choice `mapstructure:"choices"`
	Widget        string         `mapstructure:"widget"`
	WidgetOptions map[string]any `mapstructure:"widget_options"`
	MinValue      *float64       `mapstructure:"min_value"`
	MaxValue      *float64       `mapstructure:"max_value"`
	MaxLength     *int           `mapstructure:"max_length"`
	MaxDigits     *int           `mapstructure:"max_digits"`
	DecimalPlaces *int           `mapstructure:"decimal_places"`
	Pattern       string         `mapstructure:"pattern"`
	// Extra holds options without built-in meaning; they are passed through
	// to the presentation field's Attributes.
	Extra map[string]any `mapstructure:",remain"`
}

// Decode converts loose options into a Config. Input is weakly typed, and
// the flag attributes (required, disabled, hidden, visible) take the
// truthiness of any value, so `your_name or 'x'` makes a field required.
// `visible` is folded into Hidden: a field is hidden when hidden is truthy
// or visible is falsy.
func Decode(options map[string]any) (Config, error) {
	input := make(map[string]any, len(options))
	for k, v := range options {
		input[k] = v
	}
	for _, flag := range []string{definition.AttrRequired, definition.AttrDisabled} {
		if v, ok := input[flag]; ok {
			input[flag] = truthyFlag(v)
		}
	}
	hidden := false
	if v, ok := input[definition.AttrVisible]; ok {
		hidden = !expr.Truthy(v)
		delete(input, definition.AttrVisible)
	}
	if v, ok := input[definition.AttrHidden]; ok {
		hidden = hidden || expr.Truthy(v)
		delete(input, definition.AttrHidden)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(choicesHook),
	})
	if err != nil {
		return Config{}, fmt.Errorf("fieldtypes: decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return Config{}, fmt.Errorf("fieldtypes: decode options: %w", err)
	}
	cfg.Hidden = hidden
	return cfg, nil
}

// truthyFlag reads "true"/"false" spelled as strings in definition files
// as booleans; every other value uses expression truthiness.
func truthyFlag(v any) bool {
	if str, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(str)) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return expr.Truthy(v)
}

var choiceSliceType = reflect.TypeOf([]model.Choice(nil))

// choicesHook accepts the common spellings of a choice list: a list of
// scalars, a list of [value, label] pairs, a list of {value, label} maps, a
// value->label map or a comma separated string.
func choicesHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != choiceSliceType || data == nil {
		return data, nil
	}
	if _, ok := data.([]model.Choice); ok {
		return data, nil
	}
	return ParseChoices(data)
}

// ParseChoices normalises a loose choice specification.
func ParseChoices(data any) ([]model.Choice, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case []model.Choice:
		return v, nil
	case string:
		var out []model.Choice
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, model.Choice{Value: part, Label: part})
		}
		return out, nil
	}

	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]model.Choice, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			choice, err := parseChoice(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("choice %d: %w", i, err)
			}
			out = append(out, choice)
		}
		return out, nil
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		labels := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, key)
			labels[key] = iter.Value().Interface()
		}
		sort.Strings(keys)
		out := make([]model.Choice, 0, len(keys))
		for _, key := range keys {
			out = append(out, model.Choice{Value: key, Label: expr.Format(labels[key])})
		}
		return out, nil
	}
	return []model.Choice{{Value: data, Label: expr.Format(data)}}, nil
}

func parseChoice(item any) (model.Choice, error) {
	switch v := item.(type) {
	case model.Choice:
		return v, nil
	case map[string]any:
		value, hasValue := v["value"]
		label, hasLabel := v["label"]
		if !hasValue && !hasLabel {
			return model.Choice{}, fmt.Errorf("expected value/label keys")
		}
		if !hasValue {
			value = label
		}
		if !hasLabel {
			label = value
		}
		return model.Choice{Value: value, Label: expr.Format(label)}, nil
	}

	rv := reflect.ValueOf(item)
	if item != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		switch rv.Len() {
		case 1:
			value := rv.Index(0).Interface()
			return model.Choice{Value: value, Label: expr.Format(value)}, nil
		case 2:
			return model.Choice{Value: rv.Index(0).Interface(), Label: expr.Format(rv.Index(1).Interface())}, nil
		default:
			return model.Choice{}, fmt.Errorf("expected [value, label] pair, got %d items", rv.Len())
		}
	}
	if rv.Kind() == reflect.Map {
		normalized := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			normalized[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return parseChoice(normalized)
	}
	return model.Choice{Value: item, Label: expr.Format(item)}, nil
}

// OptionKeys lists the option names Config understands, plus visible,
// sorted.
func OptionKeys() []string {
	keys := []string{definition.AttrVisible}
	typ := reflect.TypeOf(Config{})
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("mapstructure")
		if tag == "" || strings.HasPrefix(tag, ",") {
			continue
		}
		keys = append(keys, tag)
	}
	sort.Strings(keys)
	return keys
}
