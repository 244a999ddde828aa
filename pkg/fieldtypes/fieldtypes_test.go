package fieldtypes

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/widgets"
)

func TestDefaultRegistryHoldsBuiltins(t *testing.T) {
	t.Parallel()

	reg := Default()
	if got := len(reg.List()); got != 23 {
		t.Fatalf("expected 23 built-in types, got %d", got)
	}
	for _, key := range []string{SingleLineText, YesNoUnknownSelect, ImageUpload} {
		if !reg.Has(key) {
			t.Fatalf("expected %s to be registered", key)
		}
	}
	if _, err := reg.Get("NOPE"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestRegisterRejectsInvalidTypes(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Type{Kind: model.KindText}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if err := reg.Register(Type{Key: "X"}); err == nil {
		t.Fatalf("expected missing kind error")
	}
	reg.MustRegister(Type{Key: "X", Kind: model.KindText})
	if err := reg.Register(Type{Key: "X", Kind: model.KindText}); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestDefaultOptionsAreCopies(t *testing.T) {
	t.Parallel()

	reg := NewBuiltinRegistry()
	opts, err := reg.DefaultOptions(Integer)
	if err != nil {
		t.Fatalf("DefaultOptions: %v", err)
	}
	opts["min_value"] = 5
	again, _ := reg.DefaultOptions(Integer)
	if again["min_value"] != int32Min {
		t.Fatalf("defaults were mutated: %v", again["min_value"])
	}
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	reg := Default()
	cases := []struct {
		key  string
		raw  any
		want any
	}{
		{SingleLineText, "  Arthur  ", "Arthur"},
		{SingleLineText, 12, "12"},
		{Integer, "3", int64(3)},
		{Integer, "4.0", int64(4)},
		{Integer, 7.0, int64(7)},
		{Integer, "", nil},
		{Decimal, "2.5", 2.5},
		{Decimal, 2, 2.0},
		{Checkbox, "on", true},
		{Checkbox, "no", false},
		{Checkbox, nil, false},
		{YesNoUnknownRadio, "unknown", nil},
		{YesNoUnknownRadio, "yes", true},
		{Date, "12/25/2024", "2024-12-25"},
		{Time, "09:30", "09:30:00"},
		{DateTime, "2024-01-02 03:04", "2024-01-02T03:04:00Z"},
		{DateTime, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
		{Duration, "1h30m", 5400.0},
		{Duration, "1 02:00:00", 93600.0},
		{Duration, "01:30", 90.0},
		{SingleChoiceSelect, 3, "3"},
		{MultipleChoiceCheckbox, []string{"a", "b"}, []any{"a", "b"}},
		{MultipleChoiceCheckbox, "a", []any{"a"}},
		{MultipleChoiceCheckbox, nil, []any{}},
		{FileUpload, "", nil},
	}

	for _, tc := range cases {
		got, err := reg.Coerce(tc.key, tc.raw)
		if err != nil {
			t.Fatalf("Coerce(%s, %#v): %v", tc.key, tc.raw, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("Coerce(%s, %#v) mismatch (-want +got):\n%s", tc.key, tc.raw, diff)
		}
	}
}

func TestCoerceFailures(t *testing.T) {
	t.Parallel()

	reg := Default()
	cases := []struct {
		key string
		raw any
	}{
		{Integer, "three"},
		{Integer, "3.5"},
		{Integer, true},
		{Decimal, "abc"},
		{Checkbox, "maybe"},
		{Date, "2024-13-45"},
		{Duration, "soon"},
		{SingleChoiceSelect, []string{"a"}},
		{MultipleChoiceSelect, 42},
	}
	for _, tc := range cases {
		if _, err := reg.Coerce(tc.key, tc.raw); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Coerce(%s, %#v): expected ErrInvalidInput, got %v", tc.key, tc.raw, err)
		}
	}

	raw, err := reg.Coerce("NOPE", "x")
	if !errors.Is(err, ErrUnknownType) || raw != "x" {
		t.Fatalf("expected raw value and ErrUnknownType, got %v, %v", raw, err)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	cfg, err := Decode(map[string]any{
		"label":          "Quest",
		"required":       "true",
		"initial":        "grail",
		"visible":        0,
		"choices":        []any{"a", []any{"b", "Bee"}, map[string]any{"value": "c", "label": "Sea"}},
		"min_value":      1,
		"widget_options": map[string]any{"rows": 3},
		"colour":         "blue",
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Label != "Quest" || !cfg.Required || cfg.Initial != "grail" {
		t.Fatalf("unexpected scalar decode: %+v", cfg)
	}
	if !cfg.Hidden {
		t.Fatalf("visible=0 should hide the field")
	}
	wantChoices := []model.Choice{{Value: "a", Label: "a"}, {Value: "b", Label: "Bee"}, {Value: "c", Label: "Sea"}}
	if diff := cmp.Diff(wantChoices, cfg.Choices); diff != "" {
		t.Fatalf("choices mismatch (-want +got):\n%s", diff)
	}
	if cfg.MinValue == nil || *cfg.MinValue != 1 {
		t.Fatalf("expected min_value 1, got %v", cfg.MinValue)
	}
	if diff := cmp.Diff(map[string]any{"colour": "blue"}, cfg.Extra); diff != "" {
		t.Fatalf("extra mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeHiddenAndVisible(t *testing.T) {
	t.Parallel()

	cases := []struct {
		opts map[string]any
		want bool
	}{
		{map[string]any{}, false},
		{map[string]any{"hidden": true}, true},
		{map[string]any{"visible": true}, false},
		{map[string]any{"visible": "", "hidden": false}, true},
		{map[string]any{"visible": true, "hidden": true}, true},
	}
	for i, tc := range cases {
		cfg, err := Decode(tc.opts)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if cfg.Hidden != tc.want {
			t.Fatalf("case %d: expected hidden=%v", i, tc.want)
		}
	}
}

func TestDecodeRejectsBadTypes(t *testing.T) {
	t.Parallel()

	if _, err := Decode(map[string]any{"max_length": "lots"}); err == nil {
		t.Fatalf("expected decode error for a non-numeric max_length")
	}
}

func TestDecodeFlagsUseTruthiness(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value any
		want  bool
	}{
		{"Lancelot", true},
		{"", false},
		{"false", false},
		{"True", true},
		{[]any{int64(1)}, true},
		{[]any{}, false},
		{map[string]any{"a": 1}, true},
		{int64(0), false},
		{2.5, true},
		{nil, false},
	}
	for _, tc := range cases {
		cfg, err := Decode(map[string]any{"required": tc.value, "disabled": tc.value})
		if err != nil {
			t.Fatalf("Decode(%#v): %v", tc.value, err)
		}
		if cfg.Required != tc.want || cfg.Disabled != tc.want {
			t.Fatalf("Decode(%#v): expected required=disabled=%v, got %v/%v", tc.value, tc.want, cfg.Required, cfg.Disabled)
		}
	}
}

func TestParseChoices(t *testing.T) {
	t.Parallel()

	got, err := ParseChoices(map[string]any{"b": "Bee", "a": "Ay"})
	if err != nil {
		t.Fatalf("ParseChoices: %v", err)
	}
	want := []model.Choice{{Value: "a", Label: "Ay"}, {Value: "b", Label: "Bee"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	got, _ = ParseChoices("red, green,,blue")
	if len(got) != 3 || got[2].Value != "blue" {
		t.Fatalf("unexpected comma choices: %+v", got)
	}

	if _, err := ParseChoices([]any{[]any{1, 2, 3}}); err == nil {
		t.Fatalf("expected error for triple")
	}
}

func TestBuildField(t *testing.T) {
	t.Parallel()

	reg := Default()
	typ, err := reg.Get(Integer)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	opts, _ := reg.DefaultOptions(Integer)
	opts["label"] = "Age"
	opts["required"] = true
	opts["hidden"] = true
	opts["data_test"] = "age"
	cfg, err := Decode(opts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	field, err := typ.Build("age", cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if field.Required {
		t.Fatalf("hidden fields must never be required")
	}
	if field.Widget != widgets.WidgetNumber || field.Kind != model.KindInteger {
		t.Fatalf("unexpected widget/kind: %q %q", field.Widget, field.Kind)
	}
	wantRules := []model.ValidationRule{
		{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "-2147483648"}},
		{Kind: model.ValidationRuleMax, Params: map[string]string{"value": "2147483647"}},
	}
	if diff := cmp.Diff(wantRules, field.Validations); diff != "" {
		t.Fatalf("validations mismatch (-want +got):\n%s", diff)
	}
	if field.Attributes["data_test"] != "age" {
		t.Fatalf("custom attribute lost: %+v", field.Attributes)
	}

	bad := cfg
	lo, hi := 10.0, 1.0
	bad.MinValue, bad.MaxValue = &lo, &hi
	if _, err := typ.Build("age", bad); err == nil {
		t.Fatalf("expected bounds error")
	}
}

func TestCustomFactory(t *testing.T) {
	t.Parallel()

	typ := Type{Key: "SLIDER", Kind: model.KindInteger, Factory: func(ft Type, name string, cfg Config) (model.Field, error) {
		field, err := BuildField(ft, name, cfg)
		field.Widget = "range"
		return field, err
	}}
	field, err := typ.Build("volume", Config{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if field.Widget != "range" || field.Label != "volume" {
		t.Fatalf("unexpected field: %+v", field)
	}
}

func TestOptionKeys(t *testing.T) {
	t.Parallel()

	keys := OptionKeys()
	for _, want := range []string{"choices", "label", "max_length", "visible", "widget_options"} {
		found := false
		for _, key := range keys {
			if key == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %q in %v", want, keys)
		}
	}
	if !sort.StringsAreSorted(keys) {
		t.Fatalf("keys should be sorted: %v", keys)
	}
}
