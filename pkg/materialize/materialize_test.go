package materialize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/engine"
	"github.com/goliatone/go-flexforms/pkg/expr"
	"github.com/goliatone/go-flexforms/pkg/fieldtypes"
	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/widgets"
)

func questDefinition() definition.Form {
	return definition.Form{
		Name:  "bridge",
		Label: "The Bridge of Death",
		Fields: []definition.Field{
			{Name: "your_name", Type: fieldtypes.SingleLineText, Options: map[string]any{"label": "What... is your name?"}},
			{
				Name:    "your_quest",
				Type:    fieldtypes.SingleLineText,
				Options: map[string]any{"label": "What... is your quest?"},
				Modifiers: []definition.Modifier{
					{Attribute: "required", Expression: "not your_name"},
				},
			},
			{
				Name:    "favourite_colour",
				Type:    fieldtypes.SingleChoiceSelect,
				Options: map[string]any{"choices": []any{[]any{"blue", "Blue"}, []any{"yellow", "Yellow"}}},
				Modifiers: []definition.Modifier{
					{Attribute: "visible", Expression: "your_name != 'Arthur'"},
					{Attribute: "required", Expression: "True"},
				},
			},
		},
	}
}

func TestMaterializeAppliesOverlay(t *testing.T) {
	t.Parallel()

	m := New()
	form, errs, err := m.Materialize(context.Background(), questDefinition(), map[string]any{"your_name": ""})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if errs.Len() != 0 {
		t.Fatalf("unexpected errors: %v", errs.Err())
	}

	quest, ok := form.Field("your_quest")
	if !ok || !quest.Required {
		t.Fatalf("your_quest should be required: %+v", quest)
	}
	if quest.Label != "What... is your quest?" || quest.Widget != widgets.WidgetText {
		t.Fatalf("unexpected quest field: %+v", quest)
	}
	colour, _ := form.Field("favourite_colour")
	wantChoices := []model.Choice{{Value: "blue", Label: "Blue"}, {Value: "yellow", Label: "Yellow"}}
	if diff := cmp.Diff(wantChoices, colour.Choices); diff != "" {
		t.Fatalf("choices mismatch (-want +got):\n%s", diff)
	}
	if colour.Hidden || !colour.Required || colour.Widget != widgets.WidgetSelect {
		t.Fatalf("unexpected colour field: %+v", colour)
	}
}

func TestMaterializeHiddenFieldsAreNeverRequired(t *testing.T) {
	t.Parallel()

	plan, err := New().Compile(questDefinition())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	form, _, err := plan.Materialize(context.Background(), map[string]any{"your_name": "Arthur"})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	colour, _ := form.Field("favourite_colour")
	if !colour.Hidden || colour.Required || colour.Widget != widgets.WidgetHidden {
		t.Fatalf("expected hidden optional field, got %+v", colour)
	}
	name, _ := form.Field("your_name")
	if name.Value != "Arthur" {
		t.Fatalf("submitted value should be carried, got %#v", name.Value)
	}
	quest, _ := form.Field("your_quest")
	if quest.Required {
		t.Fatalf("your_quest should be optional once a name is given")
	}
	if got := len(form.Visible()); got != 2 {
		t.Fatalf("expected two visible fields, got %d", got)
	}
}

func TestMaterializeDropsOverridesTheTypeRejects(t *testing.T) {
	t.Parallel()

	def := definition.Form{Name: "ages", Fields: []definition.Field{{
		Name: "age",
		Type: fieldtypes.Integer,
		Modifiers: []definition.Modifier{
			{Attribute: "min_value", Expression: "'lots'"},
			{Attribute: "label", Expression: "'Age'"},
			{Attribute: "help_text", Expression: "1 / 0"},
		},
	}}}

	form, errs, err := New().Materialize(context.Background(), def, nil)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	age, _ := form.Field("age")
	if age.Label != "Age" {
		t.Fatalf("valid overrides should still apply, got label %q", age.Label)
	}
	if errs.Len() != 2 {
		t.Fatalf("expected two errors, got %v", errs.All())
	}
	all := errs.All()
	if !errors.Is(all[0], expr.ErrEvaluation) || all[0].Attribute != "help_text" {
		t.Fatalf("expected evaluation error first, got %v", all[0])
	}
	if all[1].Attribute != "min_value" || all[1].Expression != "'lots'" {
		t.Fatalf("expected rejected min_value override, got %v", all[1])
	}
	if len(age.Errors) != 2 {
		t.Fatalf("errors should be attached to the field, got %v", age.Errors)
	}
	if diff := cmp.Diff([]string{"age"}, errs.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterializeCoercesInput(t *testing.T) {
	t.Parallel()

	def := definition.Form{Name: "coerce", Fields: []definition.Field{
		{Name: "age", Type: fieldtypes.Integer},
		{Name: "guardian", Type: fieldtypes.SingleLineText, Modifiers: []definition.Modifier{
			{Attribute: "required", Expression: "age < 18"},
		}},
	}}
	form, errs, err := New().Materialize(context.Background(), def, map[string]any{"age": "12"})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if errs != nil {
		t.Fatalf("unexpected errors %v", errs.Err())
	}
	guardian, _ := form.Field("guardian")
	if !guardian.Required {
		t.Fatalf("guardian should be required for a minor")
	}
	age, _ := form.Field("age")
	if age.Value != int64(12) {
		t.Fatalf("expected coerced value, got %#v", age.Value)
	}

	_, errs, err = New().Materialize(context.Background(), def, map[string]any{"age": "twelve"})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(errs.For("age")) != 1 || len(errs.For("guardian")) != 1 {
		t.Fatalf("expected input and evaluation errors, got %v", errs.All())
	}
}

func TestMaterializeTruthyFlagOverrides(t *testing.T) {
	t.Parallel()

	def := questDefinition()
	def.Fields[1].Modifiers = []definition.Modifier{{Attribute: "required", Expression: "your_name or 'x'"}}
	def.Fields[2].Modifiers = []definition.Modifier{{Attribute: "disabled", Expression: "[1]"}}

	form, errs, err := New().Materialize(context.Background(), def, map[string]any{"your_name": "Lancelot"})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if errs.Len() != 0 {
		t.Fatalf("truthy overrides should apply cleanly, got %v", errs.All())
	}
	quest, _ := form.Field("your_quest")
	if !quest.Required {
		t.Fatalf("a non-empty string should make your_quest required")
	}
	colour, _ := form.Field("favourite_colour")
	if !colour.Disabled {
		t.Fatalf("a non-empty list should disable favourite_colour")
	}

	form, _, err = New().Materialize(context.Background(), def, map[string]any{"your_name": ""})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	quest, _ = form.Field("your_quest")
	if !quest.Required {
		t.Fatalf("'x' should still make your_quest required")
	}
}

func TestCompileFailures(t *testing.T) {
	t.Parallel()

	_, err := New().Compile(definition.Form{Fields: []definition.Field{{Name: "x", Type: "HOLOGRAM"}}})
	if !errors.Is(err, ErrUnknownFieldType) {
		t.Fatalf("expected unknown field type, got %v", err)
	}

	_, err = New().Compile(definition.Form{Fields: []definition.Field{
		{Name: "a", Type: fieldtypes.Integer, Modifiers: []definition.Modifier{{Attribute: "hidden", Expression: "b"}}},
		{Name: "b", Type: fieldtypes.Integer, Modifiers: []definition.Modifier{{Attribute: "hidden", Expression: "a"}}},
	}})
	if !engine.IsCycle(err) {
		t.Fatalf("expected cycle, got %v", err)
	}

	_, err = New().Compile(definition.Form{Fields: []definition.Field{
		{Name: "n", Type: fieldtypes.Integer, Options: map[string]any{"min_value": 5, "max_value": 1}},
	}})
	if err == nil || !strings.Contains(err.Error(), "exceeds max_value") {
		t.Fatalf("expected bounds error, got %v", err)
	}
}

func TestDecoratorsRunLast(t *testing.T) {
	t.Parallel()

	stamp := model.DecoratorFunc(func(form *model.Form) error {
		if form.Metadata == nil {
			form.Metadata = map[string]string{}
		}
		form.Metadata["widget.your_quest"] = form.Fields[1].Widget
		return nil
	})
	form, _, err := New(WithDecorators(stamp)).Materialize(context.Background(), questDefinition(), nil)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if form.Metadata["widget.your_quest"] != widgets.WidgetText {
		t.Fatalf("decorator should see resolved widgets, got %v", form.Metadata)
	}
}

func TestMaterializeHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := New().Materialize(ctx, questDefinition(), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNilErrorsAreEmpty(t *testing.T) {
	t.Parallel()

	var errs *Errors
	if errs.Len() != 0 || errs.All() != nil || errs.For("x") != nil || errs.Err() != nil {
		t.Fatalf("nil Errors should behave as empty")
	}
}
