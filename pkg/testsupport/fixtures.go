// Package testsupport holds fixtures shared by the renderer and
// orchestrator tests.
package testsupport

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/fieldtypes"
	"github.com/goliatone/go-flexforms/pkg/materialize"
	"github.com/goliatone/go-flexforms/pkg/model"
)

// QuestForm returns the bridge-keeper form: a quest that becomes required
// when no name was given, and a colour question hidden from Arthur.
func QuestForm() definition.Form {
	return definition.Form{
		Name:  "bridge",
		Label: "The Bridge of Death",
		Fields: []definition.Field{
			{
				Name:    "your_name",
				Type:    fieldtypes.SingleLineText,
				Options: map[string]any{"label": "What... is your name?", "max_length": 40},
			},
			{
				Name:    "your_quest",
				Type:    fieldtypes.MultiLineText,
				Options: map[string]any{"label": "What... is your quest?", "help_text": "Be <b>honest</b>"},
				Modifiers: []definition.Modifier{
					{Attribute: definition.AttrRequired, Expression: "not your_name"},
				},
			},
			{
				Name: "favourite_colour",
				Type: fieldtypes.SingleChoiceSelect,
				Options: map[string]any{
					"label":   "What... is your favourite colour?",
					"choices": []any{[]any{"blue", "Blue"}, []any{"yellow", "Yellow"}},
				},
				Modifiers: []definition.Modifier{
					{Attribute: definition.AttrHidden, Expression: "your_name == 'Arthur'"},
				},
			},
			{
				Name:    "airspeed",
				Type:    fieldtypes.Integer,
				Options: map[string]any{"label": "Airspeed velocity", "min_value": 0},
			},
		},
	}
}

// MustMaterialize materializes def against values with the default catalog.
func MustMaterialize(t *testing.T, def definition.Form, values map[string]any) (model.Form, *materialize.Errors) {
	t.Helper()

	form, errs, err := materialize.New().Materialize(context.Background(), def, values)
	if err != nil {
		t.Fatalf("materialize %q: %v", def.Name, err)
	}
	return form, errs
}

// CaptureTemplateOutput runs render against a buffer and returns both the
// string result and what was written.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
