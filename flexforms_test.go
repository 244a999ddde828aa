package flexforms_test

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"

	flexforms "github.com/goliatone/go-flexforms"
	"github.com/goliatone/go-flexforms/pkg/engine"
	"github.com/goliatone/go-flexforms/pkg/expr"
	"github.com/goliatone/go-flexforms/pkg/testsupport"
)

func TestMaterializeFields(t *testing.T) {
	t.Parallel()

	fields := testsupport.QuestForm().Fields
	form, errs, err := flexforms.Materialize(context.Background(), fields, map[string]any{"your_name": "Arthur"})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if errs.Len() != 0 {
		t.Fatalf("unexpected errors: %v", errs.Err())
	}
	colour, _ := form.Field("favourite_colour")
	quest, _ := form.Field("your_quest")
	if !colour.Hidden || quest.Required {
		t.Fatalf("unexpected overlay: colour=%+v quest=%+v", colour, quest)
	}
}

func TestCompileRejectsCycles(t *testing.T) {
	t.Parallel()

	def := flexforms.Definition{Name: "loop", Fields: []flexforms.FieldDefinition{
		{Name: "a", Type: "CHECKBOX", Modifiers: []flexforms.Modifier{{Attribute: "hidden", Expression: "b"}}},
		{Name: "b", Type: "CHECKBOX", Modifiers: []flexforms.Modifier{{Attribute: "hidden", Expression: "a"}}},
	}}
	if _, err := flexforms.Compile(def); !errors.Is(err, engine.ErrCyclicDependency) {
		t.Fatalf("expected cycle, got %v", err)
	}
	if result := flexforms.Lint(def); result.Valid {
		t.Fatalf("lint should flag the cycle")
	}
}

func TestExpressionHelpers(t *testing.T) {
	t.Parallel()

	got, err := flexforms.Evaluate("'yes' if age >= 18 else 'no'", map[string]any{"age": 21})
	if err != nil || got != "yes" {
		t.Fatalf("Evaluate = %v, %v", got, err)
	}
	refs, err := flexforms.References("not your_name and age > limit")
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if diff := cmp.Diff([]string{"age", "limit", "your_name"}, refs); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}
	if _, err := flexforms.Evaluate("__import__('os')", nil); !errors.Is(err, expr.ErrUnsafeConstruct) {
		t.Fatalf("expected unsafe construct, got %v", err)
	}
}

func TestParsers(t *testing.T) {
	t.Parallel()

	def, err := flexforms.ParseDefinition([]byte(`{"name": "one", "fields": [{"name": "x", "type": "INTEGER"}]}`), "one.json")
	if err != nil || def.Name != "one" || len(def.Fields) != 1 {
		t.Fatalf("ParseDefinition = %+v, %v", def, err)
	}
	defs, err := flexforms.ParseHCL([]byte(`form "two" {
  field "y" {
    type = "CHECKBOX"
  }
}
`), "two.hcl")
	if err != nil || len(defs) != 1 || defs[0].Name != "two" {
		t.Fatalf("ParseHCL = %+v, %v", defs, err)
	}
}

func TestEmbeddedTemplates(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"form.tpl", "field.tpl"} {
		if _, err := fs.Stat(flexforms.EmbeddedTemplates(), name); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}
