package orchestrator_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-flexforms/pkg/orchestrator"
	"github.com/goliatone/go-flexforms/pkg/testsupport"
	"github.com/goliatone/go-flexforms/pkg/widgets"
)

const preset = `{
  "metadata": {"layout": "compact"},
  "fields": {
    "your_quest": {"label": "Quest", "widget": "text", "metadata": {"section": "intro"}},
    "favourite_colour": {"help_text": "Pick one", "widget": "radio"}
  }
}`

func TestJSONPresetTransformerFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"presets/bridge.json": {Data: []byte(preset)}}
	transformer, err := orchestrator.NewJSONPresetTransformerFromFS(fsys, "presets/bridge.json")
	if err != nil {
		t.Fatalf("new json transformer: %v", err)
	}

	form, _ := testsupport.MustMaterialize(t, testsupport.QuestForm(), map[string]any{"your_name": "Arthur"})
	if err := transformer.Transform(context.Background(), &form); err != nil {
		t.Fatalf("apply transformer: %v", err)
	}

	if form.Metadata["layout"] != "compact" {
		t.Fatalf("metadata patch missing: %#v", form.Metadata)
	}
	quest, _ := form.Field("your_quest")
	if quest.Label != "Quest" || quest.Widget != "text" || quest.Metadata["section"] != "intro" {
		t.Fatalf("field patch not applied: %+v", quest)
	}
	colour, _ := form.Field("favourite_colour")
	if colour.HelpText != "Pick one" || colour.Widget != widgets.WidgetHidden {
		t.Fatalf("hidden field should keep its widget: %+v", colour)
	}
}

func TestJSONPresetTransformerErrors(t *testing.T) {
	t.Parallel()

	if _, err := orchestrator.NewJSONPresetTransformer([]byte("  ")); err == nil {
		t.Fatalf("expected empty document error")
	}
	if _, err := orchestrator.NewJSONPresetTransformer([]byte("{")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := orchestrator.NewJSONPresetTransformerFromFS(nil, "x.json"); err == nil {
		t.Fatalf("expected nil filesystem error")
	}

	transformer, err := orchestrator.NewJSONPresetTransformer([]byte(`{"fields": {"grail": {"label": "Grail"}}}`))
	if err != nil {
		t.Fatalf("new json transformer: %v", err)
	}
	form, _ := testsupport.MustMaterialize(t, testsupport.QuestForm(), nil)
	if err := transformer.Transform(context.Background(), &form); err == nil {
		t.Fatalf("expected unknown field error")
	}
}
