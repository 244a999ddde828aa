package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/render"
)

func TestMapErrorPayload(t *testing.T) {
	t.Parallel()

	form := model.Form{Fields: []model.Field{
		{Name: "your_name"},
		{Name: "your_quest"},
		{Name: "tags"},
	}}
	payload := map[string][]string{
		"/body/your_name":      {"Name is required", " Name is required "},
		"$.data.your_quest":    {"Quest too short"},
		"tags[0]":              {"Tags must be unique"},
		"non_field_errors":     {"Form level error"},
		"request/body/swallow": {"Unknown field"},
		"":                     {"Unscoped"},
		"/body/your_quest/~1x": {"  "},
	}

	mapped := render.MapErrorPayload(form, payload)

	wantFields := map[string][]string{
		"your_name":  {"Name is required"},
		"your_quest": {"Quest too short"},
		"tags":       {"Tags must be unique"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	wantForm := []string{"Form level error", "Unknown field", "Unscoped"}
	if diff := cmp.Diff(wantForm, mapped.Form, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldMessagesMergesMaterializedAndRequestErrors(t *testing.T) {
	t.Parallel()

	form := model.Form{Fields: []model.Field{
		{Name: "age", Errors: []string{"engine: field \"age\": bad input"}},
		{Name: "name"},
		{Name: "quest"},
	}}
	got := render.FieldMessages(form, render.RenderOptions{Errors: map[string][]string{
		"age":  {"must be a number"},
		"name": {"required", "required"},
	}})
	want := map[string][]string{
		"age":  {"engine: field \"age\": bad input", "must be a number"},
		"name": {"required"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestMessagesAcceptPayloadPaths(t *testing.T) {
	t.Parallel()

	form := model.Form{Fields: []model.Field{{Name: "age"}}}
	options := render.RenderOptions{
		FormErrors: []string{"Try again"},
		Errors: map[string][]string{
			"/body/age":        {"too young"},
			"non_field_errors": {"Bridge closed"},
		},
	}
	if diff := cmp.Diff(map[string][]string{"age": {"too young"}}, render.FieldMessages(form, options)); diff != "" {
		t.Fatalf("field messages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Try again", "Bridge closed"}, render.FormMessages(form, options)); diff != "" {
		t.Fatalf("form messages mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFormErrors(t *testing.T) {
	t.Parallel()

	merged := render.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	if diff := cmp.Diff([]string{"First", "Second", "third"}, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}
