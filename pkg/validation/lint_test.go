package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/expr/celexpr"
	"github.com/goliatone/go-flexforms/pkg/fieldtypes"
	"github.com/goliatone/go-flexforms/pkg/testsupport"
)

func summarize(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = fmt.Sprintf("%s|%s|%s|%s|%s", issue.Code, issue.Severity, issue.Field, issue.Attribute, issue.Suggestion)
	}
	return out
}

func TestLintCleanForm(t *testing.T) {
	t.Parallel()

	result := Lint(testsupport.QuestForm())
	if !result.Valid || len(result.Issues) != 0 {
		t.Fatalf("expected a clean result, got %v", result.Issues)
	}
	if result.Form != "bridge" {
		t.Fatalf("unexpected form name %q", result.Form)
	}
}

func TestLintReportsEveryProblem(t *testing.T) {
	t.Parallel()

	form := definition.Form{
		FormatVersion: "2.0.0",
		Name:          "broken",
		Fields: []definition.Field{
			{Name: "age", Type: "INTEGR"},
			{
				Name:    "name",
				Type:    fieldtypes.SingleLineText,
				Options: map[string]any{"lable": "Name"},
				Modifiers: []definition.Modifier{
					{Attribute: "requierd", Expression: "age > 3"},
					{Attribute: "type", Expression: "'EMAIL'"},
				},
			},
			{
				Name: "bad",
				Type: fieldtypes.SingleLineText,
				Modifiers: []definition.Modifier{
					{Attribute: "hidden", Expression: "age +"},
					{Attribute: "label", Expression: "name.upper()"},
					{Attribute: "help_text", Expression: "nmae + '?'"},
				},
			},
			{Name: "loop_a", Type: fieldtypes.Integer, Modifiers: []definition.Modifier{{Attribute: "hidden", Expression: "loop_b > 1"}}},
			{Name: "loop_b", Type: fieldtypes.Integer, Modifiers: []definition.Modifier{{Attribute: "hidden", Expression: "loop_a > 1"}}},
			{Name: "age", Type: fieldtypes.Integer},
			{Name: "range", Type: fieldtypes.Integer, Options: map[string]any{"min_value": 5, "max_value": 1}},
			{Type: fieldtypes.SingleLineText},
		},
	}

	result := Lint(form)
	if result.Valid {
		t.Fatalf("expected an invalid result")
	}
	want := []string{
		"format_version|error|||",
		"unknown_type|error|age||INTEGER",
		"unknown_option|warning|name|lable|label",
		"duplicate_name|error|age||",
		"invalid_options|error|range||",
		"missing_name|error|||",
		"unknown_attribute|warning|name|requierd|required",
		"unsupported_attribute|error|name|type|",
		"syntax|error|bad|hidden|",
		"unsafe|error|bad|label|",
		"undefined_reference|warning|bad|help_text|name",
		"cycle|error|loop_a||",
	}
	if diff := cmp.Diff(want, summarize(result.Issues)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
	for _, issue := range result.Issues {
		if issue.Form != "broken" {
			t.Fatalf("issue should carry the form name: %+v", issue)
		}
	}
	cycle := result.Issues[len(result.Issues)-1]
	if !strings.Contains(cycle.Message, "loop_a -> loop_b -> loop_a") {
		t.Fatalf("unexpected cycle message %q", cycle.Message)
	}
	if got := len(result.Warnings()); got != 3 {
		t.Fatalf("expected three warnings, got %d", got)
	}
	if got := len(result.Errors()); got != 9 {
		t.Fatalf("expected nine errors, got %d", got)
	}
}

func TestLintWarningsKeepFormValid(t *testing.T) {
	t.Parallel()

	form := definition.Form{Name: "extra", Fields: []definition.Field{{
		Name:      "comment",
		Type:      fieldtypes.MultiLineText,
		Options:   map[string]any{"rows": 4},
		Modifiers: []definition.Modifier{{Attribute: "required", Expression: "referrer == 'ads'"}},
	}}}

	result := Lint(form)
	if !result.Valid {
		t.Fatalf("warnings alone should not invalidate: %v", result.Issues)
	}
	if diff := cmp.Diff([]string{"undefined_reference|warning|comment|required|"}, summarize(result.Issues)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}

	result = Lint(form, WithInputs("referrer"))
	if len(result.Issues) != 0 {
		t.Fatalf("declared inputs should not be reported, got %v", result.Issues)
	}
}

func TestLintWithCEL(t *testing.T) {
	t.Parallel()

	form := definition.Form{Name: "cel", Fields: []definition.Field{
		{Name: "your_name", Type: fieldtypes.SingleLineText},
		{Name: "colour", Type: fieldtypes.SingleLineText, Modifiers: []definition.Modifier{
			{Attribute: "hidden", Expression: "your_name == 'Arthur'"},
			{Attribute: "required", Expression: "your_name =="},
		}},
	}}

	result := Lint(form, WithCompiler(celexpr.New()))
	if diff := cmp.Diff([]string{"syntax|error|colour|required|"}, summarize(result.Issues)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestIssueString(t *testing.T) {
	t.Parallel()

	issue := Issue{Field: "name", Attribute: "requierd", Severity: SeverityWarning, Message: "unknown", Suggestion: "required"}
	if got, want := issue.String(), `warning name.requierd: unknown (did you mean "required"?)`; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := (Issue{Severity: SeverityError, Message: "boom"}).String(); got != "error: boom" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestLintAll(t *testing.T) {
	t.Parallel()

	forms := []definition.Form{
		testsupport.QuestForm(),
		{Name: "typo", Fields: []definition.Field{{Name: "x", Type: "EMIAL"}}},
	}
	results, err := New().LintAll(context.Background(), forms)
	if err != nil {
		t.Fatalf("LintAll: %v", err)
	}
	if len(results) != 2 || !results[0].Valid || results[1].Valid {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[1].Issues[0].Suggestion != fieldtypes.Email {
		t.Fatalf("expected EMAIL suggestion, got %+v", results[1].Issues[0])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().LintAll(ctx, forms); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
