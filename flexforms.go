// Package flexforms is the single-import entry point to the dynamic forms
// engine. Definitions describe fields, their base options and modifiers,
// small sandboxed expressions that recompute an option (required, hidden,
// label, choices, ...) from the values submitted so far. Materialize runs
// one evaluation pass and returns the effective form.
package flexforms

import (
	"context"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/engine"
	"github.com/goliatone/go-flexforms/pkg/expr"
	"github.com/goliatone/go-flexforms/pkg/materialize"
	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/orchestrator"
	"github.com/goliatone/go-flexforms/pkg/render"
	"github.com/goliatone/go-flexforms/pkg/validation"
)

type (
	// Definition is a form definition as loaded from storage.
	Definition = definition.Form
	// FieldDefinition is one field of a Definition.
	FieldDefinition = definition.Field
	// Modifier overrides one option of a field with an expression result.
	Modifier = definition.Modifier
	// Form is the effective, presentation-ready form.
	Form = model.Form
	// Errors collects per-field failures of an evaluation pass.
	Errors = materialize.Errors
	// FieldError is one entry of Errors.
	FieldError = engine.FieldError
	// Plan is a compiled definition ready for repeated passes.
	Plan = materialize.Plan
	// RenderOptions describes per-request render overrides.
	RenderOptions = render.RenderOptions
	// Request describes one orchestrated materialize-and-render pass.
	Request = orchestrator.Request
	// LintResult is the outcome of Lint.
	LintResult = validation.Result
)

// Materialize evaluates the modifiers of fields against values and builds
// the effective form. Failing modifiers are reported in Errors and the form
// is still returned; a dependency cycle or an unknown field type fails the
// whole call.
func Materialize(ctx context.Context, fields []FieldDefinition, values map[string]any, opts ...materialize.Option) (Form, *Errors, error) {
	return MaterializeDefinition(ctx, Definition{Fields: fields}, values, opts...)
}

// MaterializeDefinition is Materialize for a complete definition.
func MaterializeDefinition(ctx context.Context, def Definition, values map[string]any, opts ...materialize.Option) (Form, *Errors, error) {
	return materialize.New(opts...).Materialize(ctx, def, values)
}

// Compile validates def and schedules its modifiers once so that
// Plan.Materialize can be called for many submissions.
func Compile(def Definition, opts ...materialize.Option) (*Plan, error) {
	return materialize.New(opts...).Compile(def)
}

// Evaluate runs a single expression in the default sandbox.
func Evaluate(expression string, vars map[string]any) (any, error) {
	return expr.Evaluate(expression, vars)
}

// References returns the variable names expression reads without running
// it.
func References(expression string) ([]string, error) {
	return expr.ExtractReferences(expression)
}

// Lint reports every problem found in def.
func Lint(def Definition, opts ...validation.Option) LintResult {
	return validation.Lint(def, opts...)
}

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Generate resolves ref (a YAML/JSON/HCL path or "pg:<name>"), materializes
// it against values and renders it with the named renderer ("html" when
// empty).
func Generate(ctx context.Context, ref string, values map[string]any, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Generate(ctx, orchestrator.Request{
		Ref:      ref,
		Values:   values,
		Renderer: rendererName,
	})
}
