// Package schema renders a materialized form as an OpenAPI 3 schema object.
//
// The schema reflects the effective configuration of one submission: the
// required list, bounds and choices are the ones modifiers produced.
// Presentation details that JSON Schema has no keyword for are carried in
// x-flexforms-* extensions.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-flexforms/pkg/expr"
	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/render"
)

// Name is the registry name of the schema renderer.
const Name = "schema"

// Extension keys.
const (
	ExtForm     = "x-flexforms-form"
	ExtOrder    = "x-flexforms-order"
	ExtType     = "x-flexforms-type"
	ExtWidget   = "x-flexforms-widget"
	ExtHidden   = "x-flexforms-hidden"
	ExtDisabled = "x-flexforms-disabled"
	ExtChoices  = "x-flexforms-choices"
	ExtValue    = "x-flexforms-value"
	ExtErrors   = "x-flexforms-errors"
	ExtUnit     = "x-flexforms-unit"
	ExtWidgetOp = "x-flexforms-widget-options"
)

// Renderer implements render.Renderer.
type Renderer struct {
	indent string
}

var _ render.Renderer = (*Renderer)(nil)

// Option configures the renderer.
type Option func(*Renderer)

// WithIndent pretty-prints the output.
func WithIndent(indent string) Option {
	return func(r *Renderer) {
		r.indent = indent
	}
}

// New constructs the renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Renderer) Name() string        { return Name }
func (r *Renderer) ContentType() string { return "application/schema+json" }

// Render marshals Build(form, options).
func (r *Renderer) Render(ctx context.Context, form model.Form, options render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schema := Build(form, options)
	var (
		out []byte
		err error
	)
	if r.indent != "" {
		out, err = json.MarshalIndent(schema, "", r.indent)
	} else {
		out, err = json.Marshal(schema)
	}
	if err != nil {
		return nil, fmt.Errorf("schema renderer: marshal: %w", err)
	}
	return out, nil
}

// Build converts form into an object schema with one property per field.
func Build(form model.Form, options render.RenderOptions) *openapi3.Schema {
	root := openapi3.NewObjectSchema()
	root.Title = form.Label
	root.Description = form.Description
	root.Extensions = map[string]any{}
	if form.Name != "" {
		root.Extensions[ExtForm] = form.Name
	}

	messages := render.FieldMessages(form, options)
	order := make([]string, 0, len(form.Fields))
	for _, field := range form.Fields {
		prop := fieldSchema(field)
		if value := options.Value(field.Name, field.Value); value != nil {
			prop.Extensions[ExtValue] = expr.Normalize(value)
		}
		if msgs := messages[field.Name]; len(msgs) > 0 {
			prop.Extensions[ExtErrors] = msgs
		}
		root.WithProperty(field.Name, prop)
		order = append(order, field.Name)
		if field.Required && !field.Hidden {
			root.Required = append(root.Required, field.Name)
		}
	}
	root.Extensions[ExtOrder] = order
	return root
}

func fieldSchema(field model.Field) *openapi3.Schema {
	var s *openapi3.Schema
	switch field.Kind {
	case model.KindInteger:
		s = openapi3.NewIntegerSchema()
	case model.KindDecimal:
		s = openapi3.NewFloat64Schema()
	case model.KindBoolean:
		s = openapi3.NewBoolSchema()
	case model.KindNullableBoolean:
		s = openapi3.NewBoolSchema()
		s.Nullable = true
	case model.KindDate:
		s = openapi3.NewStringSchema().WithFormat("date")
	case model.KindTime:
		s = openapi3.NewStringSchema().WithFormat("time")
	case model.KindDateTime:
		s = openapi3.NewDateTimeSchema()
	case model.KindDuration:
		s = openapi3.NewFloat64Schema()
	case model.KindMultiChoice:
		s = openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
		s.UniqueItems = true
	case model.KindFile:
		s = openapi3.NewStringSchema().WithFormat("binary")
	default:
		s = openapi3.NewStringSchema()
	}

	s.Title = field.Label
	s.Description = field.HelpText
	s.ReadOnly = field.Disabled
	if field.Initial != nil {
		s.Default = expr.Normalize(field.Initial)
	}
	s.Extensions = map[string]any{
		ExtType:   field.Type,
		ExtWidget: field.Widget,
	}
	applyValidations(s, field.Validations)
	applyChoices(s, field)
	if field.Hidden {
		s.Extensions[ExtHidden] = true
	}
	if field.Disabled {
		s.Extensions[ExtDisabled] = true
	}
	if field.Kind == model.KindDuration {
		s.Extensions[ExtUnit] = "seconds"
	}
	if len(field.WidgetOptions) > 0 {
		s.Extensions[ExtWidgetOp] = field.WidgetOptions
	}
	for key, value := range field.Attributes {
		s.Extensions["x-flexforms-attr-"+key] = value
	}
	return s
}

func applyValidations(s *openapi3.Schema, rules []model.ValidationRule) {
	for _, rule := range rules {
		switch rule.Kind {
		case model.ValidationRuleMin:
			if v, ok := parseFloat(rule.Params["value"]); ok {
				s.Min = &v
			}
		case model.ValidationRuleMax:
			if v, ok := parseFloat(rule.Params["value"]); ok {
				s.Max = &v
			}
		case model.ValidationRuleMaxLength:
			if v, ok := parseFloat(rule.Params["value"]); ok && v >= 0 {
				n := uint64(v)
				s.MaxLength = &n
			}
		case model.ValidationRulePattern:
			s.Pattern = rule.Params["pattern"]
		}
	}
}

func applyChoices(s *openapi3.Schema, field model.Field) {
	if len(field.Choices) == 0 {
		return
	}
	enum := make([]any, 0, len(field.Choices))
	labels := make([]map[string]any, 0, len(field.Choices))
	for _, choice := range field.Choices {
		value := choice.Value
		if field.Kind == model.KindChoice || field.Kind == model.KindMultiChoice {
			value = expr.Format(choice.Value)
		}
		enum = append(enum, value)
		labels = append(labels, map[string]any{"value": value, "label": choice.Label})
	}
	target := s
	if field.Kind == model.KindMultiChoice && s.Items != nil && s.Items.Value != nil {
		target = s.Items.Value
	}
	target.Enum = enum
	s.Extensions[ExtChoices] = labels
}

func parseFloat(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	return v, err == nil
}
