package materialize

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/copystructure"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/engine"
	"github.com/goliatone/go-flexforms/pkg/fieldtypes"
	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/widgets"
)

// ErrUnknownFieldType is returned when a definition uses a type tag that is
// not in the catalog.
var ErrUnknownFieldType = errors.New("materialize: unknown field type")

// Option customises a Materializer.
type Option func(*Materializer)

// WithTypes swaps the field-type catalog.
func WithTypes(types *fieldtypes.Registry) Option {
	return func(m *Materializer) {
		if types != nil {
			m.types = types
		}
	}
}

// WithWidgets swaps the widget registry used to finalise widgets.
func WithWidgets(reg *widgets.Registry) Option {
	return func(m *Materializer) {
		if reg != nil {
			m.widgets = reg
		}
	}
}

// WithDecorators registers decorators that run against every materialized
// form after widgets are resolved.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(m *Materializer) {
		m.decorators = append(m.decorators, decorators...)
	}
}

// WithEngineOptions forwards options to the modifier engine.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(m *Materializer) {
		m.engineOpts = append(m.engineOpts, opts...)
	}
}

// WithLogger routes diagnostics to logger. It is forwarded to the engine.
func WithLogger(logger hclog.Logger) Option {
	return func(m *Materializer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Materializer turns definitions and submitted values into presentation
// forms: the engine computes the attribute overlay, the overlay is merged on
// top of each field's options and the field-type catalog builds the result.
type Materializer struct {
	types      *fieldtypes.Registry
	widgets    *widgets.Registry
	decorators []model.Decorator
	engineOpts []engine.Option
	logger     hclog.Logger
}

// New constructs a Materializer over the built-in catalog.
func New(opts ...Option) *Materializer {
	m := &Materializer{
		types:  fieldtypes.Default(),
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.widgets == nil {
		m.widgets = widgets.NewRegistry()
	}
	return m
}

// Types returns the field-type catalog in use.
func (m *Materializer) Types() *fieldtypes.Registry { return m.types }

// Coerce implements engine.Coercer over the catalog. Unknown types pass the
// raw value through.
func (m *Materializer) Coerce(fieldType string, raw any) (any, error) {
	value, err := m.types.Coerce(fieldType, raw)
	if errors.Is(err, fieldtypes.ErrUnknownType) {
		return raw, nil
	}
	return value, err
}

// Plan is a compiled form ready to be materialized against many submissions.
type Plan struct {
	m      *Materializer
	engine *engine.Plan
	fields []compiledField
}

type compiledField struct {
	def  definition.Field
	typ  fieldtypes.Type
	base map[string]any
	// fallback is the field built from base options only.
	fallback model.Field
}

// Compile checks every field type, validates base options and compiles the
// modifiers of form.
func (m *Materializer) Compile(form definition.Form) (*Plan, error) {
	opts := append([]engine.Option{engine.WithCoercer(m), engine.WithLogger(m.logger)}, m.engineOpts...)
	plan, err := engine.Compile(form, opts...)
	if err != nil {
		return nil, err
	}

	normalized := plan.Form()
	fields := make([]compiledField, 0, len(normalized.Fields))
	for _, def := range normalized.Fields {
		typ, err := m.types.Get(def.Type)
		if err != nil {
			return nil, fmt.Errorf("%w %q for field %q", ErrUnknownFieldType, def.Type, def.Name)
		}
		base, err := m.types.DefaultOptions(def.Type)
		if err != nil {
			return nil, err
		}
		own, err := copyOptions(def.Options)
		if err != nil {
			return nil, fmt.Errorf("materialize: field %q: %w", def.Name, err)
		}
		for k, v := range own {
			base[k] = v
		}
		cfg, err := fieldtypes.Decode(base)
		if err != nil {
			return nil, fmt.Errorf("materialize: field %q: %w", def.Name, err)
		}
		fallback, err := typ.Build(def.Name, cfg)
		if err != nil {
			return nil, fmt.Errorf("materialize: field %q: %w", def.Name, err)
		}
		fields = append(fields, compiledField{def: def, typ: typ, base: base, fallback: fallback})
	}
	return &Plan{m: m, engine: plan, fields: fields}, nil
}

// Engine exposes the underlying engine plan.
func (p *Plan) Engine() *engine.Plan { return p.engine }

// Materialize evaluates the modifiers against values and builds the form.
// Field errors are returned alongside a best-effort form; the error result
// is reserved for failures that leave no usable form.
func (p *Plan) Materialize(ctx context.Context, values map[string]any) (model.Form, *Errors, error) {
	if err := ctx.Err(); err != nil {
		return model.Form{}, nil, err
	}
	result, err := p.engine.Evaluate(values)
	if err != nil {
		return model.Form{}, nil, err
	}

	errs := append([]engine.FieldError(nil), result.Errors...)
	def := p.engine.Form()
	out := model.Form{
		Name:        def.Name,
		Label:       def.Label,
		Description: def.Description,
		Fields:      make([]model.Field, 0, len(p.fields)),
	}
	for _, cf := range p.fields {
		field, buildErrs := p.build(cf, result.Overlay[cf.def.Name])
		errs = append(errs, buildErrs...)
		if field.Value == nil {
			if _, submitted := values[cf.def.Name]; submitted {
				field.Value, _ = result.Context.Get(cf.def.Name)
			}
		}
		out.Fields = append(out.Fields, field)
	}

	attachErrors(&out, errs)
	if err := p.m.widgets.Decorate(&out); err != nil {
		return model.Form{}, nil, fmt.Errorf("materialize: widgets: %w", err)
	}
	for _, decorator := range p.m.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(&out); err != nil {
			return model.Form{}, nil, fmt.Errorf("materialize: decorate: %w", err)
		}
	}
	p.m.logger.Debug("materialized form", "form", out.Name, "fields", len(out.Fields), "errors", len(errs))
	return out, newErrors(errs), nil
}

// build merges overrides onto the field's base options and runs its
// factory. Overrides the field type cannot accept are dropped one by one and
// reported; the rest still apply.
func (p *Plan) build(cf compiledField, overrides map[string]any) (model.Field, []engine.FieldError) {
	if len(overrides) == 0 {
		field, err := p.decodeAndBuild(cf, cf.base)
		if err != nil {
			return cf.fallback, nil
		}
		return field, nil
	}

	merged, err := copyOptions(cf.base)
	if err != nil {
		return cf.fallback, []engine.FieldError{{Field: cf.def.Name, Err: err}}
	}
	for attr, value := range overrides {
		merged[attr] = value
	}
	if field, err := p.decodeAndBuild(cf, merged); err == nil {
		return field, nil
	}

	var errs []engine.FieldError
	accepted, _ := copyOptions(cf.base)
	for _, attr := range sortedKeys(overrides) {
		candidate, _ := copyOptions(accepted)
		candidate[attr] = overrides[attr]
		if _, err := p.decodeAndBuild(cf, candidate); err != nil {
			errs = append(errs, engine.FieldError{
				Field:      cf.def.Name,
				Attribute:  attr,
				Expression: lastExpression(cf.def, attr),
				Err:        err,
			})
			continue
		}
		accepted = candidate
	}
	field, err := p.decodeAndBuild(cf, accepted)
	if err != nil {
		return cf.fallback, append(errs, engine.FieldError{Field: cf.def.Name, Err: err})
	}
	return field, errs
}

func (p *Plan) decodeAndBuild(cf compiledField, options map[string]any) (model.Field, error) {
	cfg, err := fieldtypes.Decode(options)
	if err != nil {
		return model.Field{}, err
	}
	return cf.typ.Build(cf.def.Name, cfg)
}

// Materialize compiles form and materializes it once.
func (m *Materializer) Materialize(ctx context.Context, form definition.Form, values map[string]any) (model.Form, *Errors, error) {
	plan, err := m.Compile(form)
	if err != nil {
		return model.Form{}, nil, err
	}
	return plan.Materialize(ctx, values)
}

func copyOptions(options map[string]any) (map[string]any, error) {
	if len(options) == 0 {
		return map[string]any{}, nil
	}
	copied, err := copystructure.Copy(options)
	if err != nil {
		return nil, fmt.Errorf("copy options: %w", err)
	}
	return copied.(map[string]any), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lastExpression(def definition.Field, attribute string) string {
	for i := len(def.Modifiers) - 1; i >= 0; i-- {
		if def.Modifiers[i].Attribute == attribute {
			return def.Modifiers[i].Expression
		}
	}
	return ""
}

func attachErrors(form *model.Form, errs []engine.FieldError) {
	if len(errs) == 0 {
		return
	}
	index := make(map[string]int, len(form.Fields))
	for i, field := range form.Fields {
		index[field.Name] = i
	}
	for _, err := range errs {
		i, ok := index[err.Field]
		if !ok {
			continue
		}
		form.Fields[i].Errors = append(form.Fields[i].Errors, err.Error())
	}
}
