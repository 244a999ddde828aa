package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/definition/loader"
	"github.com/goliatone/go-flexforms/pkg/materialize"
	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/render"
	"github.com/goliatone/go-flexforms/pkg/renderers/html"
	"github.com/goliatone/go-flexforms/pkg/renderers/schema"
)

const defaultRendererName = html.Name

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithSources injects a source registry.
func WithSources(sources *SourceRegistry) Option {
	return func(o *Orchestrator) {
		o.sources = sources
	}
}

// WithStore lets the default source registry resolve "pg:" references.
func WithStore(store FormStore) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithLoader configures the loader used for YAML and JSON references.
func WithLoader(l *loader.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = l
	}
}

// WithMaterializer injects a materializer, for example one configured with
// a custom field-type catalog or the CEL dialect.
func WithMaterializer(m *materialize.Materializer) Option {
	return func(o *Orchestrator) {
		o.materializer = m
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithTransformer registers a Transformer that runs after materialization
// and before decorators.
func WithTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithDecorators registers decorators that run against every materialized
// form before rendering.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(o *Orchestrator) {
		o.decorators = append(o.decorators, decorators...)
	}
}

// WithLogger routes pipeline diagnostics to logger.
func WithLogger(logger hclog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates the full pipeline from definition reference to
// rendered output. Compiled plans are cached per reference; call Forget to
// drop one after its definition changes.
type Orchestrator struct {
	sources         *SourceRegistry
	store           FormStore
	loader          *loader.Loader
	materializer    *materialize.Materializer
	registry        *render.Registry
	defaultRenderer string
	transformer     Transformer
	decorators      []model.Decorator
	logger          hclog.Logger
	initialiseErr   error

	mu    sync.Mutex
	plans map[string]*materialize.Plan
}

// New constructs an Orchestrator applying any provided options. Missing
// dependencies are initialised with the built-in implementations.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          hclog.NewNullLogger(),
		plans:           map[string]*materialize.Plan{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one materialize-and-render pass.
type Request struct {
	// Ref names the definition, e.g. "forms/signup.yaml", "forms.hcl#signup"
	// or "pg:signup". Optional when Definition is supplied.
	Ref string

	// Definition bypasses source resolution. Plans for inline definitions are
	// not cached.
	Definition *definition.Form

	// Values are the submitted values the modifiers read.
	Values map[string]any

	// Renderer names the renderer to use. If empty, the orchestrator falls back
	// to the configured default renderer.
	Renderer string

	// RenderOptions carries per-request instructions such as the action URL,
	// hidden inputs or server-side errors.
	RenderOptions render.RenderOptions
}

// Materialize resolves the request's definition and returns the effective
// form for its values after the transformer and decorators ran.
func (o *Orchestrator) Materialize(ctx context.Context, req Request) (model.Form, *materialize.Errors, error) {
	if ctx == nil {
		return model.Form{}, nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return model.Form{}, nil, err
	}
	if err := o.initialiseErr; err != nil {
		return model.Form{}, nil, err
	}

	plan, err := o.plan(ctx, req)
	if err != nil {
		return model.Form{}, nil, err
	}
	form, errs, err := plan.Materialize(ctx, req.Values)
	if err != nil {
		return model.Form{}, nil, fmt.Errorf("orchestrator: materialize: %w", err)
	}
	if err := o.applyTransformer(ctx, &form); err != nil {
		return model.Form{}, nil, err
	}
	if err := o.applyDecorators(&form); err != nil {
		return model.Form{}, nil, err
	}
	return form, errs, nil
}

// Generate materializes the request and renders it. Field errors are
// attached to the rendered fields rather than returned.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	form, errs, err := o.Materialize(ctx, req)
	if err != nil {
		return nil, err
	}
	if errs.Len() > 0 {
		o.logger.Debug("field errors", "form", form.Name, "fields", errs.Fields())
	}

	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}
	output, err := renderer.Render(ctx, form, req.RenderOptions)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// Forget drops the cached plan for ref.
func (o *Orchestrator) Forget(ref string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.plans, ref)
}

// Sources exposes the source registry.
func (o *Orchestrator) Sources() *SourceRegistry { return o.sources }

// Registry exposes the renderer registry.
func (o *Orchestrator) Registry() *render.Registry { return o.registry }

func (o *Orchestrator) plan(ctx context.Context, req Request) (*materialize.Plan, error) {
	if req.Definition != nil {
		plan, err := o.materializer.Compile(*req.Definition)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: compile: %w", err)
		}
		return plan, nil
	}
	if req.Ref == "" {
		return nil, errors.New("orchestrator: ref or definition is required")
	}

	o.mu.Lock()
	cached, ok := o.plans[req.Ref]
	o.mu.Unlock()
	if ok {
		return cached, nil
	}

	def, err := o.sources.Resolve(ctx, req.Ref)
	if err != nil {
		return nil, err
	}
	plan, err := o.materializer.Compile(def)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: compile %s: %w", req.Ref, err)
	}
	o.logger.Debug("compiled plan", "ref", req.Ref, "form", def.Name, "order", plan.Engine().Order())

	o.mu.Lock()
	o.plans[req.Ref] = plan
	o.mu.Unlock()
	return plan, nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	names := o.registry.List()
	if len(names) == 0 {
		return nil, errors.New("orchestrator: no renderers registered")
	}

	renderer, err := o.registry.Get(names[0])
	if err != nil {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", names[0], err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDecorators(form *model.Form) error {
	for _, decorator := range o.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(form); err != nil {
			return fmt.Errorf("orchestrator: decorate form: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) applyTransformer(ctx context.Context, form *model.Form) error {
	if o.transformer == nil {
		return nil
	}
	if err := o.transformer.Transform(ctx, form); err != nil {
		return fmt.Errorf("orchestrator: transform form: %w", err)
	}
	return nil
}

func (o *Orchestrator) applyDefaults() {
	if o.loader == nil {
		o.loader = loader.New(loader.WithLogger(o.logger))
	}
	if o.sources == nil {
		sources, err := NewSourceRegistry(
			DocumentSource{Loader: o.loader},
			HCLSource{},
			StoreSource{Store: o.store},
		)
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default sources: %w", err)
			return
		}
		o.sources = sources
	}
	if o.materializer == nil {
		o.materializer = materialize.New(materialize.WithLogger(o.logger))
	}
	if o.registry == nil {
		htmlRenderer, err := html.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
			return
		}
		registry, err := render.NewRegistry(htmlRenderer, schema.New())
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderers: %w", err)
			return
		}
		o.registry = registry
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
}
