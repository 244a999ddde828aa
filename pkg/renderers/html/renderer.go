// Package html renders materialized forms as HTML using pongo2 templates.
//
// Labels and help text are sanitized with bluemonday before they reach the
// template. Hidden fields are emitted as hidden inputs so their values
// survive a round trip; errors are rendered inline under each control.
package html

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/render"
	"github.com/goliatone/go-flexforms/pkg/render/template"
	"github.com/goliatone/go-flexforms/pkg/render/template/pongo"
	"github.com/goliatone/go-flexforms/pkg/widgets"
)

// Name is the registry name of the HTML renderer.
const Name = "html"

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer template.TemplateRenderer
	classes          ChromeClasses
	submitLabel      string
}

// WithTemplatesFS supplies an alternate template bundle. It must provide
// form.tpl and field.tpl.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer.
func WithTemplateRenderer(renderer template.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithChromeClasses overrides the CSS classes applied to form chrome.
func WithChromeClasses(classes ChromeClasses) Option {
	return func(cfg *config) {
		cfg.classes = classes
	}
}

// WithSubmitLabel sets the submit button text.
func WithSubmitLabel(label string) Option {
	return func(cfg *config) {
		if strings.TrimSpace(label) != "" {
			cfg.submitLabel = label
		}
	}
}

// Renderer implements render.Renderer.
type Renderer struct {
	templates   template.TemplateRenderer
	classes     map[string]string
	submitLabel string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS(), submitLabel: "Submit"}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := pongo.New(pongo.WithFS(cfg.templateFS), pongo.WithExtension(".tpl"))
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}
	return &Renderer{
		templates:   renderer,
		classes:     cfg.classes.resolve(),
		submitLabel: cfg.submitLabel,
	}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render executes form.tpl.
func (r *Renderer) Render(ctx context.Context, form model.Form, options render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}

	messages := render.FieldMessages(form, options)
	multipart := false
	fields := make([]map[string]any, 0, len(form.Fields))
	for _, field := range form.Fields {
		if field.Kind == model.KindFile && !field.Hidden {
			multipart = true
		}
		fields = append(fields, r.fieldView(form.Name, field, options, messages[field.Name]))
	}

	hidden := append([]render.HiddenField{}, options.Hidden...)
	if form.Name != "" {
		hidden = append([]render.HiddenField{render.FormNameField(form.Name)}, hidden...)
	}
	method := strings.ToLower(strings.TrimSpace(options.Method))
	if method == "" {
		method = "post"
	}

	result, err := r.templates.RenderTemplate("form", map[string]any{
		"classes": r.classes,
		"form": map[string]any{
			"id":          controlID("", form.Name),
			"label":       sanitizeLabel(form.Label),
			"description": sanitizeHelp(form.Description),
			"action":      options.Action,
			"method":      method,
			"multipart":   multipart,
			"hidden":      render.SortedHiddenFields(hidden...),
			"errors":      render.FormMessages(form, options),
			"submit":      r.submitLabel,
		},
		"fields": fields,
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render template: %w", err)
	}
	return []byte(result), nil
}

func (r *Renderer) fieldView(formName string, field model.Field, options render.RenderOptions, messages []string) map[string]any {
	value := options.Value(field.Name, field.Value)
	if value == nil {
		value = field.Initial
	}
	multiple := isMultiple(field.Widget)

	selected := map[string]bool{}
	values := formatValues(value)
	if multiple {
		for _, v := range values {
			selected[v] = true
		}
	} else if value != nil {
		selected[formatValue(value)] = true
	}
	choices := make([]map[string]any, 0, len(field.Choices))
	for _, choice := range field.Choices {
		v := formatValue(choice.Value)
		choices = append(choices, map[string]any{
			"value":    v,
			"label":    sanitizeLabel(choice.Label),
			"selected": selected[v],
		})
	}

	attrs := sortedAttrs(field.WidgetOptions)
	for _, rule := range field.Validations {
		switch rule.Kind {
		case model.ValidationRuleMin:
			attrs = append(attrs, attr{Name: "min", Value: rule.Params["value"]})
		case model.ValidationRuleMax:
			attrs = append(attrs, attr{Name: "max", Value: rule.Params["value"]})
		case model.ValidationRuleMaxLength:
			attrs = append(attrs, attr{Name: "maxlength", Value: rule.Params["value"]})
		case model.ValidationRulePattern:
			attrs = append(attrs, attr{Name: "pattern", Value: rule.Params["pattern"]})
		}
	}

	widget := field.Widget
	if field.Hidden {
		widget = widgets.WidgetHidden
	}
	return map[string]any{
		"name":       field.Name,
		"id":         controlID(formName, field.Name),
		"label":      sanitizeLabel(field.Label),
		"suffix":     field.LabelSuffix,
		"help":       sanitizeHelp(field.HelpText),
		"widget":     widget,
		"input_type": inputType(widget),
		"hidden":     field.Hidden,
		"required":   field.Required,
		"disabled":   field.Disabled,
		"multiple":   multiple,
		"value":      formatValue(value),
		"values":     values,
		"checked":    formatValue(value) == "true",
		"choices":    choices,
		"attrs":      attrs,
		"errors":     messages,
	}
}
