package tui

import (
	"context"
	"io"

	"github.com/goliatone/go-flexforms/pkg/fieldtypes"
	"github.com/goliatone/go-flexforms/pkg/materialize"
	"github.com/goliatone/go-flexforms/pkg/model"
)

// OutputFormat controls how collected values are serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits application/json payloads.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits one name=value line per field.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme holds optional message prefixes.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// Materializer recomputes the form from the answers collected so far.
// *materialize.Plan satisfies it.
type Materializer interface {
	Materialize(ctx context.Context, values map[string]any) (model.Form, *materialize.Errors, error)
}

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithMaterializer re-materializes the form after every answer so that
// modifiers (visibility, required, labels, choices) follow the input live.
// Without it the form passed to Render is used as is.
func WithMaterializer(m Materializer) Option {
	return func(r *Renderer) {
		r.materializer = m
	}
}

// WithTypes sets the catalog used to validate answers.
func WithTypes(types *fieldtypes.Registry) Option {
	return func(r *Renderer) {
		if types != nil {
			r.types = types
		}
	}
}

// WithOutput sets where the survey driver prints informational messages.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) {
		if w != nil {
			r.out = w
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}
