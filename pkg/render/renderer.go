package render

import (
	"context"

	"github.com/goliatone/go-flexforms/pkg/model"
)

// Renderer converts a materialized form into bytes (HTML, JSON schema, a
// terminal session transcript).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form model.Form, options RenderOptions) ([]byte, error)
}
