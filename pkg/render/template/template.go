// Package template defines the seam renderers use to execute templates.
// The pongo sub-package provides the default engine.
package template

import (
	"io"
)

// TemplateRenderer executes named or inline templates against data.
type TemplateRenderer interface {
	RenderTemplate(name string, data map[string]any, out ...io.Writer) (string, error)
	RenderString(content string, data map[string]any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data map[string]any) error
}
