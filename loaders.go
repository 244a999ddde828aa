package flexforms

import (
	"io/fs"

	"github.com/goliatone/go-flexforms/pkg/definition/hclload"
	"github.com/goliatone/go-flexforms/pkg/definition/loader"
	"github.com/goliatone/go-flexforms/pkg/renderers/html"
)

// NewLoader constructs a YAML/JSON definition loader.
func NewLoader(options ...loader.Option) *loader.Loader {
	return loader.New(options...)
}

// ParseDefinition decodes a YAML or JSON definition. location is used for
// format detection and error messages.
func ParseDefinition(data []byte, location string) (Definition, error) {
	return loader.Parse(data, location)
}

// ParseHCL decodes every form block of an HCL document.
func ParseHCL(src []byte, filename string) ([]Definition, error) {
	return hclload.Parse(src, filename)
}

// EmbeddedTemplates exposes the built-in HTML renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}
