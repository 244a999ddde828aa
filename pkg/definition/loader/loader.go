// Package loader reads form definitions from JSON or YAML documents.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-flexforms/pkg/definition"
)

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Options configures how a Loader resolves sources.
type Options struct {
	// FileSystem backs SourceKindFS sources.
	FileSystem fs.FS
	// HTTPClient enables URL sources.
	HTTPClient *http.Client
	// RequestTimeout caps remote fetch durations.
	RequestTimeout time.Duration
	Logger         hclog.Logger
}

// Option mutates Options prior to construction.
type Option func(*Options)

// WithFileSystem injects the fs.FS used for SourceKindFS.
func WithFileSystem(files fs.FS) Option {
	return func(opts *Options) {
		opts.FileSystem = files
	}
}

// WithHTTPClient enables loading definitions over HTTP.
func WithHTTPClient(client *http.Client, timeout time.Duration) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
		opts.RequestTimeout = timeout
	}
}

// WithLogger routes loader diagnostics to logger.
func WithLogger(logger hclog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Loader fetches and decodes form definitions.
type Loader struct {
	opts Options
}

// New constructs a Loader.
func New(options ...Option) *Loader {
	opts := Options{}
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &Loader{opts: opts}
}

// Load fetches src and parses it. The format is chosen from the location's
// extension, falling back to sniffing the content.
func (l *Loader) Load(ctx context.Context, src Source) (definition.Form, error) {
	if src == nil {
		return definition.Form{}, errors.New("loader: source is nil")
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case SourceKindFile:
		data, err = loadFile(ctx, src.Location())
	case SourceKindFS:
		data, err = loadFromFS(ctx, l.opts.FileSystem, src.Location())
	case SourceKindURL:
		if l.opts.HTTPClient == nil {
			return definition.Form{}, errors.New("loader: http support disabled")
		}
		data, err = loadHTTP(ctx, l.opts.HTTPClient, src.Location(), l.opts.RequestTimeout)
	default:
		err = errors.New("loader: unsupported source kind")
	}
	if err != nil {
		return definition.Form{}, fmt.Errorf("loader: %s: %w", src.Location(), err)
	}

	form, err := Parse(data, src.Location())
	if err != nil {
		return definition.Form{}, err
	}
	l.opts.Logger.Debug("loaded form definition", "source", src.Location(), "form", form.Name, "fields", len(form.Fields))
	return form, nil
}

// LoadDir loads every definition below root in lexical order.
func (l *Loader) LoadDir(ctx context.Context, root string) ([]definition.Form, error) {
	if l.opts.FileSystem == nil {
		return nil, errors.New("loader: filesystem is not configured")
	}
	var forms []definition.Form
	err := fs.WalkDir(l.opts.FileSystem, root, func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !IsDefinitionFile(name) {
			return nil
		}
		form, err := l.Load(ctx, SourceFromFS(name))
		if err != nil {
			return err
		}
		forms = append(forms, form)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return forms, nil
}

// LoadFS reads a single definition from fsys.
func LoadFS(fsys fs.FS, name string) (definition.Form, error) {
	return New(WithFileSystem(fsys)).Load(context.Background(), SourceFromFS(name))
}

// IsDefinitionFile reports whether name has a JSON or YAML extension.
func IsDefinitionFile(name string) bool {
	_, ok := formatFromExt(name)
	return ok
}

func formatFromExt(name string) (Format, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Detect picks the format for data loaded from location.
func Detect(data []byte, location string) Format {
	if format, ok := formatFromExt(location); ok {
		return format
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes a definition document. Unknown top-level or field keys are
// rejected, the format version is checked and missing names are derived
// from labels before the result is validated.
func Parse(data []byte, location string) (definition.Form, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return definition.Form{}, fmt.Errorf("loader: %s: document is empty", location)
	}

	var form definition.Form
	switch Detect(data, location) {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&form); err != nil {
			return definition.Form{}, fmt.Errorf("loader: %s: decode json: %w", location, err)
		}
		for i := range form.Fields {
			if form.Fields[i].Options != nil {
				integralNumbers(form.Fields[i].Options)
			}
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&form); err != nil {
			return definition.Form{}, fmt.Errorf("loader: %s: decode yaml: %w", location, err)
		}
	}

	if err := definition.CheckFormatVersion(form.FormatVersion); err != nil {
		return definition.Form{}, fmt.Errorf("loader: %s: %w", location, err)
	}
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return definition.Form{}, fmt.Errorf("loader: %s: %w", location, err)
	}
	return form, nil
}

// integralNumbers turns whole JSON numbers back into integers so option
// values keep the types a YAML document would produce.
func integralNumbers(value any) any {
	switch v := value.(type) {
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	case []any:
		for i := range v {
			v[i] = integralNumbers(v[i])
		}
		return v
	case map[string]any:
		for key, item := range v {
			v[key] = integralNumbers(item)
		}
		return v
	}
	return value
}
