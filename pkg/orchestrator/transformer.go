package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/goliatone/go-flexforms/pkg/model"
)

// Transformer mutates a materialized form before decorators run.
// Implementations can relabel fields, swap widgets or inject metadata.
type Transformer interface {
	Transform(ctx context.Context, form *model.Form) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, form *model.Form) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, form *model.Form) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, form)
}

// JSONPresetTransformer applies declarative presentation overrides loaded
// from a JSON document:
//
//	{
//	  "metadata": {"layout": "compact"},
//	  "fields": {
//	    "your_quest": {"label": "Quest", "widget": "text", "metadata": {"section": "intro"}}
//	  }
//	}
//
// Presets run after modifiers, so they win over computed labels and help
// text.
type JSONPresetTransformer struct {
	document jsonPresetDocument
}

type jsonPresetDocument struct {
	Metadata map[string]string         `json:"metadata"`
	Fields   map[string]jsonFieldPatch `json:"fields"`
}

type jsonFieldPatch struct {
	Label    string            `json:"label"`
	HelpText string            `json:"help_text"`
	Widget   string            `json:"widget"`
	Metadata map[string]string `json:"metadata"`
}

// NewJSONPresetTransformer constructs a transformer from raw JSON bytes.
func NewJSONPresetTransformer(data []byte) (*JSONPresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("json preset transformer: document is empty")
	}
	var document jsonPresetDocument
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("json preset transformer: parse document: %w", err)
	}
	return &JSONPresetTransformer{document: document}, nil
}

// NewJSONPresetTransformerFromFS loads a preset document from fsys.
func NewJSONPresetTransformerFromFS(fsys fs.FS, path string) (*JSONPresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("json preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("json preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("json preset transformer: read %s: %w", path, err)
	}
	return NewJSONPresetTransformer(data)
}

// Transform applies the patches onto form. Patching a field the form does
// not have is an error.
func (t *JSONPresetTransformer) Transform(ctx context.Context, form *model.Form) error {
	if form == nil {
		return errors.New("json preset transformer: form is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(t.document.Metadata) > 0 {
		form.Metadata = mergeStringMap(form.Metadata, t.document.Metadata)
	}

	names := make([]string, 0, len(t.document.Fields))
	for name := range t.document.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field := findField(form.Fields, name)
		if field == nil {
			return fmt.Errorf("json preset transformer: field %q not found", name)
		}
		applyFieldPatch(field, t.document.Fields[name])
	}
	return nil
}

func applyFieldPatch(field *model.Field, patch jsonFieldPatch) {
	if patch.Label != "" {
		field.Label = patch.Label
	}
	if patch.HelpText != "" {
		field.HelpText = patch.HelpText
	}
	// hidden fields keep the hidden widget
	if patch.Widget != "" && !field.Hidden {
		field.Widget = patch.Widget
	}
	if len(patch.Metadata) > 0 {
		field.Metadata = mergeStringMap(field.Metadata, patch.Metadata)
	}
}

func findField(fields []model.Field, name string) *model.Field {
	for idx := range fields {
		if fields[idx].Name == name {
			return &fields[idx]
		}
	}
	return nil
}

func mergeStringMap(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
