// Package hclload reads form definitions written in HCL:
//
//	format_version = "1.0.0"
//
//	form "bridge" {
//	  label = "The Bridge of Death"
//
//	  field "your_name" {
//	    type    = "SINGLE_LINE_TEXT"
//	    options = { label = "What... is your name?" }
//	  }
//
//	  field "your_quest" {
//	    type = "SINGLE_LINE_TEXT"
//	    modifier "required" {
//	      expression = "not your_name"
//	    }
//	  }
//	}
package hclload

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/goliatone/go-flexforms/pkg/definition"
)

type hclFile struct {
	FormatVersion string     `hcl:"format_version,optional"`
	Forms         []*hclForm `hcl:"form,block"`
}

type hclForm struct {
	Name        string      `hcl:"name,label"`
	Label       string      `hcl:"label,optional"`
	Description string      `hcl:"description,optional"`
	Fields      []*hclField `hcl:"field,block"`
}

type hclField struct {
	Name      string         `hcl:"name,label"`
	Type      string         `hcl:"type"`
	Options   hcl.Expression `hcl:"options,optional"`
	Modifiers []*hclModifier `hcl:"modifier,block"`
}

type hclModifier struct {
	Attribute  string `hcl:"attribute,label"`
	Expression string `hcl:"expression"`
}

// Parse decodes every form block of src.
func Parse(src []byte, filename string) ([]definition.Form, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("hclload: parse %s: %w", filename, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("hclload: decode %s: %w", filename, diags)
	}
	if err := definition.CheckFormatVersion(parsed.FormatVersion); err != nil {
		return nil, fmt.Errorf("hclload: %s: %w", filename, err)
	}

	forms := make([]definition.Form, 0, len(parsed.Forms))
	for _, block := range parsed.Forms {
		form, err := convertForm(block, parsed.FormatVersion)
		if err != nil {
			return nil, fmt.Errorf("hclload: %s: form %q: %w", filename, block.Name, err)
		}
		forms = append(forms, form)
	}
	return forms, nil
}

// ParseFile reads and decodes an HCL file from disk.
func ParseFile(path string) ([]definition.Form, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hclload: %w", err)
	}
	return Parse(src, path)
}

// ParseFS reads and decodes an HCL file from fsys.
func ParseFS(fsys fs.FS, name string) ([]definition.Form, error) {
	src, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("hclload: %w", err)
	}
	return Parse(src, name)
}

func convertForm(block *hclForm, version string) (definition.Form, error) {
	form := definition.Form{
		FormatVersion: version,
		Name:          block.Name,
		Label:         block.Label,
		Description:   block.Description,
		Fields:        make([]definition.Field, 0, len(block.Fields)),
	}
	for _, f := range block.Fields {
		options, err := decodeOptions(f.Options)
		if err != nil {
			return definition.Form{}, fmt.Errorf("field %q: %w", f.Name, err)
		}
		field := definition.Field{Name: f.Name, Type: f.Type, Options: options}
		for _, mod := range f.Modifiers {
			field.Modifiers = append(field.Modifiers, definition.Modifier{
				Attribute:  mod.Attribute,
				Expression: mod.Expression,
			})
		}
		form.Fields = append(form.Fields, field)
	}
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return definition.Form{}, err
	}
	return form, nil
}

func decodeOptions(expr hcl.Expression) (map[string]any, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("options must be an object, got %s", val.Type().FriendlyName())
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	return native.(map[string]any), nil
}

// ctyToNative converts a cty value to the plain Go values definitions use.
// Whole numbers become int64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == 0 {
				return n, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
