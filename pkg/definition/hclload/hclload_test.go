package hclload

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-flexforms/pkg/definition"
)

const bridge = `
format_version = "1.0.0"

form "bridge" {
  label = "The Bridge of Death"

  field "your_name" {
    type    = "SINGLE_LINE_TEXT"
    options = {
      label    = "What... is your name?"
      required = true
    }
  }

  field "your_quest" {
    type = "SINGLE_LINE_TEXT"
    modifier "required" {
      expression = "not your_name"
    }
    modifier "help_text" {
      expression = "'Required once you have a name' if your_name else ''"
    }
  }

  field "" {
    type    = "INTEGER"
    options = {
      label     = "Airspeed velocity"
      min_value = 0
      ratio     = 1.5
      choices   = [[1, "one"], [2, "two"]]
      nothing   = null
    }
  }
}

form "second" {
  field "a" {
    type = "CHECKBOX"
  }
}
`

func TestParse(t *testing.T) {
	t.Parallel()

	forms, err := Parse([]byte(bridge), "bridge.hcl")
	require.NoError(t, err)
	require.Len(t, forms, 2)

	form := forms[0]
	assert.Equal(t, "bridge", form.Name)
	assert.Equal(t, "The Bridge of Death", form.Label)
	assert.Equal(t, "1.0.0", form.FormatVersion)
	assert.Equal(t, []string{"your_name", "your_quest", "airspeed_velocity"}, form.FieldNames())

	assert.Equal(t, map[string]any{"label": "What... is your name?", "required": true}, form.Fields[0].Options)
	assert.Nil(t, form.Fields[1].Options)
	assert.Equal(t, []definition.Modifier{
		{Attribute: "required", Expression: "not your_name"},
		{Attribute: "help_text", Expression: "'Required once you have a name' if your_name else ''"},
	}, form.Fields[1].Modifiers)

	opts := form.Fields[2].Options
	assert.Equal(t, int64(0), opts["min_value"])
	assert.Equal(t, 1.5, opts["ratio"])
	assert.Equal(t, []any{[]any{int64(1), "one"}, []any{int64(2), "two"}}, opts["choices"])
	assert.Contains(t, opts, "nothing")
	assert.Nil(t, opts["nothing"])

	assert.Equal(t, "second", forms[1].Name)
	assert.Equal(t, 0, forms[1].ModifierCount())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		src    string
		target error
	}{
		"syntax": {src: `form "x" {`},
		"missing type": {src: `
form "x" {
  field "a" {
  }
}`},
		"unknown block": {src: `
widget "x" {
}`},
		"scalar options": {src: `
form "x" {
  field "a" {
    type    = "T"
    options = "nope"
  }
}`},
		"version": {src: `format_version = "0.9.0"`, target: definition.ErrUnsupportedFormat},
		"duplicate": {src: `
form "x" {
  field "a" {
    type = "T"
  }
  field "a" {
    type = "T"
  }
}`, target: definition.ErrInvalidDefinition},
		"modifier without expression": {src: `
form "x" {
  field "a" {
    type = "T"
    modifier "hidden" {
    }
  }
}`},
	}
	for name, tc := range cases {
		_, err := Parse([]byte(tc.src), name+".hcl")
		require.Error(t, err, name)
		if tc.target != nil {
			assert.True(t, errors.Is(err, tc.target), "%s: %v", name, err)
		}
	}
}

func TestParseFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"forms/bridge.hcl": {Data: []byte(bridge)}}
	forms, err := ParseFS(fsys, "forms/bridge.hcl")
	require.NoError(t, err)
	assert.Len(t, forms, 2)

	_, err = ParseFS(fsys, "forms/missing.hcl")
	require.Error(t, err)
}
