package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-flexforms/pkg/definition"
)

const questYAML = `
format_version: "1.0.0"
label: Bridge of Death
fields:
  - type: SINGLE_LINE_TEXT
    options:
      label: What... is your name?
  - name: your_quest
    type: SINGLE_LINE_TEXT
    options:
      max_length: 80
      choices: [[grail, The Grail]]
    modifiers:
      - attribute: required
        expression: not what_is_your_name
`

const questJSON = `{
  "name": "bridge",
  "fields": [
    {"name": "age", "type": "INTEGER", "options": {"initial": 30, "min_value": 0.5, "choices": [1, null]}},
    {"name": "quest", "type": "SINGLE_LINE_TEXT", "modifiers": [{"attribute": "hidden", "expression": "age > 40"}]}
  ]
}`

func TestParseYAML(t *testing.T) {
	t.Parallel()

	form, err := Parse([]byte(questYAML), "quest.yaml")
	require.NoError(t, err)

	assert.Equal(t, "bridge_of_death", form.Name)
	require.Len(t, form.Fields, 2)
	assert.Equal(t, "what_is_your_name", form.Fields[0].Name)
	assert.Equal(t, 80, form.Fields[1].Options["max_length"])
	assert.Equal(t, []definition.Modifier{{Attribute: "required", Expression: "not what_is_your_name"}}, form.Fields[1].Modifiers)
}

func TestParseJSONKeepsIntegers(t *testing.T) {
	t.Parallel()

	form, err := Parse([]byte(questJSON), "inline")
	require.NoError(t, err)

	opts := form.Fields[0].Options
	assert.Equal(t, int64(30), opts["initial"])
	assert.Equal(t, 0.5, opts["min_value"])
	assert.Equal(t, []any{int64(1), nil}, opts["choices"])
	assert.Nil(t, form.Fields[1].Options)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		data     string
		location string
		target   error
	}{
		"empty":           {data: "  ", location: "x.yaml"},
		"unknown key":     {data: "fields: []\nbogus: 1\n", location: "x.yaml"},
		"unknown json":    {data: `{"fields": [], "bogus": 1}`, location: "x.json"},
		"future version":  {data: "format_version: 2.0.0\nfields: []\n", location: "x.yml", target: definition.ErrUnsupportedFormat},
		"missing type":    {data: "fields:\n  - name: a\n", location: "x.yaml", target: definition.ErrInvalidDefinition},
		"duplicate field": {data: `{"fields": [{"name": "a", "type": "T"}, {"name": "a", "type": "T"}]}`, location: "x.json", target: definition.ErrInvalidDefinition},
	}
	for name, tc := range cases {
		_, err := Parse([]byte(tc.data), tc.location)
		require.Error(t, err, name)
		if tc.target != nil {
			assert.True(t, errors.Is(err, tc.target), "%s: %v", name, err)
		}
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatJSON, Detect(nil, "a.JSON"))
	assert.Equal(t, FormatYAML, Detect([]byte("{}"), "a.yml"))
	assert.Equal(t, FormatJSON, Detect([]byte("  {\"fields\": []}"), "pg:bridge"))
	assert.Equal(t, FormatYAML, Detect([]byte("fields: []"), "stdin"))
}

func TestLoadFSAndDir(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"forms/quest.yaml":      {Data: []byte(questYAML)},
		"forms/nested/age.json": {Data: []byte(questJSON)},
		"forms/README.md":       {Data: []byte("# forms")},
	}

	form, err := LoadFS(fsys, "forms/quest.yaml")
	require.NoError(t, err)
	assert.Equal(t, "bridge_of_death", form.Name)

	forms, err := New(WithFileSystem(fsys)).LoadDir(context.Background(), "forms")
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, "bridge", forms[0].Name)
	assert.Equal(t, "bridge_of_death", forms[1].Name)

	_, err = New().LoadDir(context.Background(), "forms")
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "quest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(questYAML), 0o600))

	form, err := New().Load(context.Background(), SourceFromFile(path))
	require.NoError(t, err)
	assert.Len(t, form.Fields, 2)

	_, err = New().Load(context.Background(), SourceFromFile(filepath.Join(dir, "missing.yaml")))
	require.Error(t, err)
}

func TestLoadHTTP(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/bridge" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(questJSON))
	}))
	defer server.Close()

	_, err := New().Load(context.Background(), SourceFromURL(server.URL+"/forms/bridge"))
	require.Error(t, err, "http must be opt-in")

	l := New(WithHTTPClient(server.Client(), 0))
	form, err := l.Load(context.Background(), SourceFromURL(server.URL+"/forms/bridge"))
	require.NoError(t, err)
	assert.Equal(t, "bridge", form.Name)

	_, err = l.Load(context.Background(), SourceFromURL(server.URL+"/nope"))
	require.ErrorContains(t, err, "unexpected status")
}

func TestSourceFromURLPanicsOnGarbage(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { SourceFromURL("") })
	assert.Panics(t, func() { SourceFromURL("not a url") })
}

func TestLoadHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := New(WithFileSystem(fstest.MapFS{"a.yaml": {Data: []byte(questYAML)}}))
	_, err := l.Load(ctx, SourceFromFS("a.yaml"))
	require.ErrorIs(t, err, context.Canceled)
}
