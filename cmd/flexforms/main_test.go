package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mitchellh/cli"

	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/renderers/tui"
)

const bridgeYAML = `
format_version: "1.0.0"
name: bridge
fields:
  - name: your_name
    type: SINGLE_LINE_TEXT
    options:
      label: What... is your name?
  - name: your_quest
    type: SINGLE_LINE_TEXT
    modifiers:
      - attribute: required
        expression: not your_name
  - name: favourite_colour
    type: SINGLE_CHOICE_SELECT
    options:
      choices: [[blue, Blue], [yellow, Yellow]]
    modifiers:
      - attribute: hidden
        expression: your_name == 'Arthur'
`

const brokenYAML = `
name: broken
fields:
  - name: a
    type: INTEGER
  - name: b
    type: HOLOGRAM
`

const cycleYAML = `
name: loop
fields:
  - name: a
    type: CHECKBOX
    modifiers:
      - attribute: hidden
        expression: b
  - name: b
    type: CHECKBOX
    modifiers:
      - attribute: hidden
        expression: a
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testMeta() (Meta, *cli.MockUi) {
	ui := cli.NewMockUi()
	return Meta{Ui: ui, LogOutput: io.Discard}, ui
}

type scriptedDriver struct {
	inputs []string
	asked  []string
}

func (d *scriptedDriver) Text(_ context.Context, q tui.Question) (string, error) {
	d.asked = append(d.asked, q.Message)
	if len(d.inputs) == 0 {
		return "", errors.New("no input scripted")
	}
	val := d.inputs[0]
	d.inputs = d.inputs[1:]
	return val, nil
}

func (d *scriptedDriver) Confirm(context.Context, tui.Question) (bool, error) {
	return false, errors.New("no confirm scripted")
}

func (d *scriptedDriver) Choose(context.Context, tui.Question) ([]int, error) {
	return nil, errors.New("no choice scripted")
}

func (d *scriptedDriver) Notify(context.Context, string) error { return nil }

func TestLintCommand(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	path := writeFile(t, "bridge.yaml", bridgeYAML)
	if code := (&LintCommand{Meta: meta}).Run([]string{"-no-color", path}); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, ui.ErrorWriter.String())
	}
	if got := ui.OutputWriter.String(); !strings.Contains(got, "ok bridge ("+path+")") {
		t.Fatalf("unexpected output %q", got)
	}

	meta, ui = testMeta()
	broken := writeFile(t, "broken.yaml", brokenYAML)
	if code := (&LintCommand{Meta: meta}).Run([]string{"-no-color", broken}); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if got := ui.OutputWriter.String(); !strings.Contains(got, "error broken ("+broken+") b") {
		t.Fatalf("expected unknown type error, got %q", got)
	}
}

func TestLintCommandJSON(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	path := writeFile(t, "bridge.yaml", bridgeYAML)
	if code := (&LintCommand{Meta: meta}).Run([]string{"-format", "json", path}); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, ui.ErrorWriter.String())
	}
	var results []map[string]any
	if err := json.Unmarshal([]byte(ui.OutputWriter.String()), &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %v", results)
	}
}

func TestLintCommandRequiresRef(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	if code := (&LintCommand{Meta: meta}).Run(nil); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(ui.ErrorWriter.String(), "at least one definition") {
		t.Fatalf("unexpected error output %q", ui.ErrorWriter.String())
	}
}

func TestGraphCommand(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	path := writeFile(t, "bridge.yaml", bridgeYAML)
	if code := (&GraphCommand{Meta: meta}).Run([]string{path}); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, ui.ErrorWriter.String())
	}
	out := ui.OutputWriter.String()
	for _, want := range []string{"bridge", "your_quest", "your_name", "order: "} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	meta, ui = testMeta()
	if code := (&GraphCommand{Meta: meta}).Run([]string{"-format", "dot", path}); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if out := ui.OutputWriter.String(); !strings.Contains(out, `"your_quest" -> "your_name";`) {
		t.Fatalf("dot output missing edge:\n%s", out)
	}
}

func TestGraphCommandReportsCycle(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	path := writeFile(t, "loop.yaml", cycleYAML)
	if code := (&GraphCommand{Meta: meta}).Run([]string{"-no-color", path}); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if got := ui.ErrorWriter.String(); !strings.Contains(got, "cycle: ") {
		t.Fatalf("expected cycle report, got %q", got)
	}
	if strings.Contains(ui.OutputWriter.String(), "order:") {
		t.Fatalf("no order should be printed for a cyclic form")
	}
}

func TestEvalCommand(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	path := writeFile(t, "bridge.yaml", bridgeYAML)
	code := (&EvalCommand{Meta: meta}).Run([]string{"-format", "json", "-set", "your_name=Arthur", path})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, ui.ErrorWriter.String())
	}
	var form model.Form
	if err := json.Unmarshal([]byte(ui.OutputWriter.String()), &form); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	colour, ok := form.Field("favourite_colour")
	if !ok || !colour.Hidden {
		t.Fatalf("favourite_colour should be hidden for Arthur: %+v", colour)
	}
	quest, _ := form.Field("your_quest")
	if quest.Required {
		t.Fatalf("your_quest should be optional once a name is given")
	}
}

func TestEvalCommandValuesFileAndMetrics(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	path := writeFile(t, "bridge.yaml", bridgeYAML)
	values := writeFile(t, "values.json", `{"your_name": ""}`)
	code := (&EvalCommand{Meta: meta}).Run([]string{"-values", values, "-metrics", path})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, ui.ErrorWriter.String())
	}
	out := ui.OutputWriter.String()
	if !strings.Contains(out, "your_quest [text, required]") {
		t.Fatalf("your_quest should be required without a name:\n%s", out)
	}
	if !strings.Contains(out, "flexforms_evaluation_passes_total") {
		t.Fatalf("expected metrics in output:\n%s", out)
	}
}

func TestEvalCommandUnknownDialect(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	path := writeFile(t, "bridge.yaml", bridgeYAML)
	if code := (&EvalCommand{Meta: meta}).Run([]string{"-dialect", "lisp", path}); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(ui.ErrorWriter.String(), "unknown dialect") {
		t.Fatalf("unexpected error output %q", ui.ErrorWriter.String())
	}
}

func TestRenderCommandWritesFile(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	path := writeFile(t, "bridge.yaml", bridgeYAML)
	target := filepath.Join(t.TempDir(), "bridge.schema.json")
	code := (&RenderCommand{Meta: meta}).Run([]string{"-renderer", "schema", "-o", target, path})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, ui.ErrorWriter.String())
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Contains(data, []byte(`"your_name"`)) {
		t.Fatalf("schema should describe your_name:\n%s", data)
	}
	if !strings.Contains(ui.OutputWriter.String(), "Form written to") {
		t.Fatalf("expected confirmation, got %q", ui.OutputWriter.String())
	}
}

func TestRenderCommandHTML(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	path := writeFile(t, "bridge.yaml", bridgeYAML)
	code := (&RenderCommand{Meta: meta}).Run([]string{"-set", "your_name=Arthur", "-action", "/submit", path})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, ui.ErrorWriter.String())
	}
	out := ui.OutputWriter.String()
	if !strings.Contains(out, "<form") || !strings.Contains(out, "/submit") {
		t.Fatalf("expected an html form:\n%s", out)
	}
}

func TestFillCommand(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	driver := &scriptedDriver{inputs: []string{"Arthur", "grail"}}
	meta.Driver = driver
	path := writeFile(t, "bridge.yaml", bridgeYAML)

	if code := (&FillCommand{Meta: meta}).Run([]string{path}); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, ui.ErrorWriter.String())
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(ui.OutputWriter.String()), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", ui.OutputWriter.String(), err)
	}
	want := map[string]any{"your_name": "Arthur", "your_quest": "grail"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
	if len(driver.asked) != 2 {
		t.Fatalf("favourite_colour should not be asked, asked %v", driver.asked)
	}
}

func TestFillCommandRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	meta, ui := testMeta()
	path := writeFile(t, "bridge.yaml", bridgeYAML)
	if code := (&FillCommand{Meta: meta}).Run([]string{"-format", "xml", path}); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(ui.ErrorWriter.String(), `unknown format "xml"`) {
		t.Fatalf("unexpected error output %q", ui.ErrorWriter.String())
	}
}

func TestStoreCommandsRequireDatabaseURL(t *testing.T) {
	t.Parallel()

	for name, cmd := range map[string]cli.Command{
		"migrate": &MigrateCommand{},
		"list":    &ListCommand{},
	} {
		t.Run(name, func(t *testing.T) {
			meta, ui := testMeta()
			switch c := cmd.(type) {
			case *MigrateCommand:
				c.Meta = meta
			case *ListCommand:
				c.Meta = meta
			}
			if code := cmd.Run(nil); code != 1 {
				t.Fatalf("expected exit 1, got %d", code)
			}
			if !strings.Contains(ui.ErrorWriter.String(), EnvDatabaseURL) {
				t.Fatalf("unexpected error output %q", ui.ErrorWriter.String())
			}
		})
	}
}

func TestDatabaseURLFromEnvironment(t *testing.T) {
	t.Parallel()

	meta, _ := testMeta()
	meta.Getenv = func(key string) string {
		if key == EnvDatabaseURL {
			return "postgres://localhost/forms"
		}
		return ""
	}
	fs := meta.FlagSet("list")
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if meta.databaseURL != "postgres://localhost/forms" {
		t.Fatalf("expected url from environment, got %q", meta.databaseURL)
	}
}

func TestRunVersionAndUnknownCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-version"}, strings.NewReader(""), &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(stderr.String(), version) {
		t.Fatalf("expected version, got %q", stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	if code := run([]string{"conjure"}, strings.NewReader(""), &stdout, &stderr); code != 127 {
		t.Fatalf("expected exit 127 for an unknown command, got %d", code)
	}
}
