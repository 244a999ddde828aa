package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/orchestrator"
	"github.com/goliatone/go-flexforms/pkg/render"
	"github.com/goliatone/go-flexforms/pkg/testsupport"
)

const bridgeYAML = `
format_version: "1.0.0"
name: bridge
fields:
  - name: your_name
    type: SINGLE_LINE_TEXT
  - name: favourite_colour
    type: SINGLE_CHOICE_SELECT
    options:
      choices: [[blue, Blue], [yellow, Yellow]]
    modifiers:
      - attribute: hidden
        expression: your_name == 'Arthur'
`

const formsHCL = `
form "first" {
  field "a" {
    type = "CHECKBOX"
  }
}

form "second" {
  field "b" {
    type = "INTEGER"
    modifier "required" {
      expression = "True"
    }
  }
}
`

type stubRenderer struct {
	last model.Form
}

func (r *stubRenderer) Name() string        { return "stub" }
func (r *stubRenderer) ContentType() string { return "text/plain" }
func (r *stubRenderer) Render(_ context.Context, form model.Form, _ render.RenderOptions) ([]byte, error) {
	r.last = form
	names := make([]string, 0, len(form.Fields))
	for _, field := range form.Visible() {
		names = append(names, field.Name)
	}
	return []byte(strings.Join(names, ",")), nil
}

type countingStore struct {
	calls int
	form  definition.Form
}

func (s *countingStore) Form(_ context.Context, name string) (definition.Form, error) {
	s.calls++
	if name != s.form.Name {
		return definition.Form{}, errors.New("not found")
	}
	return s.form, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func stubOrchestrator(t *testing.T, opts ...orchestrator.Option) (*orchestrator.Orchestrator, *stubRenderer) {
	t.Helper()
	renderer := &stubRenderer{}
	registry, err := render.NewRegistry(renderer)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	opts = append([]orchestrator.Option{
		orchestrator.WithRegistry(registry),
		orchestrator.WithDefaultRenderer(renderer.Name()),
	}, opts...)
	return orchestrator.New(opts...), renderer
}

func TestGenerateFromYAMLFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "bridge.yaml", bridgeYAML)
	orch, renderer := stubOrchestrator(t)

	out, err := orch.Generate(context.Background(), orchestrator.Request{Ref: path, Values: map[string]any{"your_name": "Arthur"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(out) != "your_name" {
		t.Fatalf("favourite_colour should be hidden for Arthur, got %q", out)
	}

	out, err = orch.Generate(context.Background(), orchestrator.Request{Ref: path, Values: map[string]any{"your_name": "Lancelot"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(out) != "your_name,favourite_colour" {
		t.Fatalf("unexpected fields %q", out)
	}
	if renderer.last.Name != "bridge" {
		t.Fatalf("unexpected form %q", renderer.last.Name)
	}
}

func TestGenerateWithDefaultRenderers(t *testing.T) {
	t.Parallel()

	orch := orchestrator.New()
	def := testsupport.QuestForm()

	out, err := orch.Generate(context.Background(), orchestrator.Request{Definition: &def})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(out), "<form") {
		t.Fatalf("expected html output, got %s", out)
	}

	out, err = orch.Generate(context.Background(), orchestrator.Request{Definition: &def, Renderer: "schema"})
	if err != nil {
		t.Fatalf("generate schema: %v", err)
	}
	if !strings.Contains(string(out), `"your_quest"`) {
		t.Fatalf("expected schema output, got %s", out)
	}

	if _, err := orch.Generate(context.Background(), orchestrator.Request{Definition: &def, Renderer: "pdf"}); err == nil {
		t.Fatalf("expected unknown renderer error")
	}
}

func TestResolveHCLFragments(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "forms.hcl", formsHCL)
	orch, renderer := stubOrchestrator(t)

	_, err := orch.Generate(context.Background(), orchestrator.Request{Ref: path})
	if err == nil || !strings.Contains(err.Error(), "select one with #name") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}

	if _, err := orch.Generate(context.Background(), orchestrator.Request{Ref: path + "#second"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	field, ok := renderer.last.Field("b")
	if !ok || !field.Required {
		t.Fatalf("expected required field b, got %+v", renderer.last)
	}

	if _, err := orch.Generate(context.Background(), orchestrator.Request{Ref: path + "#third"}); err == nil {
		t.Fatalf("expected missing form error")
	}
}

func TestStoreReferencesAreCached(t *testing.T) {
	t.Parallel()

	store := &countingStore{form: testsupport.QuestForm()}
	orch, _ := stubOrchestrator(t, orchestrator.WithStore(store))

	for i := 0; i < 3; i++ {
		if _, err := orch.Generate(context.Background(), orchestrator.Request{Ref: "pg:bridge"}); err != nil {
			t.Fatalf("generate: %v", err)
		}
	}
	if store.calls != 1 {
		t.Fatalf("expected one store read, got %d", store.calls)
	}

	orch.Forget("pg:bridge")
	if _, err := orch.Generate(context.Background(), orchestrator.Request{Ref: "pg:bridge"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected a reload after Forget, got %d", store.calls)
	}

	if _, err := orch.Generate(context.Background(), orchestrator.Request{Ref: "pg:missing"}); err == nil {
		t.Fatalf("expected store error")
	}
}

func TestStoreReferencesNeedAStore(t *testing.T) {
	t.Parallel()

	orch, _ := stubOrchestrator(t)
	_, err := orch.Generate(context.Background(), orchestrator.Request{Ref: "pg:bridge"})
	if err == nil || !strings.Contains(err.Error(), "database is not configured") {
		t.Fatalf("expected missing database error, got %v", err)
	}
	if _, err := orch.Generate(context.Background(), orchestrator.Request{Ref: "forms.txt"}); err == nil {
		t.Fatalf("expected unknown source error")
	}
	if _, err := orch.Generate(context.Background(), orchestrator.Request{}); err == nil {
		t.Fatalf("expected missing reference error")
	}
}

func TestTransformerAndDecoratorsRunInOrder(t *testing.T) {
	t.Parallel()

	var steps []string
	transformer := orchestrator.TransformerFunc(func(_ context.Context, form *model.Form) error {
		steps = append(steps, "transform")
		form.Metadata = map[string]string{"patched": "true"}
		return nil
	})
	decorator := model.DecoratorFunc(func(form *model.Form) error {
		steps = append(steps, "decorate:"+form.Metadata["patched"])
		return nil
	})
	orch, renderer := stubOrchestrator(t, orchestrator.WithTransformer(transformer), orchestrator.WithDecorators(decorator))

	def := testsupport.QuestForm()
	if _, err := orch.Generate(context.Background(), orchestrator.Request{Definition: &def}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Join(steps, " ") != "transform decorate:true" {
		t.Fatalf("unexpected steps %v", steps)
	}
	if renderer.last.Metadata["patched"] != "true" {
		t.Fatalf("transformer mutation missing: %#v", renderer.last.Metadata)
	}
}

func TestTransformerErrorAborts(t *testing.T) {
	t.Parallel()

	transformer := orchestrator.TransformerFunc(func(context.Context, *model.Form) error {
		return errors.New("boom")
	})
	orch, _ := stubOrchestrator(t, orchestrator.WithTransformer(transformer))

	def := testsupport.QuestForm()
	_, err := orch.Generate(context.Background(), orchestrator.Request{Definition: &def})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected transformer error, got %v", err)
	}
}

func TestMaterializeReportsFieldErrors(t *testing.T) {
	t.Parallel()

	orch, _ := stubOrchestrator(t)
	def := testsupport.QuestForm()
	form, errs, err := orch.Materialize(context.Background(), orchestrator.Request{
		Definition: &def,
		Values:     map[string]any{"airspeed": "swallow"},
	})
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(errs.For("airspeed")) != 1 {
		t.Fatalf("expected an input error for airspeed, got %v", errs.All())
	}
	quest, _ := form.Field("your_quest")
	if !quest.Required {
		t.Fatalf("your_quest should be required without a name")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := orch.Materialize(ctx, orchestrator.Request{Definition: &def}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
