package render_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/render"
)

type namesRenderer struct{ name string }

func (r namesRenderer) Name() string        { return r.name }
func (r namesRenderer) ContentType() string { return "text/plain" }
func (r namesRenderer) Render(_ context.Context, form model.Form, _ render.RenderOptions) ([]byte, error) {
	names := make([]string, 0, len(form.Fields))
	for _, field := range form.Fields {
		names = append(names, field.Name)
	}
	return []byte(strings.Join(names, ",")), nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg, err := render.NewRegistry(namesRenderer{name: "names"}, namesRenderer{name: "alt"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := reg.Register(namesRenderer{name: "names"}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := reg.Register(nil); err == nil {
		t.Fatalf("expected nil renderer error")
	}
	if err := reg.Register(namesRenderer{name: " "}); err == nil {
		t.Fatalf("expected empty name error")
	}
	if diff := cmp.Diff([]string{"alt", "names"}, reg.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if !reg.Has("alt") || reg.Has("pdf") {
		t.Fatalf("Has reported wrong membership")
	}

	out, err := reg.Render(context.Background(), "names", model.Form{Fields: []model.Field{{Name: "a"}, {Name: "b"}}}, render.RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(out) != "a,b" {
		t.Fatalf("unexpected output %q", out)
	}

	_, err = reg.Get("pdf")
	if err == nil || !strings.Contains(err.Error(), "have alt, names") {
		t.Fatalf("expected not found error listing renderers, got %v", err)
	}
}
