package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/definition/hclload"
	"github.com/goliatone/go-flexforms/pkg/definition/loader"
)

// SourceAdapter loads definitions for the references it recognises.
type SourceAdapter interface {
	Name() string
	Match(ref string) bool
	Load(ctx context.Context, ref string) ([]definition.Form, error)
}

// SourceRegistry stores source adapters by name.
type SourceRegistry struct {
	mu       sync.RWMutex
	adapters map[string]SourceAdapter
}

// NewSourceRegistry creates a registry holding adapters.
func NewSourceRegistry(adapters ...SourceAdapter) (*SourceRegistry, error) {
	r := &SourceRegistry{adapters: make(map[string]SourceAdapter)}
	for _, adapter := range adapters {
		if err := r.Register(adapter); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an adapter by its Name(). Duplicate names return an error.
func (r *SourceRegistry) Register(adapter SourceAdapter) error {
	if adapter == nil {
		return errors.New("orchestrator: source adapter is required")
	}
	name := normalizeName(adapter.Name())
	if name == "" {
		return errors.New("orchestrator: source adapter name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("orchestrator: source adapter %q already registered", name)
	}
	r.adapters[name] = adapter
	return nil
}

// MustRegister panics on registration failure.
func (r *SourceRegistry) MustRegister(adapter SourceAdapter) {
	if err := r.Register(adapter); err != nil {
		panic(err)
	}
}

// Get retrieves an adapter by name.
func (r *SourceRegistry) Get(name string) (SourceAdapter, error) {
	key := normalizeName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[key]
	if !ok {
		return nil, fmt.Errorf("orchestrator: source adapter %q not found", name)
	}
	return adapter, nil
}

// List returns adapter names in sorted order.
func (r *SourceRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect returns the adapters that accept ref, sorted by name.
func (r *SourceRegistry) Detect(ref string) []SourceAdapter {
	var matches []SourceAdapter
	for _, name := range r.List() {
		adapter, err := r.Get(name)
		if err != nil {
			continue
		}
		if adapter.Match(ref) {
			matches = append(matches, adapter)
		}
	}
	return matches
}

// Load resolves ref to every definition it holds. A "#name" suffix selects
// one form by name.
func (r *SourceRegistry) Load(ctx context.Context, ref string) ([]definition.Form, error) {
	location, fragment := splitRef(ref)
	if location == "" {
		return nil, errors.New("orchestrator: source reference is required")
	}

	matches := r.Detect(location)
	var adapter SourceAdapter
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("orchestrator: no source adapter accepts %q (have %s)", location, strings.Join(r.List(), ", "))
	case 1:
		adapter = matches[0]
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name()
		}
		return nil, fmt.Errorf("orchestrator: multiple source adapters accept %q (%s)", location, strings.Join(names, ", "))
	}

	forms, err := adapter.Load(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load %s: %w", location, err)
	}
	if fragment == "" {
		return forms, nil
	}
	for _, form := range forms {
		if form.Name == fragment {
			return []definition.Form{form}, nil
		}
	}
	return nil, fmt.Errorf("orchestrator: %s has no form %q", location, fragment)
}

// Resolve loads ref and returns exactly one definition.
func (r *SourceRegistry) Resolve(ctx context.Context, ref string) (definition.Form, error) {
	forms, err := r.Load(ctx, ref)
	if err != nil {
		return definition.Form{}, err
	}
	switch len(forms) {
	case 0:
		return definition.Form{}, fmt.Errorf("orchestrator: %s holds no forms", ref)
	case 1:
		return forms[0], nil
	}
	names := make([]string, len(forms))
	for i, form := range forms {
		names[i] = form.Name
	}
	return definition.Form{}, fmt.Errorf("orchestrator: %s holds %d forms (%s), select one with #name", ref, len(forms), strings.Join(names, ", "))
}

func splitRef(ref string) (string, string) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, StorePrefix) {
		return ref, ""
	}
	if idx := strings.LastIndex(ref, "#"); idx >= 0 {
		return ref[:idx], ref[idx+1:]
	}
	return ref, ""
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DocumentSource reads YAML and JSON documents from disk or, when the
// loader has an HTTP client, from http(s) URLs.
type DocumentSource struct {
	Loader *loader.Loader
}

func (DocumentSource) Name() string { return "document" }

func (s DocumentSource) Match(ref string) bool {
	if isURL(ref) {
		return true
	}
	return loader.IsDefinitionFile(ref)
}

func (s DocumentSource) Load(ctx context.Context, ref string) ([]definition.Form, error) {
	l := s.Loader
	if l == nil {
		l = loader.New()
	}
	src := loader.SourceFromFile(ref)
	if isURL(ref) {
		src = loader.SourceFromURL(ref)
	}
	form, err := l.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return []definition.Form{form}, nil
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// HCLSource reads one or more `form` blocks from an .hcl file.
type HCLSource struct{}

func (HCLSource) Name() string { return "hcl" }

func (HCLSource) Match(ref string) bool {
	return strings.EqualFold(filepath.Ext(ref), ".hcl")
}

func (HCLSource) Load(ctx context.Context, ref string) ([]definition.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return hclload.ParseFile(ref)
}

// StorePrefix marks references served by a FormStore, as in "pg:signup".
const StorePrefix = "pg:"

// FormStore is the read side of a definition database. *pgstore.Store
// satisfies it.
type FormStore interface {
	Form(ctx context.Context, name string) (definition.Form, error)
}

// StoreSource resolves "pg:<form name>" references.
type StoreSource struct {
	Store FormStore
}

func (StoreSource) Name() string { return "postgres" }

func (StoreSource) Match(ref string) bool {
	return strings.HasPrefix(ref, StorePrefix)
}

func (s StoreSource) Load(ctx context.Context, ref string) ([]definition.Form, error) {
	if s.Store == nil {
		return nil, errors.New("database is not configured")
	}
	form, err := s.Store.Form(ctx, strings.TrimPrefix(ref, StorePrefix))
	if err != nil {
		return nil, err
	}
	return []definition.Form{form}, nil
}
