package fieldtypes

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/copystructure"
)

// ErrUnknownType reports a type key missing from the registry.
var ErrUnknownType = errors.New("unknown field type")

// Registry stores field types by key. It is safe for concurrent use; the
// default registry is populated once and treated as read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Type)}
}

// NewBuiltinRegistry creates a registry holding the built-in types.
func NewBuiltinRegistry() *Registry {
	reg := NewRegistry()
	for _, t := range Builtins() {
		reg.MustRegister(t)
	}
	return reg
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide built-in registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewBuiltinRegistry()
	})
	return defaultRegistry
}

// Register adds a type by key. Duplicate keys return an error.
func (r *Registry) Register(t Type) error {
	key := strings.TrimSpace(t.Key)
	if key == "" {
		return fmt.Errorf("fieldtypes: type key is required")
	}
	if t.Kind == "" {
		return fmt.Errorf("fieldtypes: type %q: kind is required", key)
	}
	t.Key = key

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[key]; exists {
		return fmt.Errorf("fieldtypes: type %q already registered", key)
	}
	r.types[key] = t
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(t Type) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get retrieves a type by key.
func (r *Registry) Get(key string) (Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[key]
	if !ok {
		return Type{}, fmt.Errorf("fieldtypes: %q: %w", key, ErrUnknownType)
	}
	return t, nil
}

// Has reports whether a type is registered.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.types[key]
	return ok
}

// List returns a sorted list of type keys.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.types))
	for key := range r.types {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Coerce cleans a raw submitted value with the type's coercer. Unknown types
// return the raw value together with ErrUnknownType.
func (r *Registry) Coerce(key string, raw any) (any, error) {
	t, err := r.Get(key)
	if err != nil {
		return raw, err
	}
	if t.Coerce == nil {
		return raw, nil
	}
	return t.Coerce(raw)
}

// DefaultOptions returns a deep copy of the type's default options so
// callers may merge into it freely.
func (r *Registry) DefaultOptions(key string) (map[string]any, error) {
	t, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	if len(t.Options) == 0 {
		return map[string]any{}, nil
	}
	copied, err := copystructure.Copy(t.Options)
	if err != nil {
		return nil, fmt.Errorf("fieldtypes: copy defaults for %q: %w", key, err)
	}
	return copied.(map[string]any), nil
}
