package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-flexforms/pkg/model"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetHidden           = "hidden"
	WidgetText             = "text"
	WidgetTextarea         = "textarea"
	WidgetEmail            = "email"
	WidgetURL              = "url"
	WidgetPassword         = "password"
	WidgetNumber           = "number"
	WidgetDate             = "date"
	WidgetTime             = "time"
	WidgetDateTime         = "datetime-local"
	WidgetDuration         = "duration"
	WidgetCheckbox         = "checkbox"
	WidgetRadio            = "radio"
	WidgetSelect           = "select"
	WidgetSelectMultiple   = "select-multiple"
	WidgetCheckboxMultiple = "checkbox-multiple"
	WidgetFile             = "file"
	WidgetImage            = "image"
)

// Matcher decides whether a widget should handle the supplied field.
type Matcher func(field model.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widgets for fields. A hidden field always resolves to
// WidgetHidden; otherwise an explicit widget (from the field type default or
// the `widget` option) wins, and registered matchers are consulted last.
// Higher priority wins; ties fall back to registration order.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority. Higher
// priority values take precedence. Callers should avoid duplicate names; the
// latest registration wins during resolution.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field.
func (r *Registry) Resolve(field model.Field) (string, bool) {
	if field.Hidden {
		return WidgetHidden, true
	}
	if explicit := strings.TrimSpace(field.Widget); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Decorate implements model.Decorator, writing the resolved widget onto every
// field of the form.
func (r *Registry) Decorate(form *model.Form) error {
	if form == nil {
		return nil
	}
	for idx, field := range form.Fields {
		if widget, ok := r.Resolve(field); ok {
			form.Fields[idx].Widget = widget
		}
	}
	return nil
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetSelectMultiple, 70, func(field model.Field) bool {
		return field.Kind == model.KindMultiChoice
	})

	r.Register(WidgetSelect, 60, func(field model.Field) bool {
		return len(field.Choices) > 0 || field.Kind == model.KindChoice
	})

	r.Register(WidgetCheckbox, 50, func(field model.Field) bool {
		return field.Kind == model.KindBoolean
	})

	r.Register(WidgetNumber, 40, func(field model.Field) bool {
		return field.Kind == model.KindInteger || field.Kind == model.KindDecimal
	})

	r.Register(WidgetDate, 30, func(field model.Field) bool {
		return field.Kind == model.KindDate
	})
	r.Register(WidgetTime, 30, func(field model.Field) bool {
		return field.Kind == model.KindTime
	})
	r.Register(WidgetDateTime, 30, func(field model.Field) bool {
		return field.Kind == model.KindDateTime
	})
	r.Register(WidgetDuration, 30, func(field model.Field) bool {
		return field.Kind == model.KindDuration
	})

	r.Register(WidgetFile, 20, func(field model.Field) bool {
		return field.Kind == model.KindFile
	})

	r.Register(WidgetText, 0, func(model.Field) bool {
		return true
	})
}
