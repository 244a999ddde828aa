package render

// RenderOptions carry per-request data renderers may use without mutating
// the materialized form.
type RenderOptions struct {
	// Action is the form's submit target. Empty means the current URL.
	Action string
	// Method defaults to POST.
	Method string
	// Values overrides the submitted value shown for a field, keyed by field
	// name. Field.Value is used when a name is absent.
	Values map[string]any
	// Errors adds server-side messages keyed by field name. They are merged
	// with the errors the materializer attached to each field.
	Errors map[string][]string
	// FormErrors are messages not tied to a field.
	FormErrors []string
	// Hidden adds extra hidden inputs such as CSRF tokens.
	Hidden []HiddenField
}

// Value returns the value to display for field, preferring options.Values.
func (o RenderOptions) Value(name string, fallback any) any {
	if o.Values != nil {
		if value, ok := o.Values[name]; ok {
			return value
		}
	}
	return fallback
}
