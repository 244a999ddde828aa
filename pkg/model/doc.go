// Package model defines the materialized form consumed by renderers. A Field
// here is the effective configuration for one submission: base options with
// modifier overrides merged in, decoded into typed attributes and resolved to
// a widget. Custom attributes that have no built-in meaning travel in
// Attributes; Errors carries per-field diagnostics from the evaluation pass
// so renderers can surface them next to the control.
package model
