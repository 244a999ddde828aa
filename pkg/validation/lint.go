// Package validation lints form definitions before they are stored or
// served. Unlike engine.Compile, which stops at the first fatal problem,
// Lint collects every issue it can find so an author can fix a definition
// in one go.
package validation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/engine"
	"github.com/goliatone/go-flexforms/pkg/expr"
	"github.com/goliatone/go-flexforms/pkg/fieldtypes"
)

// Severity ranks an issue. Errors make a definition unusable; warnings
// point at likely mistakes the engine tolerates.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes.
const (
	CodeFormatVersion      = "format_version"
	CodeMissingName        = "missing_name"
	CodeMissingType        = "missing_type"
	CodeDuplicateName      = "duplicate_name"
	CodeUnknownType        = "unknown_type"
	CodeInvalidOptions     = "invalid_options"
	CodeUnknownOption      = "unknown_option"
	CodeMissingAttribute   = "missing_attribute"
	CodeUnsupported        = "unsupported_attribute"
	CodeUnknownAttribute   = "unknown_attribute"
	CodeMissingExpression  = "missing_expression"
	CodeSyntax             = "syntax"
	CodeUnsafe             = "unsafe"
	CodeUndefinedReference = "undefined_reference"
	CodeCycle              = "cycle"
)

// Issue is a single lint finding. Field and Attribute locate it when it is
// tied to a field or modifier; Suggestion holds a likely intended name.
type Issue struct {
	Form       string   `json:"form,omitempty"`
	Field      string   `json:"field,omitempty"`
	Attribute  string   `json:"attribute,omitempty"`
	Code       string   `json:"code"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Severity))
	if i.Field != "" {
		fmt.Fprintf(&b, " %s", i.Field)
		if i.Attribute != "" {
			fmt.Fprintf(&b, ".%s", i.Attribute)
		}
	}
	fmt.Fprintf(&b, ": %s", i.Message)
	if i.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", i.Suggestion)
	}
	return b.String()
}

// Result captures the outcome of linting one form. Valid is false when at
// least one error-level issue was found.
type Result struct {
	Form   string  `json:"form"`
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Errors returns the error-level issues.
func (r Result) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-level issues.
func (r Result) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r Result) filter(severity Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}

// Option customises a Linter.
type Option func(*Linter)

// WithTypes lints against a custom field-type catalog.
func WithTypes(types *fieldtypes.Registry) Option {
	return func(l *Linter) {
		if types != nil {
			l.types = types
		}
	}
}

// WithCompiler lints expressions in another dialect.
func WithCompiler(compiler expr.Compiler) Option {
	return func(l *Linter) {
		if compiler != nil {
			l.compiler = compiler
		}
	}
}

// WithInputs names submitted values that are not form fields but that
// expressions may legitimately read. References to them are not reported.
func WithInputs(names ...string) Option {
	return func(l *Linter) {
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				l.inputs[name] = struct{}{}
			}
		}
	}
}

// Linter checks definitions. It is safe for concurrent use.
type Linter struct {
	types    *fieldtypes.Registry
	compiler expr.Compiler
	inputs   map[string]struct{}
	options  []string
}

// New constructs a Linter with the built-in catalog and native dialect.
func New(opts ...Option) *Linter {
	l := &Linter{
		types:    fieldtypes.Default(),
		compiler: expr.Default(),
		inputs:   map[string]struct{}{},
		options:  fieldtypes.OptionKeys(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Lint checks form with a default Linter.
func Lint(form definition.Form, opts ...Option) Result {
	return New(opts...).Lint(form)
}

// Lint reports every problem found in form: format version, names, field
// types, options, modifier attributes, expression syntax and safety,
// references to undefined names and dependency cycles.
func (l *Linter) Lint(form definition.Form) Result {
	form = form.Normalize()
	c := &collector{form: form.Name}

	if err := definition.CheckFormatVersion(form.FormatVersion); err != nil {
		c.add(Issue{Code: CodeFormatVersion, Severity: SeverityError, Message: err.Error()})
	}

	declared := l.lintFields(c, form)
	programs := l.lintModifiers(c, form)

	graph := engine.BuildGraph(form.Fields, programs)
	l.lintReferences(c, form, programs, graph, declared)
	if _, err := engine.Schedule(graph); err != nil {
		var cycle *engine.CyclicDependencyError
		issue := Issue{Code: CodeCycle, Severity: SeverityError, Message: err.Error()}
		if errors.As(err, &cycle) && len(cycle.Cycle) > 0 {
			issue.Field = cycle.Cycle[0]
			issue.Message = "modifiers depend on each other: " + strings.Join(cycle.Cycle, " -> ")
		}
		c.add(issue)
	}

	return c.result()
}

func (l *Linter) lintFields(c *collector, form definition.Form) []string {
	seen := make(map[string]bool, len(form.Fields))
	var declared []string
	for i, field := range form.Fields {
		if strings.TrimSpace(field.Name) == "" {
			c.add(Issue{Code: CodeMissingName, Severity: SeverityError,
				Message: fmt.Sprintf("field %d has neither a name nor a label", i)})
			continue
		}
		if seen[field.Name] {
			c.add(Issue{Field: field.Name, Code: CodeDuplicateName, Severity: SeverityError,
				Message: fmt.Sprintf("field %q is defined more than once", field.Name)})
		} else {
			seen[field.Name] = true
			declared = append(declared, field.Name)
		}

		if strings.TrimSpace(field.Type) == "" {
			c.add(Issue{Field: field.Name, Code: CodeMissingType, Severity: SeverityError, Message: "type is required"})
			continue
		}
		typ, err := l.types.Get(field.Type)
		if err != nil {
			c.add(Issue{
				Field:      field.Name,
				Code:       CodeUnknownType,
				Severity:   SeverityError,
				Message:    fmt.Sprintf("unknown field type %q", field.Type),
				Suggestion: suggest(field.Type, l.types.List(), 3),
			})
			continue
		}

		for _, key := range sortedKeys(field.Options) {
			if l.knownOption(key) {
				continue
			}
			if s := suggest(key, l.options, 2); s != "" {
				c.add(Issue{Field: field.Name, Attribute: key, Code: CodeUnknownOption, Severity: SeverityWarning,
					Message: fmt.Sprintf("option %q has no built-in meaning and is passed through", key), Suggestion: s})
			}
		}

		options, err := l.types.DefaultOptions(field.Type)
		if err != nil {
			continue
		}
		for k, v := range field.Options {
			options[k] = v
		}
		cfg, err := fieldtypes.Decode(options)
		if err == nil {
			_, err = typ.Build(field.Name, cfg)
		}
		if err != nil {
			c.add(Issue{Field: field.Name, Code: CodeInvalidOptions, Severity: SeverityError, Message: err.Error()})
		}
	}
	return declared
}

func (l *Linter) lintModifiers(c *collector, form definition.Form) engine.Programs {
	programs := make(engine.Programs, len(form.Fields))
	for _, field := range form.Fields {
		if len(field.Modifiers) == 0 {
			continue
		}
		compiled := make([]expr.Program, len(field.Modifiers))
		for i, mod := range field.Modifiers {
			attr := strings.TrimSpace(mod.Attribute)
			switch {
			case attr == "":
				c.add(Issue{Field: field.Name, Code: CodeMissingAttribute, Severity: SeverityError,
					Message: fmt.Sprintf("modifier %d has no attribute", i)})
			case attr == "name" || attr == "type":
				c.add(Issue{Field: field.Name, Attribute: attr, Code: CodeUnsupported, Severity: SeverityError,
					Message: fmt.Sprintf("attribute %q cannot be modified", attr)})
			case !l.knownOption(attr):
				if s := suggest(attr, l.options, 2); s != "" {
					c.add(Issue{Field: field.Name, Attribute: attr, Code: CodeUnknownAttribute, Severity: SeverityWarning,
						Message: fmt.Sprintf("attribute %q has no built-in meaning and is passed through", attr), Suggestion: s})
				}
			}

			if strings.TrimSpace(mod.Expression) == "" {
				c.add(Issue{Field: field.Name, Attribute: attr, Code: CodeMissingExpression, Severity: SeverityError,
					Message: "expression is required"})
				continue
			}
			prog, err := l.compiler.Compile(mod.Expression)
			if err != nil {
				code := CodeSyntax
				if errors.Is(err, expr.ErrUnsafeConstruct) {
					code = CodeUnsafe
				}
				c.add(Issue{Field: field.Name, Attribute: attr, Code: code, Severity: SeverityError, Message: err.Error()})
				continue
			}
			compiled[i] = prog
		}
		programs[field.Name] = compiled
	}
	return programs
}

// lintReferences warns about names read by modifiers that are neither form
// fields nor declared inputs. At runtime such modifiers are skipped unless
// the submission happens to carry the name.
func (l *Linter) lintReferences(c *collector, form definition.Form, programs engine.Programs, graph *engine.Graph, declared []string) {
	undeclared := map[string]bool{}
	for _, name := range graph.Undeclared() {
		if _, ok := l.inputs[name]; !ok {
			undeclared[name] = true
		}
	}
	if len(undeclared) == 0 {
		return
	}
	for _, field := range form.Fields {
		for _, dep := range graph.Dependencies(field.Name) {
			if !undeclared[dep] {
				continue
			}
			c.add(Issue{
				Field:      field.Name,
				Attribute:  readingAttributes(field, programs[field.Name], dep),
				Code:       CodeUndefinedReference,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("%q is not a field of this form", dep),
				Suggestion: suggest(dep, declared, 2),
			})
		}
	}
}

func (l *Linter) knownOption(name string) bool {
	if definition.IsKnownAttribute(name) {
		return true
	}
	for _, key := range l.options {
		if key == name {
			return true
		}
	}
	return false
}

// LintAll lints forms concurrently and returns results in input order.
func (l *Linter) LintAll(ctx context.Context, forms []definition.Form) ([]Result, error) {
	results := make([]Result, len(forms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, form := range forms {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.Lint(form)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	return results, nil
}

type collector struct {
	form   string
	issues []Issue
}

func (c *collector) add(issue Issue) {
	issue.Form = c.form
	c.issues = append(c.issues, issue)
}

func (c *collector) result() Result {
	res := Result{Form: c.form, Valid: true, Issues: c.issues}
	for _, issue := range c.issues {
		if issue.Severity == SeverityError {
			res.Valid = false
			break
		}
	}
	return res
}
