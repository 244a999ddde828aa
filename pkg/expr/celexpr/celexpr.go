// Package celexpr provides a CEL dialect for modifier expressions. Programs
// compiled here satisfy expr.Program so the engine can schedule and apply
// them exactly like native expressions.
package celexpr

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/goliatone/go-flexforms/pkg/expr"
)

// Compiler compiles CEL expressions. Member calls, field selection and
// comprehension macros are rejected so the dialect stays as restricted as
// the native language.
type Compiler struct {
	maxLength int
	cache     sync.Map
}

// Option customises a Compiler.
type Option func(*Compiler)

// WithMaxLength caps accepted expression length.
func WithMaxLength(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.maxLength = n
		}
	}
}

// New returns a CEL compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{maxLength: expr.DefaultMaxLength}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var _ expr.Compiler = (*Compiler)(nil)

// Compile implements expr.Compiler.
func (c *Compiler) Compile(expression string) (expr.Program, error) {
	if cached, ok := c.cache.Load(expression); ok {
		return cached.(*program), nil
	}
	if strings.TrimSpace(expression) == "" {
		return nil, exprError(expr.ErrExpressionSyntax, expression, "empty expression")
	}
	if len(expression) > c.maxLength {
		return nil, exprError(expr.ErrUnsafeConstruct, expression, fmt.Sprintf("expression longer than %d bytes", c.maxLength))
	}

	base, err := cel.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("celexpr: base env: %w", err)
	}
	parsed, issues := base.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, exprError(expr.ErrExpressionSyntax, expression, issues.Err().Error())
	}

	refs, err := references(expression, parsed)
	if err != nil {
		return nil, err
	}

	decls := make([]cel.EnvOption, 0, len(refs))
	for _, name := range refs {
		decls = append(decls, cel.Variable(name, cel.DynType))
	}
	env, err := base.Extend(decls...)
	if err != nil {
		return nil, fmt.Errorf("celexpr: extend env: %w", err)
	}
	checked, issues := env.Check(parsed)
	if issues != nil && issues.Err() != nil {
		msg := issues.Err().Error()
		if strings.Contains(msg, "undeclared reference") {
			return nil, exprError(expr.ErrUnsafeConstruct, expression, msg)
		}
		return nil, exprError(expr.ErrExpressionSyntax, expression, msg)
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, exprError(expr.ErrExpressionSyntax, expression, err.Error())
	}

	compiled := &program{src: expression, refs: refs, prg: prg}
	actual, _ := c.cache.LoadOrStore(expression, compiled)
	return actual.(*program), nil
}

// references walks the parsed tree collecting free identifiers and rejecting
// constructs outside the restricted subset.
func references(src string, parsed *cel.Ast) ([]string, error) {
	seen := map[string]struct{}{}
	var unsafe error
	ast.PreOrderVisit(parsed.NativeRep().Expr(), ast.NewExprVisitor(func(e ast.Expr) {
		if unsafe != nil {
			return
		}
		switch e.Kind() {
		case ast.IdentKind:
			name := e.AsIdent()
			if strings.HasPrefix(name, "__") {
				unsafe = exprError(expr.ErrUnsafeConstruct, src, fmt.Sprintf("dunder names are not allowed (%q)", name))
				return
			}
			seen[name] = struct{}{}
		case ast.SelectKind:
			unsafe = exprError(expr.ErrUnsafeConstruct, src, "attribute access is not allowed")
		case ast.ComprehensionKind:
			unsafe = exprError(expr.ErrUnsafeConstruct, src, "comprehensions are not allowed")
		case ast.CallKind:
			if e.AsCall().IsMemberFunction() {
				unsafe = exprError(expr.ErrUnsafeConstruct, src, fmt.Sprintf("method call %q is not allowed", e.AsCall().FunctionName()))
			}
		}
	}))
	if unsafe != nil {
		return nil, unsafe
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func exprError(kind error, src, msg string) error {
	return &expr.Error{Kind: kind, Expression: src, Pos: -1, Msg: msg}
}

type program struct {
	src  string
	refs []string
	prg  cel.Program
}

func (p *program) Source() string { return p.src }

func (p *program) References() []string {
	out := make([]string, len(p.refs))
	copy(out, p.refs)
	return out
}

func (p *program) Eval(vars map[string]any) (any, error) {
	activation := make(map[string]any, len(p.refs))
	for _, name := range p.refs {
		value, ok := vars[name]
		if !ok {
			return nil, exprError(expr.ErrUndefinedReference, p.src, fmt.Sprintf("name %q is not defined", name))
		}
		activation[name] = value
	}
	out, _, err := p.prg.Eval(activation)
	if err != nil {
		return nil, exprError(expr.ErrEvaluation, p.src, err.Error())
	}
	value, err := native(out)
	if err != nil {
		return nil, exprError(expr.ErrEvaluation, p.src, err.Error())
	}
	return value, nil
}

var (
	listType = reflect.TypeOf([]any{})
	mapType  = reflect.TypeOf(map[string]any{})
)

// native converts a CEL value to the runtime types used by the native
// dialect.
func native(val ref.Val) (any, error) {
	if val == nil || val == types.NullValue {
		return nil, nil
	}
	if types.IsError(val) {
		if err, ok := val.Value().(error); ok {
			return nil, err
		}
		return nil, errors.New("evaluation failed")
	}
	switch v := val.(type) {
	case types.Int:
		return int64(v), nil
	case types.Uint:
		return int64(v), nil
	case types.Double:
		return float64(v), nil
	case types.Bool:
		return bool(v), nil
	case types.String:
		return string(v), nil
	case traits.Lister:
		converted, err := v.ConvertToNative(listType)
		if err != nil {
			return nil, err
		}
		items := converted.([]any)
		out := make([]any, len(items))
		for i, item := range items {
			if inner, ok := item.(ref.Val); ok {
				nv, err := native(inner)
				if err != nil {
					return nil, err
				}
				out[i] = nv
				continue
			}
			out[i] = item
		}
		return out, nil
	case traits.Mapper:
		converted, err := v.ConvertToNative(mapType)
		if err != nil {
			return nil, err
		}
		return converted, nil
	}
	return val.Value(), nil
}
