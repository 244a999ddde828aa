package expr

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agext/levenshtein"
)

// DefaultMaxLength bounds the size of a single expression.
const DefaultMaxLength = 4096

// Program is a compiled, immutable expression. Programs are safe for
// concurrent use.
type Program interface {
	// Source returns the expression text the program was compiled from.
	Source() string
	// References returns the sorted, de-duplicated variable names the
	// expression reads. Helper function names are not references.
	References() []string
	// Eval runs the program against vars. A name missing from vars fails
	// with ErrUndefinedReference.
	Eval(vars map[string]any) (any, error)
}

// Compiler turns expression text into programs. The native Sandbox and the
// CEL dialect both implement it.
type Compiler interface {
	Compile(expression string) (Program, error)
}

// Option customises a Sandbox.
type Option func(*Sandbox)

// WithFunctions adds or replaces helper functions. A nil entry removes the
// helper of that name.
func WithFunctions(funcs map[string]Function) Option {
	return func(s *Sandbox) {
		for name, fn := range funcs {
			if fn == nil {
				delete(s.funcs, name)
				continue
			}
			s.funcs[name] = fn
		}
	}
}

// WithRandom sets the source used by rand() and randint().
func WithRandom(random RandomSource) Option {
	return func(s *Sandbox) {
		if random == nil {
			return
		}
		defaults := DefaultFunctions(random)
		s.funcs["rand"] = defaults["rand"]
		s.funcs["randint"] = defaults["randint"]
	}
}

// WithMaxLength caps the expression length accepted by Compile. Values
// below one restore the default.
func WithMaxLength(n int) Option {
	return func(s *Sandbox) {
		if n < 1 {
			n = DefaultMaxLength
		}
		s.maxLength = n
	}
}

// WithoutCache disables the compiled program cache.
func WithoutCache() Option {
	return func(s *Sandbox) {
		s.cacheDisabled = true
	}
}

// Sandbox compiles and evaluates untrusted expressions. Compiled programs
// are cached by source text.
type Sandbox struct {
	funcs         map[string]Function
	maxLength     int
	cacheDisabled bool
	cache         sync.Map
}

// New constructs a sandbox with the default helper functions.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{
		funcs:     DefaultFunctions(nil),
		maxLength: DefaultMaxLength,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var (
	defaultOnce    sync.Once
	defaultSandbox *Sandbox
)

// Default returns a process-wide sandbox with default options.
func Default() *Sandbox {
	defaultOnce.Do(func() {
		defaultSandbox = New()
	})
	return defaultSandbox
}

// Functions returns the sorted names of the helpers callable from
// expressions.
func (s *Sandbox) Functions() []string {
	names := make([]string, 0, len(s.funcs))
	for name := range s.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile parses and validates expression. Unsafe constructs and calls to
// unknown helpers are rejected here, before anything is evaluated.
func (s *Sandbox) Compile(expression string) (Program, error) {
	if !s.cacheDisabled {
		if cached, ok := s.cache.Load(expression); ok {
			return cached.(*program), nil
		}
	}
	if len(expression) > s.maxLength {
		return nil, newError(ErrUnsafeConstruct, truncate(expression, 64), -1, "expression longer than %d bytes", s.maxLength)
	}

	root, err := parse(expression)
	if err != nil {
		return nil, err
	}

	refs := map[string]struct{}{}
	var callErr error
	walk(root, func(n node) {
		switch typed := n.(type) {
		case nameNode:
			refs[typed.name] = struct{}{}
		case callNode:
			if callErr != nil {
				return
			}
			if _, ok := s.funcs[typed.name]; !ok {
				callErr = s.unknownCall(expression, typed)
			}
		}
	})
	if callErr != nil {
		return nil, callErr
	}

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	prog := &program{src: expression, root: root, refs: names, funcs: s.funcs}
	if s.cacheDisabled {
		return prog, nil
	}
	actual, _ := s.cache.LoadOrStore(expression, prog)
	return actual.(*program), nil
}

// Evaluate compiles expression (through the cache) and runs it.
func (s *Sandbox) Evaluate(expression string, vars map[string]any) (any, error) {
	prog, err := s.Compile(expression)
	if err != nil {
		return nil, err
	}
	return prog.Eval(vars)
}

func (s *Sandbox) unknownCall(src string, call callNode) error {
	msg := fmt.Sprintf("call to %q is not allowed", call.name)
	if suggestion := closest(call.name, s.Functions()); suggestion != "" {
		msg += fmt.Sprintf("; did you mean %q?", suggestion)
	}
	return &Error{Kind: ErrUnsafeConstruct, Expression: src, Pos: call.pos, Msg: msg}
}

// closest returns the candidate within edit distance two of name, if any.
func closest(name string, candidates []string) string {
	best, bestDist := "", 3
	for _, candidate := range candidates {
		if dist := levenshtein.Distance(name, candidate, nil); dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	return best
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}

type program struct {
	src   string
	root  node
	refs  []string
	funcs map[string]Function
}

func (p *program) Source() string { return p.src }

func (p *program) References() []string {
	out := make([]string, len(p.refs))
	copy(out, p.refs)
	return out
}

func (p *program) Eval(vars map[string]any) (any, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	state := &evalState{src: p.src, vars: vars, funcs: p.funcs}
	return p.root.eval(state)
}

// ExtractReferences returns the sorted, unique variable names expression
// reads, using the default sandbox. It fails for expressions that would not
// compile.
func ExtractReferences(expression string) ([]string, error) {
	prog, err := Default().Compile(expression)
	if err != nil {
		return nil, err
	}
	return prog.References(), nil
}

// Evaluate runs expression in the default sandbox.
func Evaluate(expression string, vars map[string]any) (any, error) {
	return Default().Evaluate(expression, vars)
}
