package engine

import (
	"sort"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/expr"
)

// Programs holds one compiled program per modifier, keyed by field name and
// indexed like the field's Modifiers. A nil entry marks a modifier that did
// not compile.
type Programs map[string][]expr.Program

// CompilePrograms compiles every modifier of fields. Modifiers that fail to
// compile are left nil and reported as field errors.
func CompilePrograms(fields []definition.Field, compiler expr.Compiler) (Programs, []FieldError) {
	programs := make(Programs, len(fields))
	var errs []FieldError
	for _, field := range fields {
		if len(field.Modifiers) == 0 {
			continue
		}
		compiled := make([]expr.Program, len(field.Modifiers))
		for i, mod := range field.Modifiers {
			prog, err := compiler.Compile(mod.Expression)
			if err != nil {
				errs = append(errs, FieldError{
					Field:      field.Name,
					Attribute:  mod.Attribute,
					Expression: mod.Expression,
					Err:        err,
				})
				continue
			}
			compiled[i] = prog
		}
		programs[field.Name] = compiled
	}
	return programs, errs
}

// Graph records which fields each field's modifiers read. An edge A -> B
// means a modifier on A reads B. Self-edges are kept; the scheduler ignores
// them.
type Graph struct {
	nodes    []string
	rank     map[string]int
	declared map[string]bool
	deps     map[string]map[string]struct{}
	users    map[string]map[string]struct{}
}

// BuildGraph derives the dependency graph of fields from their compiled
// modifiers. Every declared field is a node, in definition order; names
// referenced but not declared follow in first-reference order.
func BuildGraph(fields []definition.Field, programs Programs) *Graph {
	g := &Graph{
		rank:     make(map[string]int, len(fields)),
		declared: make(map[string]bool, len(fields)),
		deps:     make(map[string]map[string]struct{}),
		users:    make(map[string]map[string]struct{}),
	}
	for _, field := range fields {
		g.addNode(field.Name)
		g.declared[field.Name] = true
	}
	for _, field := range fields {
		for _, prog := range programs[field.Name] {
			if prog == nil {
				continue
			}
			for _, ref := range prog.References() {
				g.addNode(ref)
				g.addEdge(field.Name, ref)
			}
		}
	}
	return g
}

func (g *Graph) addNode(name string) {
	if _, ok := g.rank[name]; ok {
		return
	}
	g.rank[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

func (g *Graph) addEdge(from, to string) {
	if g.deps[from] == nil {
		g.deps[from] = make(map[string]struct{})
	}
	g.deps[from][to] = struct{}{}
	if g.users[to] == nil {
		g.users[to] = make(map[string]struct{})
	}
	g.users[to][from] = struct{}{}
}

// Nodes returns every node in tie-break order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Declared reports whether name is a field of the form, as opposed to a
// name only referenced by an expression.
func (g *Graph) Declared(name string) bool { return g.declared[name] }

// HasEdge reports whether a modifier on from reads to.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.deps[from][to]
	return ok
}

// Dependencies returns the names read by name's modifiers in tie-break
// order.
func (g *Graph) Dependencies(name string) []string {
	return g.ordered(g.deps[name])
}

// Dependents returns the fields whose modifiers read name, in tie-break
// order.
func (g *Graph) Dependents(name string) []string {
	return g.ordered(g.users[name])
}

// Undeclared returns referenced names that are not form fields.
func (g *Graph) Undeclared() []string {
	var out []string
	for _, name := range g.nodes {
		if !g.declared[name] {
			out = append(out, name)
		}
	}
	return out
}

func (g *Graph) ordered(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return g.rank[out[i]] < g.rank[out[j]] })
	return out
}
