package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xlab/treeprint"

	"github.com/goliatone/go-flexforms/pkg/engine"
)

// GraphCommand prints the modifier dependency graph and evaluation order.
type GraphCommand struct {
	Meta
}

func (c *GraphCommand) Help() string {
	return strings.TrimSpace(`
Usage: flexforms graph [options] <ref>

  Prints, for every field, the names its modifiers read, followed by the
  order in which modifiers are evaluated. Names that are not fields of the
  form are marked (input). Exits 1 when the graph has a cycle.

Options:

  -format=tree         Output format: tree or dot.
` + commonFlagsHelp)
}

func (c *GraphCommand) Synopsis() string {
	return "Show modifier dependencies and evaluation order"
}

func (c *GraphCommand) Run(args []string) int {
	var format string
	fs := c.FlagSet("graph")
	fs.StringVar(&format, "format", "tree", "")
	if !c.parseFlags(fs, args, c.Help()) {
		return 1
	}
	if fs.NArg() != 1 {
		c.Ui.Error("graph: exactly one definition is required")
		return 1
	}

	ctx := context.Background()
	compiler, err := c.Compiler()
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	orch, closeFn, err := c.Orchestrator(ctx)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	defer closeFn()

	form, err := orch.Sources().Resolve(ctx, fs.Arg(0))
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	form = form.Normalize()
	programs, compileErrs := engine.CompilePrograms(form.Fields, compiler)
	graph := engine.BuildGraph(form.Fields, programs)
	order, schedErr := engine.Schedule(graph)

	switch format {
	case "tree":
		c.Ui.Output(strings.TrimRight(graphTree(form.Name, graph).String(), "\n"))
		if schedErr == nil {
			c.Ui.Output("order: " + strings.Join(order, ", "))
		}
	case "dot":
		c.Ui.Output(graphDot(form.Name, graph))
	default:
		c.Ui.Error(fmt.Sprintf("graph: unknown format %q", format))
		return 1
	}

	for _, ferr := range compileErrs {
		c.Ui.Warn(ferr.Error())
	}
	if schedErr != nil {
		var cycle *engine.CyclicDependencyError
		if errors.As(schedErr, &cycle) {
			c.Ui.Error(c.Colorize("[red]cycle:[reset] " + strings.Join(cycle.Cycle, " -> ")))
		} else {
			c.Ui.Error(schedErr.Error())
		}
		return 1
	}
	return 0
}

func graphTree(name string, graph *engine.Graph) treeprint.Tree {
	tree := treeprint.NewWithRoot(name)
	for _, node := range graph.Nodes() {
		if !graph.Declared(node) {
			continue
		}
		deps := graph.Dependencies(node)
		if len(deps) == 0 {
			tree.AddNode(node)
			continue
		}
		branch := tree.AddBranch(node)
		for _, dep := range deps {
			label := dep
			if !graph.Declared(dep) {
				label += " (input)"
			}
			branch.AddNode(label)
		}
	}
	return tree
}

func graphDot(name string, graph *engine.Graph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", name)
	for _, node := range graph.Nodes() {
		if graph.Declared(node) {
			fmt.Fprintf(&b, "  %q;\n", node)
		} else {
			fmt.Fprintf(&b, "  %q [style=dashed];\n", node)
		}
	}
	for _, node := range graph.Nodes() {
		for _, dep := range graph.Dependencies(node) {
			fmt.Fprintf(&b, "  %q -> %q;\n", node, dep)
		}
	}
	b.WriteString("}")
	return b.String()
}
