package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-flexforms/pkg/render"
	"github.com/goliatone/go-flexforms/pkg/renderers/tui"
)

// FillCommand asks for every visible field in the terminal and prints the
// answers.
type FillCommand struct {
	Meta
}

func (c *FillCommand) Help() string {
	return strings.TrimSpace(`
Usage: flexforms fill [options] <ref>

  Prompts for every visible field. After each answer the form is
  re-evaluated, so fields appear, disappear or become required as
  modifiers dictate. The answers are printed on stdout.

Options:

  -values=FILE         YAML or JSON file with answers to start from.
  -format=json         Output format: json, form or pretty.
` + commonFlagsHelp)
}

func (c *FillCommand) Synopsis() string {
	return "Fill in a form interactively"
}

func (c *FillCommand) Run(args []string) int {
	var valuesPath, format string
	fs := c.FlagSet("fill")
	fs.StringVar(&valuesPath, "values", "", "")
	fs.StringVar(&format, "format", string(tui.OutputFormatJSON), "")
	if !c.parseFlags(fs, args, c.Help()) {
		return 1
	}
	if fs.NArg() != 1 {
		c.Ui.Error("fill: exactly one definition is required")
		return 1
	}
	switch tui.OutputFormat(format) {
	case tui.OutputFormatJSON, tui.OutputFormatFormURLEncoded, tui.OutputFormatPrettyText:
	default:
		c.Ui.Error(fmt.Sprintf("fill: unknown format %q", format))
		return 1
	}

	values, err := ReadValues(valuesPath)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	ctx := context.Background()
	orch, closeFn, err := c.Orchestrator(ctx)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	defer closeFn()

	def, err := orch.Sources().Resolve(ctx, fs.Arg(0))
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	materializer, err := c.Materializer()
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	plan, err := materializer.Compile(def)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	form, _, err := plan.Materialize(ctx, values)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	renderer := tui.New(
		tui.WithPromptDriver(c.Driver),
		tui.WithOutput(c.logOutput()),
		tui.WithMaterializer(plan),
		tui.WithTypes(materializer.Types()),
		tui.WithOutputFormat(tui.OutputFormat(format)),
		tui.WithTheme(tui.Theme{ErrorPrefix: "! "}),
	)
	out, err := renderer.Render(ctx, form, render.RenderOptions{Values: values})
	if err != nil {
		if errors.Is(err, tui.ErrAborted) {
			c.Ui.Error("fill: aborted")
			return 130
		}
		c.Ui.Error(err.Error())
		return 1
	}
	c.Ui.Output(strings.TrimRight(string(out), "\n"))
	return 0
}
