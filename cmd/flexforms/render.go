package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-flexforms/pkg/orchestrator"
	"github.com/goliatone/go-flexforms/pkg/render"
)

// RenderCommand materializes a definition and renders it.
type RenderCommand struct {
	Meta
}

func (c *RenderCommand) Help() string {
	return strings.TrimSpace(`
Usage: flexforms render [options] <ref>

  Materializes a definition against submitted values and renders it as an
  HTML form or a JSON Schema document.

Options:

  -renderer=html       Renderer: html or schema.
  -values=FILE         YAML or JSON file with submitted values.
  -set name=value      Submitted value, may be repeated.
  -action=URL          Form action (html).
  -method=post         Form method (html).
  -o=FILE              Write the output to FILE instead of stdout.
` + commonFlagsHelp)
}

func (c *RenderCommand) Synopsis() string {
	return "Render a form as HTML or JSON Schema"
}

func (c *RenderCommand) Run(args []string) int {
	var (
		rendererName, valuesPath, action, method, output string
		sets                                             = setFlags{}
	)
	fs := c.FlagSet("render")
	fs.StringVar(&rendererName, "renderer", "html", "")
	fs.StringVar(&valuesPath, "values", "", "")
	fs.Var(sets, "set", "")
	fs.StringVar(&action, "action", "", "")
	fs.StringVar(&method, "method", "", "")
	fs.StringVar(&output, "o", "", "")
	if !c.parseFlags(fs, args, c.Help()) {
		return 1
	}
	if fs.NArg() != 1 {
		c.Ui.Error("render: exactly one definition is required")
		return 1
	}

	values, err := ReadValues(valuesPath)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	values = sets.apply(values)

	ctx := context.Background()
	orch, closeFn, err := c.Orchestrator(ctx)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	defer closeFn()

	out, err := orch.Generate(ctx, orchestrator.Request{
		Ref:      fs.Arg(0),
		Values:   values,
		Renderer: rendererName,
		RenderOptions: render.RenderOptions{
			Action: action,
			Method: method,
			Values: values,
		},
	})
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	if output != "" {
		if err := os.WriteFile(output, out, 0o644); err != nil {
			c.Ui.Error(fmt.Sprintf("write output: %v", err))
			return 1
		}
		c.Ui.Info(fmt.Sprintf("Form written to %s", output))
		return 0
	}
	c.Ui.Output(string(out))
	return 0
}
