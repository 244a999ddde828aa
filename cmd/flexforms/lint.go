package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-flexforms/pkg/definition"
	"github.com/goliatone/go-flexforms/pkg/validation"
)

// LintCommand reports definition problems.
type LintCommand struct {
	Meta
}

func (c *LintCommand) Help() string {
	return strings.TrimSpace(`
Usage: flexforms lint [options] <ref>...

  Lints form definitions: duplicate names, unknown field types, unsupported
  attributes, expression syntax and safety, undefined references and
  dependency cycles. A ref is a YAML/JSON/HCL path, an http(s) URL or
  pg:<form name>. HCL refs may select one form with #name.

  Exits 1 when any definition has an error-level issue.

Options:

  -format=text         Output format: text or json.
  -inputs=a,b          Names supplied by submissions that are not fields.
` + commonFlagsHelp)
}

func (c *LintCommand) Synopsis() string {
	return "Check form definitions for mistakes"
}

func (c *LintCommand) Run(args []string) int {
	var format, inputs string
	fs := c.FlagSet("lint")
	fs.StringVar(&format, "format", "text", "")
	fs.StringVar(&inputs, "inputs", "", "")
	if !c.parseFlags(fs, args, c.Help()) {
		return 1
	}
	refs := fs.Args()
	if len(refs) == 0 {
		c.Ui.Error("lint: at least one definition is required")
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

	var (
		forms  []definition.Form
		origin []string
	)
	for _, ref := range refs {
		loaded, err := orch.Sources().Load(ctx, ref)
		if err != nil {
			c.Ui.Error(err.Error())
			return 1
		}
		for range loaded {
			origin = append(origin, ref)
		}
		forms = append(forms, loaded...)
	}

	linter := validation.New(validation.WithCompiler(compiler), validation.WithInputs(splitList(inputs)...))
	results, err := linter.LintAll(ctx, forms)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	valid := true
	for _, result := range results {
		valid = valid && result.Valid
	}

	switch format {
	case "json":
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			c.Ui.Error(err.Error())
			return 1
		}
		c.Ui.Output(string(out))
	case "text":
		c.printText(results, origin)
	default:
		c.Ui.Error(fmt.Sprintf("lint: unknown format %q", format))
		return 1
	}

	if !valid {
		return 1
	}
	return 0
}

func (c *LintCommand) printText(results []validation.Result, origin []string) {
	for i, result := range results {
		if len(result.Issues) == 0 {
			c.Ui.Output(c.Colorize(fmt.Sprintf("[green]ok[reset] %s (%s)", result.Form, origin[i])))
			continue
		}
		for _, issue := range result.Issues {
			color := "yellow"
			if issue.Severity == validation.SeverityError {
				color = "red"
			}
			line := strings.TrimPrefix(issue.String(), string(issue.Severity))
			c.Ui.Output(c.Colorize(fmt.Sprintf("[%s]%s[reset] %s (%s)%s", color, issue.Severity, result.Form, origin[i], line)))
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
