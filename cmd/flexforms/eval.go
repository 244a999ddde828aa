package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-flexforms/pkg/expr"
	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/orchestrator"
)

// EvalCommand runs one evaluation pass and prints the effective form.
type EvalCommand struct {
	Meta
}

func (c *EvalCommand) Help() string {
	return strings.TrimSpace(`
Usage: flexforms eval [options] <ref>

  Materializes a definition against submitted values and prints the
  effective configuration of every field. Field errors are reported as
  warnings; a dependency cycle or unknown field type fails the command.

Options:

  -values=FILE         YAML or JSON file with submitted values.
  -set name=value      Submitted value, may be repeated. Wins over -values.
  -format=pretty       Output format: pretty or json.
  -metrics             Print evaluation counters after the form.
` + commonFlagsHelp)
}

func (c *EvalCommand) Synopsis() string {
	return "Evaluate modifiers against submitted values"
}

func (c *EvalCommand) Run(args []string) int {
	var (
		valuesPath, format string
		showMetrics        bool
		sets               = setFlags{}
	)
	fs := c.FlagSet("eval")
	fs.StringVar(&valuesPath, "values", "", "")
	fs.Var(sets, "set", "")
	fs.StringVar(&format, "format", "pretty", "")
	fs.BoolVar(&showMetrics, "metrics", false, "")
	if !c.parseFlags(fs, args, c.Help()) {
		return 1
	}
	if fs.NArg() != 1 {
		c.Ui.Error("eval: exactly one definition is required")
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

	form, errs, err := orch.Materialize(ctx, orchestrator.Request{Ref: fs.Arg(0), Values: values})
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	switch format {
	case "json":
		out, err := json.MarshalIndent(form, "", "  ")
		if err != nil {
			c.Ui.Error(err.Error())
			return 1
		}
		c.Ui.Output(string(out))
	case "pretty":
		c.Ui.Output(prettyForm(form))
	default:
		c.Ui.Error(fmt.Sprintf("eval: unknown format %q", format))
		return 1
	}

	for _, ferr := range errs.All() {
		c.Ui.Warn(c.Colorize(fmt.Sprintf("[yellow]%s[reset] %s", ferr.Kind(), ferr.Error())))
	}
	if showMetrics {
		lines, err := gatherLines(c.Metrics())
		if err != nil {
			c.Ui.Error(err.Error())
			return 1
		}
		for _, line := range lines {
			c.Ui.Output(line)
		}
	}
	return 0
}

func prettyForm(form model.Form) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", form.Name)
	for _, field := range form.Fields {
		flags := []string{field.Widget}
		if field.Required {
			flags = append(flags, "required")
		}
		if field.Hidden {
			flags = append(flags, "hidden")
		}
		if field.Disabled {
			flags = append(flags, "disabled")
		}
		fmt.Fprintf(&b, "  %s [%s]", field.Name, strings.Join(flags, ", "))
		if field.Label != "" {
			fmt.Fprintf(&b, " label=%s", expr.Format(field.Label))
		}
		if field.Value != nil {
			fmt.Fprintf(&b, " value=%s", expr.Format(field.Value))
		} else if field.Initial != nil {
			fmt.Fprintf(&b, " initial=%s", expr.Format(field.Initial))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// gatherLines renders counter and histogram-count samples as
// `name{label="value"} n`, sorted.
func gatherLines(g prometheus.Gatherer) ([]string, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			pairs := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				pairs = append(pairs, fmt.Sprintf("%s=%q", label.GetName(), label.GetValue()))
			}
			labels := ""
			if len(pairs) > 0 {
				labels = "{" + strings.Join(pairs, ",") + "}"
			}
			switch {
			case metric.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s%s %v", family.GetName(), labels, metric.GetCounter().GetValue()))
			case metric.GetHistogram() != nil:
				lines = append(lines, fmt.Sprintf("%s_count%s %d", family.GetName(), labels, metric.GetHistogram().GetSampleCount()))
			}
		}
	}
	sort.Strings(lines)
	return lines, nil
}
