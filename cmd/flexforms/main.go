// Command flexforms lints, inspects, evaluates, renders and interactively
// fills dynamic form definitions.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/cli"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ui := &cli.ColoredUi{
		ErrorColor: cli.UiColorRed,
		WarnColor:  cli.UiColorYellow,
		Ui: &cli.BasicUi{
			Reader:      stdin,
			Writer:      stdout,
			ErrorWriter: stderr,
		},
	}
	meta := Meta{Ui: ui, LogOutput: stderr, Getenv: os.Getenv}

	c := cli.NewCLI("flexforms", version)
	c.Args = args
	c.Commands = Commands(meta)
	c.HelpWriter = stderr

	code, err := c.Run()
	if err != nil {
		fmt.Fprintf(stderr, "flexforms: %v\n", err)
		return 1
	}
	return code
}

// Commands returns the command table. Each factory copies meta so flag
// state never leaks between runs.
func Commands(meta Meta) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"lint":    func() (cli.Command, error) { return &LintCommand{Meta: meta}, nil },
		"graph":   func() (cli.Command, error) { return &GraphCommand{Meta: meta}, nil },
		"eval":    func() (cli.Command, error) { return &EvalCommand{Meta: meta}, nil },
		"render":  func() (cli.Command, error) { return &RenderCommand{Meta: meta}, nil },
		"fill":    func() (cli.Command, error) { return &FillCommand{Meta: meta}, nil },
		"migrate": func() (cli.Command, error) { return &MigrateCommand{Meta: meta}, nil },
		"list":    func() (cli.Command, error) { return &ListCommand{Meta: meta}, nil },
	}
}
