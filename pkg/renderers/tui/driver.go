package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/widgets"
)

// Question is one prompt for a visible field of the form as it was last
// materialized.
type Question struct {
	// Field is the effective configuration; its Widget picks the prompt.
	Field model.Field
	// Message is the display label, suffixed with " *" when required.
	Message string
	// Default is the current answer rendered as text.
	Default string
	// Options are the labels of Field.Choices, in order.
	Options []string
	// Selected indexes Field.Choices for the current answer.
	Selected []int
}

// Multiple reports whether the question accepts several choices.
func (q Question) Multiple() bool {
	switch q.Field.Widget {
	case widgets.WidgetSelectMultiple, widgets.WidgetCheckboxMultiple:
		return true
	}
	return false
}

// PromptDriver asks one question at a time. Tests script it; NewSurveyDriver
// talks to a real terminal.
type PromptDriver interface {
	// Text asks for free text. Password and textarea widgets get a masked
	// and a multi-line prompt.
	Text(ctx context.Context, q Question) (string, error)
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, q Question) (bool, error)
	// Choose returns indices into q.Field.Choices; exactly one unless
	// q.Multiple().
	Choose(ctx context.Context, q Question) ([]int, error)
	// Notify shows a message without asking anything.
	Notify(ctx context.Context, msg string) error
}

type surveyDriver struct {
	out io.Writer
}

// NewSurveyDriver returns the interactive driver backed by survey. Notices
// are written to out.
func NewSurveyDriver(out io.Writer) PromptDriver {
	if out == nil {
		out = os.Stdout
	}
	return &surveyDriver{out: out}
}

func (d *surveyDriver) Text(ctx context.Context, q Question) (string, error) {
	var prompt survey.Prompt
	switch q.Field.Widget {
	case widgets.WidgetPassword:
		prompt = &survey.Password{Message: q.Message, Help: q.Field.HelpText}
	case widgets.WidgetTextarea:
		prompt = &survey.Multiline{Message: q.Message, Help: q.Field.HelpText, Default: q.Default}
	default:
		prompt = &survey.Input{Message: q.Message, Help: q.Field.HelpText, Default: q.Default}
	}
	var answer string
	if err := ask(ctx, prompt, &answer); err != nil {
		return "", err
	}
	return answer, nil
}

func (d *surveyDriver) Confirm(ctx context.Context, q Question) (bool, error) {
	answer := q.Default == "True"
	prompt := &survey.Confirm{Message: q.Message, Help: q.Field.HelpText, Default: answer}
	if err := ask(ctx, prompt, &answer); err != nil {
		return false, err
	}
	return answer, nil
}

func (d *surveyDriver) Choose(ctx context.Context, q Question) ([]int, error) {
	if q.Multiple() {
		prompt := &survey.MultiSelect{Message: q.Message, Help: q.Field.HelpText, Options: q.Options}
		if len(q.Selected) > 0 {
			prompt.Default = q.Selected
		}
		var picked []int
		if err := ask(ctx, prompt, &picked); err != nil {
			return nil, err
		}
		return picked, nil
	}

	prompt := &survey.Select{Message: q.Message, Help: q.Field.HelpText, Options: q.Options}
	if len(q.Selected) > 0 {
		prompt.Default = q.Selected[0]
	}
	var picked int
	if err := ask(ctx, prompt, &picked); err != nil {
		return nil, err
	}
	return []int{picked}, nil
}

func (d *surveyDriver) Notify(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

// ask runs one survey prompt. An interrupt becomes ErrAborted.
func ask(ctx context.Context, prompt survey.Prompt, response any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := survey.AskOne(prompt, response)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
