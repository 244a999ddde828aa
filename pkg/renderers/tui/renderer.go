// Package tui fills a form interactively in the terminal.
//
// Fields are asked in definition order. Hidden fields are skipped, and when a
// Materializer is configured the form is rebuilt after every answer so that
// a later question reflects the answers given so far.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-flexforms/pkg/expr"
	"github.com/goliatone/go-flexforms/pkg/fieldtypes"
	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/render"
	"github.com/goliatone/go-flexforms/pkg/widgets"
)

// Name is the registry name of the TUI renderer.
const Name = "tui"

// Renderer implements render.Renderer for terminal-driven sessions. The
// rendered bytes are the collected answers.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	materializer Materializer
	types        *fieldtypes.Registry
	out          io.Writer
	theme        Theme
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) *Renderer {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		types:        fieldtypes.Default(),
		out:          os.Stdout,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(r.out)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render asks every visible field and serializes the answers.
func (r *Renderer) Render(ctx context.Context, form model.Form, opts render.RenderOptions) ([]byte, error) {
	values, _, err := r.Fill(ctx, form, opts)
	if err != nil {
		return nil, err
	}
	return r.serialize(values)
}

// Fill asks every visible field and returns the answers together with the
// last materialized form.
func (r *Renderer) Fill(ctx context.Context, form model.Form, opts render.RenderOptions) (map[string]any, model.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.Form{}, err
	}
	if r.driver == nil {
		return nil, model.Form{}, errors.New("tui: prompt driver is nil")
	}

	values := make(map[string]any, len(opts.Values))
	for k, v := range opts.Values {
		values[k] = v
	}
	for _, msg := range opts.FormErrors {
		_ = r.driver.Notify(ctx, r.theme.ErrorPrefix+msg)
	}

	names := make([]string, 0, len(form.Fields))
	for _, field := range form.Fields {
		names = append(names, field.Name)
	}
	current := form
	for _, name := range names {
		field, ok := current.Field(name)
		if !ok || field.Hidden {
			continue
		}
		for _, msg := range opts.Errors[name] {
			_ = r.driver.Notify(ctx, r.theme.ErrorPrefix+msg)
		}
		answer, err := r.promptField(ctx, field, values)
		if err != nil {
			return nil, model.Form{}, err
		}
		values[name] = answer

		if r.materializer != nil {
			next, _, err := r.materializer.Materialize(ctx, values)
			if err != nil {
				return nil, model.Form{}, fmt.Errorf("tui: re-materialize after %q: %w", name, err)
			}
			current = next
		}
	}

	// Answers to fields that ended up hidden are dropped.
	for name := range values {
		if field, ok := current.Field(name); ok && field.Hidden {
			delete(values, name)
		}
	}
	return values, current, nil
}

func (r *Renderer) promptField(ctx context.Context, field model.Field, values map[string]any) (any, error) {
	switch field.Widget {
	case widgets.WidgetCheckbox:
		return r.promptBoolean(ctx, field, values)
	case widgets.WidgetSelect, widgets.WidgetRadio:
		return r.promptChoice(ctx, field, values)
	case widgets.WidgetSelectMultiple, widgets.WidgetCheckboxMultiple:
		return r.promptMultiChoice(ctx, field, values)
	default:
		return r.promptText(ctx, field, values)
	}
}

// question describes field as currently materialized.
func question(field model.Field, values map[string]any) Question {
	current := currentValue(field, values)
	q := Question{
		Field:   field,
		Message: displayLabel(field),
		Default: formatDefault(current),
		Options: choiceLabels(field.Choices),
	}
	if items, ok := expr.Normalize(current).([]any); ok {
		for _, item := range items {
			if idx := indexOfChoice(field.Choices, item); idx >= 0 {
				q.Selected = append(q.Selected, idx)
			}
		}
	} else if current != nil {
		if idx := indexOfChoice(field.Choices, current); idx >= 0 {
			q.Selected = []int{idx}
		}
	}
	return q
}

func (r *Renderer) promptText(ctx context.Context, field model.Field, values map[string]any) (any, error) {
	rules := collectValidationRules(field)
	q := question(field, values)
	if field.Widget == widgets.WidgetPassword {
		q.Default = ""
	}

	for {
		response, err := r.driver.Text(ctx, q)
		if err != nil {
			return nil, err
		}

		if strings.TrimSpace(response) == "" {
			if field.Required {
				r.invalid(ctx, field, "required")
				continue
			}
			return nil, nil
		}

		value, err := r.types.Coerce(field.Type, response)
		if err != nil && !errors.Is(err, fieldtypes.ErrUnknownType) {
			r.invalid(ctx, field, err.Error())
			continue
		}
		if errors.Is(err, fieldtypes.ErrUnknownType) {
			value = response
		}
		if err := rules.validate(value); err != nil {
			r.invalid(ctx, field, err.Error())
			continue
		}
		return value, nil
	}
}

func (r *Renderer) promptBoolean(ctx context.Context, field model.Field, values map[string]any) (any, error) {
	answer, err := r.driver.Confirm(ctx, question(field, values))
	if err != nil {
		return nil, err
	}
	return answer, nil
}

func (r *Renderer) promptChoice(ctx context.Context, field model.Field, values map[string]any) (any, error) {
	q := question(field, values)
	for {
		picked, err := r.driver.Choose(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(picked) != 1 || picked[0] < 0 || picked[0] >= len(field.Choices) {
			r.invalid(ctx, field, "invalid selection")
			continue
		}
		value := field.Choices[picked[0]].Value
		if field.Kind == model.KindChoice {
			value = expr.Format(value)
		}
		return value, nil
	}
}

func (r *Renderer) promptMultiChoice(ctx context.Context, field model.Field, values map[string]any) (any, error) {
	q := question(field, values)
	for {
		picked, err := r.driver.Choose(ctx, q)
		if err != nil {
			return nil, err
		}
		if field.Required && len(picked) == 0 {
			r.invalid(ctx, field, "select at least one option")
			continue
		}
		out := make([]any, 0, len(picked))
		for _, idx := range picked {
			if idx >= 0 && idx < len(field.Choices) {
				out = append(out, expr.Format(field.Choices[idx].Value))
			}
		}
		return out, nil
	}
}

func (r *Renderer) invalid(ctx context.Context, field model.Field, reason string) {
	_ = r.driver.Notify(ctx, fmt.Sprintf("%sInvalid %s: %s", r.theme.ErrorPrefix, field.Name, reason))
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func displayLabel(field model.Field) string {
	label := field.Label
	if label == "" {
		label = field.Name
	}
	if field.Required {
		label += " *"
	}
	return label
}

func currentValue(field model.Field, values map[string]any) any {
	if v, ok := values[field.Name]; ok && v != nil {
		return v
	}
	if field.Value != nil {
		return field.Value
	}
	return field.Initial
}

func formatDefault(value any) string {
	if value == nil {
		return ""
	}
	return expr.Format(value)
}

func choiceLabels(choices []model.Choice) []string {
	out := make([]string, 0, len(choices))
	for _, choice := range choices {
		label := choice.Label
		if label == "" {
			label = expr.Format(choice.Value)
		}
		out = append(out, label)
	}
	return out
}

func indexOfChoice(choices []model.Choice, value any) int {
	want := expr.Format(value)
	for i, choice := range choices {
		if expr.Format(choice.Value) == want {
			return i
		}
	}
	return -1
}

type validationRules struct {
	min       *float64
	max       *float64
	maxLength *int
	pattern   *regexp.Regexp
}

func collectValidationRules(field model.Field) validationRules {
	var rules validationRules
	for _, rule := range field.Validations {
		switch rule.Kind {
		case model.ValidationRuleMin:
			if v, err := strconv.ParseFloat(rule.Params["value"], 64); err == nil {
				rules.min = &v
			}
		case model.ValidationRuleMax:
			if v, err := strconv.ParseFloat(rule.Params["value"], 64); err == nil {
				rules.max = &v
			}
		case model.ValidationRuleMaxLength:
			if v, err := strconv.Atoi(rule.Params["value"]); err == nil {
				rules.maxLength = &v
			}
		case model.ValidationRulePattern:
			if re, err := regexp.Compile(rule.Params["pattern"]); err == nil {
				rules.pattern = re
			}
		}
	}
	return rules
}

func (r validationRules) validate(value any) error {
	switch v := expr.Normalize(value).(type) {
	case string:
		if r.maxLength != nil && len([]rune(v)) > *r.maxLength {
			return fmt.Errorf("at most %d characters", *r.maxLength)
		}
		if r.pattern != nil && !r.pattern.MatchString(v) {
			return fmt.Errorf("does not match %s", r.pattern.String())
		}
	case int64:
		return r.validateNumber(float64(v))
	case float64:
		return r.validateNumber(v)
	}
	return nil
}

func (r validationRules) validateNumber(v float64) error {
	if r.min != nil && v < *r.min {
		return fmt.Errorf("must be >= %v", *r.min)
	}
	if r.max != nil && v > *r.max {
		return fmt.Errorf("must be <= %v", *r.max)
	}
	return nil
}

func flattenForm(values map[string]any) string {
	out := url.Values{}
	for key, value := range values {
		switch v := value.(type) {
		case nil:
			out.Set(key, "")
		case []any:
			for _, item := range v {
				out.Add(key, formatDefault(item))
			}
		default:
			out.Set(key, formatDefault(v))
		}
	}
	return out.Encode()
}

func prettyPrint(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, formatDefault(values[key]))
	}
	return b.String()
}
