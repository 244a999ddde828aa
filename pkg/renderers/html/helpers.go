package html

import (
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-flexforms/pkg/expr"
	"github.com/goliatone/go-flexforms/pkg/widgets"
)

var (
	labelPolicyOnce sync.Once
	labelPolicy     *bluemonday.Policy

	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

// sanitizeLabel strips every tag. Labels may be computed by modifiers from
// submitted values, so they are never trusted.
func sanitizeLabel(raw string) string {
	labelPolicyOnce.Do(func() {
		labelPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(labelPolicy.Sanitize(raw))
}

// sanitizeHelp keeps inline formatting and links.
func sanitizeHelp(raw string) string {
	helpPolicyOnce.Do(func() {
		policy := bluemonday.NewPolicy()
		policy.AllowElements("b", "strong", "i", "em", "code", "br", "span")
		policy.AllowStandardURLs()
		policy.AllowAttrs("href").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
		helpPolicy = policy
	})
	return strings.TrimSpace(helpPolicy.Sanitize(raw))
}

func controlID(form, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if form = strings.TrimSpace(form); form != "" {
		return "ff-" + form + "-" + name
	}
	return "ff-" + name
}

func sanitizeClassList(value string) string {
	tokens := strings.Fields(value)
	keep := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if strings.ContainsAny(token, `"'<>`) {
			continue
		}
		keep = append(keep, token)
	}
	return strings.Join(keep, " ")
}

// inputType maps a widget to the type attribute of an <input>.
func inputType(widget string) string {
	switch widget {
	case widgets.WidgetEmail, widgets.WidgetURL, widgets.WidgetPassword, widgets.WidgetNumber,
		widgets.WidgetDate, widgets.WidgetTime, widgets.WidgetDateTime, widgets.WidgetFile:
		return widget
	case widgets.WidgetImage:
		return "file"
	default:
		return "text"
	}
}

func isMultiple(widget string) bool {
	return widget == widgets.WidgetSelectMultiple || widget == widgets.WidgetCheckboxMultiple
}

// formatValue renders a value the way the field types parse it back.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return v
	}
	return expr.Format(value)
}

func formatValues(value any) []string {
	items, ok := expr.Normalize(value).([]any)
	if !ok {
		if value == nil {
			return nil
		}
		return []string{formatValue(value)}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, formatValue(item))
	}
	return out
}

type attr struct {
	Name  string
	Value string
}

// sortedAttrs renders widget options as extra input attributes. Only scalar
// options with attribute-safe names are emitted.
func sortedAttrs(options map[string]any) []attr {
	if len(options) == 0 {
		return nil
	}
	names := make([]string, 0, len(options))
	for name := range options {
		if validAttrName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]attr, 0, len(names))
	for _, name := range names {
		switch options[name].(type) {
		case []any, map[string]any:
			continue
		}
		out = append(out, attr{Name: name, Value: formatValue(options[name])})
	}
	return out
}

func validAttrName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
