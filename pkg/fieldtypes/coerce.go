package fieldtypes

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-flexforms/pkg/expr"
)

// ErrInvalidInput is wrapped by coercion failures.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// CoerceText trims strings and stringifies scalars.
func CoerceText(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.TrimSpace(v), nil
	case []byte:
		return strings.TrimSpace(string(v)), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Map {
		return nil, invalid("expected text, got %T", raw)
	}
	return expr.Format(raw), nil
}

// CoerceInteger accepts ints, integral floats and numeric strings.
func CoerceInteger(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return nil, invalid("expected a whole number, got %v", v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, invalid("enter a whole number, got %q", v)
		}
		return int64(f), nil
	}
	switch n := expr.Normalize(raw).(type) {
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return nil, invalid("enter a whole number, got %v", n)
		}
		return int64(n), nil
	}
	return nil, invalid("expected a whole number, got %T", raw)
}

// CoerceDecimal accepts numbers and numeric strings.
func CoerceDecimal(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return nil, invalid("expected a number, got %v", v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, invalid("enter a number, got %q", v)
		}
		return f, nil
	}
	switch n := expr.Normalize(raw).(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return nil, invalid("expected a number, got %T", raw)
}

var (
	truthyWords = map[string]bool{"true": true, "1": true, "on": true, "yes": true, "y": true}
	falsyWords  = map[string]bool{"false": true, "0": true, "off": true, "no": true, "n": true, "": true}
	nullWords   = map[string]bool{"": true, "unknown": true, "null": true, "none": true}
)

// CoerceBoolean maps checkbox style inputs onto true/false. A missing value
// is false.
func CoerceBoolean(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		word := strings.ToLower(strings.TrimSpace(v))
		if truthyWords[word] {
			return true, nil
		}
		if falsyWords[word] {
			return false, nil
		}
		return nil, invalid("expected yes or no, got %q", v)
	}
	switch n := expr.Normalize(raw).(type) {
	case int64:
		return n != 0, nil
	case float64:
		return n != 0, nil
	}
	return nil, invalid("expected yes or no, got %T", raw)
}

// CoerceNullableBoolean is CoerceBoolean with an explicit unknown state.
func CoerceNullableBoolean(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok && nullWords[strings.ToLower(strings.TrimSpace(s))] {
		return nil, nil
	}
	return CoerceBoolean(raw)
}

var (
	dateLayouts     = []string{"2006-01-02", "01/02/2006", "01/02/06"}
	timeLayouts     = []string{"15:04:05", "15:04", "15:04:05.999999"}
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

func parseLayouts(value string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func temporal(raw any, layouts []string, output, what string) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.Format(output), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		parsed, ok := parseLayouts(trimmed, layouts)
		if !ok {
			return nil, invalid("enter a valid %s, got %q", what, v)
		}
		return parsed.Format(output), nil
	}
	return nil, invalid("expected a %s, got %T", what, raw)
}

// CoerceDate normalises dates to YYYY-MM-DD strings.
func CoerceDate(raw any) (any, error) {
	return temporal(raw, dateLayouts, "2006-01-02", "date")
}

// CoerceTime normalises times to HH:MM:SS strings.
func CoerceTime(raw any) (any, error) {
	return temporal(raw, timeLayouts, "15:04:05", "time")
}

// CoerceDateTime normalises timestamps to RFC 3339 strings.
func CoerceDateTime(raw any) (any, error) {
	return temporal(raw, dateTimeLayouts, time.RFC3339, "date/time")
}

// CoerceDuration converts durations to seconds. Strings may use Go duration
// syntax ("1h30m") or the clock form "[D ]HH:MM:SS".
func CoerceDuration(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Duration:
		return v.Seconds(), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		if d, err := time.ParseDuration(trimmed); err == nil {
			return d.Seconds(), nil
		}
		seconds, err := parseClockDuration(trimmed)
		if err != nil {
			return nil, invalid("enter a valid duration, got %q", v)
		}
		return seconds, nil
	}
	switch n := expr.Normalize(raw).(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return nil, invalid("expected a duration, got %T", raw)
}

func parseClockDuration(value string) (float64, error) {
	days := 0.0
	if day, rest, ok := strings.Cut(value, " "); ok {
		d, err := strconv.ParseFloat(day, 64)
		if err != nil {
			return 0, err
		}
		days = d
		value = strings.TrimSpace(rest)
	}
	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, errors.New("too many components")
	}
	total := 0.0
	for _, part := range parts {
		n, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, err
		}
		total = total*60 + n
	}
	return days*86400 + total, nil
}

// CoerceChoice stringifies a single selection.
func CoerceChoice(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Map {
		return nil, invalid("expected a single choice, got %T", raw)
	}
	return expr.Format(raw), nil
}

// CoerceMultiChoice returns a list of string selections.
func CoerceMultiChoice(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return []any{}, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []any{}, nil
		}
		return []any{strings.TrimSpace(v)}, nil
	}
	items, ok := expr.Normalize(raw).([]any)
	if !ok {
		return nil, invalid("expected a list of choices, got %T", raw)
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, expr.Format(item))
	}
	return out, nil
}

// CoerceFile passes uploads through, treating empty strings as no file.
func CoerceFile(raw any) (any, error) {
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return raw, nil
}
