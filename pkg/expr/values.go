package expr

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

const (
	// MaxPower caps the exponent of `**` to keep evaluation bounded.
	MaxPower = 4_000_000
	// MaxStringLength caps strings and lists built by repetition or
	// concatenation.
	MaxStringLength = 100_000
)

// normalize maps host values onto the small set of runtime types the
// evaluator understands: nil, bool, int64, float64, string, []any and
// map[string]any. Unknown types pass through untouched and only support
// equality and truthiness.
func normalize(value any) any {
	switch v := value.(type) {
	case nil, bool, int64, float64, string, []any, map[string]any:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return uintValue(v)
	case float32:
		return float64(v)
	case []byte:
		return string(v)
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = item
		}
		return out
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return value
}

// Normalize converts a host value to the runtime representation expressions
// see: Go integers become int64, floats float64, and slices and string-keyed
// maps become []any and map[string]any (shallowly).
func Normalize(value any) any {
	return normalize(value)
}

func uintValue(v uint64) any {
	if v > math.MaxInt64 {
		return float64(v)
	}
	return int64(v)
}

// Truthy applies the expression language's truthiness rules: None, False,
// zero, empty strings and empty collections are false.
func Truthy(value any) bool {
	switch v := normalize(value).(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

// Empty reports whether value is None or a collection/string without
// elements. Booleans and numbers are never empty.
func Empty(value any) bool {
	switch v := normalize(value).(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func typeName(value any) string {
	switch normalize(value).(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// numeric converts bools and numbers to either int64 or float64.
func numeric(value any) (any, bool) {
	switch v := value.(type) {
	case bool:
		if v {
			return int64(1), true
		}
		return int64(0), true
	case int64, float64:
		return v, true
	default:
		return nil, false
	}
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

func equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if na, ok := numeric(a); ok {
		nb, ok := numeric(b)
		if !ok {
			return false
		}
		ia, aInt := na.(int64)
		ib, bInt := nb.(int64)
		if aInt && bInt {
			return ia == ib
		}
		return toFloat(na) == toFloat(nb)
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for key, item := range av {
			other, exists := bv[key]
			if !exists || !equal(item, other) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// identical implements `is`: None and the booleans compare by identity,
// everything else by type and value.
func identical(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if typeName(a) != typeName(b) {
		return false
	}
	return equal(a, b)
}

// order returns -1, 0 or 1. ok is false when the operands cannot be ordered.
func order(a, b any) (int, bool) {
	a, b = normalize(a), normalize(b)
	if na, ok := numeric(a); ok {
		nb, ok := numeric(b)
		if !ok {
			return 0, false
		}
		ia, aInt := na.(int64)
		ib, bInt := nb.(int64)
		if aInt && bInt {
			return compareInts(ia, ib), true
		}
		fa, fb := toFloat(na), toFloat(nb)
		if math.IsNaN(fa) || math.IsNaN(fb) {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return 0, false
		}
		for i := 0; i < len(av) && i < len(bv); i++ {
			if equal(av[i], bv[i]) {
				continue
			}
			return order(av[i], bv[i])
		}
		return compareInts(int64(len(av)), int64(len(bv))), true
	}
	return 0, false
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Format renders a value the way str() does inside expressions.
func Format(value any) string {
	switch v := normalize(value).(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case string:
		return v
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = repr(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, key := range keys {
			parts[i] = repr(key) + ": " + repr(v[key])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(v)
	}
}

func repr(value any) string {
	if s, ok := normalize(value).(string); ok {
		return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
	}
	return Format(value)
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	out := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(out, ".eEn") {
		out += ".0"
	}
	return out
}
