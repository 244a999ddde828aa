package expr

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Function is a helper callable from expressions. Arguments arrive
// normalized; the result is normalized before it re-enters evaluation.
type Function func(args []any) (any, error)

// RandomSource backs rand() and randint().
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }

// DefaultFunctions returns the helper table every sandbox starts from.
func DefaultFunctions(random RandomSource) map[string]Function {
	if random == nil {
		random = globalRandom{}
	}
	return map[string]Function{
		"rand": func(args []any) (any, error) {
			if err := arity("rand", args, 0, 0); err != nil {
				return nil, err
			}
			return random.Float64(), nil
		},
		"randint": func(args []any) (any, error) {
			if err := arity("randint", args, 1, 1); err != nil {
				return nil, err
			}
			top, ok := args[0].(int64)
			if !ok {
				return nil, fmt.Errorf("expected an int, got %s", typeName(args[0]))
			}
			if top <= 0 {
				return nil, errors.New("upper bound must be positive")
			}
			if top > math.MaxInt32 {
				return nil, fmt.Errorf("upper bound %d is too large", top)
			}
			return int64(random.IntN(int(top))), nil
		},
		"int":   toInt,
		"float": toFloatFn,
		"str": func(args []any) (any, error) {
			if err := arity("str", args, 0, 1); err != nil {
				return nil, err
			}
			if len(args) == 0 {
				return "", nil
			}
			return Format(args[0]), nil
		},
		"bool": func(args []any) (any, error) {
			if err := arity("bool", args, 0, 1); err != nil {
				return nil, err
			}
			if len(args) == 0 {
				return false, nil
			}
			return Truthy(args[0]), nil
		},
		"len": func(args []any) (any, error) {
			if err := arity("len", args, 1, 1); err != nil {
				return nil, err
			}
			switch v := normalize(args[0]).(type) {
			case string:
				return int64(utf8.RuneCountInString(v)), nil
			case []any:
				return int64(len(v)), nil
			case map[string]any:
				return int64(len(v)), nil
			default:
				return nil, fmt.Errorf("object of type '%s' has no len()", typeName(v))
			}
		},
		"abs": func(args []any) (any, error) {
			if err := arity("abs", args, 1, 1); err != nil {
				return nil, err
			}
			num, ok := numeric(normalize(args[0]))
			if !ok {
				return nil, fmt.Errorf("bad operand type for abs(): '%s'", typeName(args[0]))
			}
			switch v := num.(type) {
			case int64:
				if v == math.MinInt64 {
					return nil, errors.New("integer overflow")
				}
				if v < 0 {
					return -v, nil
				}
				return v, nil
			default:
				return math.Abs(v.(float64)), nil
			}
		},
		"min": func(args []any) (any, error) {
			return extreme("min", args, -1)
		},
		"max": func(args []any) (any, error) {
			return extreme("max", args, 1)
		},
		"round": roundFn,
		"empty": func(args []any) (any, error) {
			if err := arity("empty", args, 1, 1); err != nil {
				return nil, err
			}
			return Empty(args[0]), nil
		},
	}
}

func arity(name string, args []any, lo, hi int) error {
	if len(args) >= lo && len(args) <= hi {
		return nil
	}
	if lo == hi {
		return fmt.Errorf("%s() takes exactly %d argument(s) (%d given)", name, lo, len(args))
	}
	return fmt.Errorf("%s() takes from %d to %d arguments (%d given)", name, lo, hi, len(args))
}

func toInt(args []any) (any, error) {
	if err := arity("int", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return int64(0), nil
	}
	switch v := normalize(args[0]).(type) {
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case int64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("cannot convert float %s to integer", formatFloat(v))
		}
		t := math.Trunc(v)
		if t >= math.MaxInt64 || t < math.MinInt64 {
			return nil, errors.New("integer overflow")
		}
		return int64(t), nil
	case string:
		trimmed := strings.ReplaceAll(strings.TrimSpace(v), "_", "")
		out, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal for int() with base 10: %q", v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("int() argument must be a string or a number, not '%s'", typeName(v))
	}
}

func toFloatFn(args []any) (any, error) {
	if err := arity("float", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return 0.0, nil
	}
	switch v := normalize(args[0]).(type) {
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(v))
		switch trimmed {
		case "inf", "+inf", "infinity", "+infinity":
			return math.Inf(1), nil
		case "-inf", "-infinity":
			return math.Inf(-1), nil
		case "nan", "+nan", "-nan":
			return math.NaN(), nil
		}
		out, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, "_", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("could not convert string to float: %q", v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("float() argument must be a string or a number, not '%s'", typeName(v))
	}
}

// extreme implements min (dir -1) and max (dir 1). A single argument is
// treated as the iterable to scan.
func extreme(name string, args []any, dir int) (any, error) {
	items := args
	if len(args) == 1 {
		switch v := normalize(args[0]).(type) {
		case []any:
			items = v
		case string:
			items = make([]any, 0, len(v))
			for _, r := range v {
				items = append(items, string(r))
			}
		case map[string]any:
			keys := make([]string, 0, len(v))
			for key := range v {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			items = make([]any, len(keys))
			for i, key := range keys {
				items[i] = key
			}
		default:
			return nil, fmt.Errorf("'%s' object is not iterable", typeName(v))
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s() arg is an empty sequence", name)
	}
	best := normalize(items[0])
	for _, item := range items[1:] {
		item = normalize(item)
		cmp, ok := order(item, best)
		if !ok {
			return nil, fmt.Errorf("'%s' not supported between instances of '%s' and '%s'", map[int]string{-1: "<", 1: ">"}[dir], typeName(item), typeName(best))
		}
		if cmp == dir {
			best = item
		}
	}
	return best, nil
}

func roundFn(args []any) (any, error) {
	if err := arity("round", args, 1, 2); err != nil {
		return nil, err
	}
	num, ok := numeric(normalize(args[0]))
	if !ok {
		return nil, fmt.Errorf("type %s doesn't define __round__ method", typeName(args[0]))
	}
	if len(args) == 1 || args[1] == nil {
		switch v := num.(type) {
		case int64:
			return v, nil
		default:
			f := v.(float64)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("cannot convert float %s to integer", formatFloat(f))
			}
			r := math.RoundToEven(f)
			if r >= math.MaxInt64 || r < math.MinInt64 {
				return nil, errors.New("integer overflow")
			}
			return int64(r), nil
		}
	}
	digits, ok := normalize(args[1]).(int64)
	if !ok {
		return nil, fmt.Errorf("'%s' object cannot be interpreted as an integer", typeName(args[1]))
	}
	switch v := num.(type) {
	case int64:
		if digits >= 0 {
			return v, nil
		}
		scale := math.Pow(10, float64(-digits))
		if math.IsInf(scale, 0) {
			return int64(0), nil
		}
		r := math.RoundToEven(float64(v)/scale) * scale
		if r >= math.MaxInt64 || r < math.MinInt64 {
			return nil, errors.New("integer overflow")
		}
		return int64(r), nil
	default:
		f := v.(float64)
		if digits > 308 || digits < -308 {
			return f, nil
		}
		scale := math.Pow(10, float64(digits))
		return math.RoundToEven(f*scale) / scale, nil
	}
}
