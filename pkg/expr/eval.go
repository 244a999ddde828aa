package expr

import (
	"errors"
	"math"
	"strings"
)

type evalState struct {
	src   string
	vars  map[string]any
	funcs map[string]Function
}

func (s *evalState) fail(pos int, format string, args ...any) error {
	return newError(ErrEvaluation, s.src, pos, format, args...)
}

func (n literalNode) eval(*evalState) (any, error) {
	return n.value, nil
}

func (n nameNode) eval(s *evalState) (any, error) {
	value, ok := s.vars[n.name]
	if !ok {
		return nil, newError(ErrUndefinedReference, s.src, n.pos, "name %q is not defined", n.name)
	}
	return normalize(value), nil
}

func (n unaryNode) eval(s *evalState) (any, error) {
	value, err := n.operand.eval(s)
	if err != nil {
		return nil, err
	}
	num, ok := numeric(value)
	if !ok {
		return nil, s.fail(n.pos, "bad operand type for unary %s: %s", n.op, typeName(value))
	}
	if n.op == "+" {
		return num, nil
	}
	switch v := num.(type) {
	case int64:
		if v == math.MinInt64 {
			return nil, s.fail(n.pos, "integer overflow")
		}
		return -v, nil
	default:
		return -v.(float64), nil
	}
}

func (n logicalNode) eval(s *evalState) (any, error) {
	left, err := n.left.eval(s)
	if err != nil {
		return nil, err
	}
	truthy := Truthy(left)
	if (n.op == "and" && !truthy) || (n.op == "or" && truthy) {
		return left, nil
	}
	return n.right.eval(s)
}

func (n notNode) eval(s *evalState) (any, error) {
	value, err := n.operand.eval(s)
	if err != nil {
		return nil, err
	}
	return !Truthy(value), nil
}

func (n conditionalNode) eval(s *evalState) (any, error) {
	cond, err := n.cond.eval(s)
	if err != nil {
		return nil, err
	}
	if Truthy(cond) {
		return n.then.eval(s)
	}
	return n.otherwise.eval(s)
}

func (n listNode) eval(s *evalState) (any, error) {
	out := make([]any, 0, len(n.items))
	for _, item := range n.items {
		value, err := item.eval(s)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func (n callNode) eval(s *evalState) (any, error) {
	fn, ok := s.funcs[n.name]
	if !ok {
		// Compile rejects unknown callees; this only triggers when a program is
		// evaluated with a narrower function table.
		return nil, newError(ErrUnsafeConstruct, s.src, n.pos, "call to %q is not allowed", n.name)
	}
	args := make([]any, 0, len(n.args))
	for _, arg := range n.args {
		value, err := arg.eval(s)
		if err != nil {
			return nil, err
		}
		args = append(args, value)
	}
	result, err := fn(args)
	if err != nil {
		var exprErr *Error
		if errors.As(err, &exprErr) {
			return nil, err
		}
		return nil, s.fail(n.pos, "%s(): %v", n.name, err)
	}
	return normalize(result), nil
}

func (n compareNode) eval(s *evalState) (any, error) {
	left, err := n.first.eval(s)
	if err != nil {
		return nil, err
	}
	for i, op := range n.ops {
		right, err := n.operands[i].eval(s)
		if err != nil {
			return nil, err
		}
		ok, err := compare(s, n.pos[i], op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return false, nil
		}
		left = right
	}
	return true, nil
}

func compare(s *evalState, pos int, op string, left, right any) (bool, error) {
	switch op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "is":
		return identical(left, right), nil
	case "is not":
		return !identical(left, right), nil
	case "in", "not in":
		found, err := contains(s, pos, right, left)
		if err != nil {
			return false, err
		}
		if op == "in" {
			return found, nil
		}
		return !found, nil
	}

	cmp, ok := order(left, right)
	if !ok {
		return false, s.fail(pos, "'%s' not supported between instances of '%s' and '%s'", op, typeName(left), typeName(right))
	}
	switch op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func contains(s *evalState, pos int, container, item any) (bool, error) {
	switch c := normalize(container).(type) {
	case string:
		needle, ok := normalize(item).(string)
		if !ok {
			return false, s.fail(pos, "'in <string>' requires string as left operand, not %s", typeName(item))
		}
		return strings.Contains(c, needle), nil
	case []any:
		for _, candidate := range c {
			if equal(candidate, item) {
				return true, nil
			}
		}
		return false, nil
	case map[string]any:
		key, ok := normalize(item).(string)
		if !ok {
			return false, nil
		}
		_, found := c[key]
		return found, nil
	default:
		return false, s.fail(pos, "argument of type '%s' is not iterable", typeName(container))
	}
}

func (n binaryNode) eval(s *evalState) (any, error) {
	left, err := n.left.eval(s)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(s)
	if err != nil {
		return nil, err
	}
	left, right = normalize(left), normalize(right)

	switch n.op {
	case "+":
		if out, handled, err := concat(s, n.pos, left, right); handled {
			return out, err
		}
	case "*":
		if out, handled, err := repeat(s, n.pos, left, right); handled {
			return out, err
		}
	}

	a, aok := numeric(left)
	b, bok := numeric(right)
	if !aok || !bok {
		return nil, s.fail(n.pos, "unsupported operand type(s) for %s: '%s' and '%s'", n.op, typeName(left), typeName(right))
	}
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	if aInt && bInt {
		return intArith(s, n.pos, n.op, ai, bi)
	}
	return floatArith(s, n.pos, n.op, toFloat(a), toFloat(b))
}

func concat(s *evalState, pos int, left, right any) (any, bool, error) {
	switch l := left.(type) {
	case string:
		r, ok := right.(string)
		if !ok {
			return nil, true, s.fail(pos, "can only concatenate str (not %q) to str", typeName(right))
		}
		if len(l)+len(r) > MaxStringLength {
			return nil, true, s.fail(pos, "string length exceeds %d", MaxStringLength)
		}
		return l + r, true, nil
	case []any:
		r, ok := right.([]any)
		if !ok {
			return nil, true, s.fail(pos, "can only concatenate list (not %q) to list", typeName(right))
		}
		if len(l)+len(r) > MaxStringLength {
			return nil, true, s.fail(pos, "list length exceeds %d", MaxStringLength)
		}
		out := make([]any, 0, len(l)+len(r))
		return append(append(out, l...), r...), true, nil
	}
	return nil, false, nil
}

func repeat(s *evalState, pos int, left, right any) (any, bool, error) {
	seq, count := left, right
	if _, isInt := seq.(int64); isInt {
		seq, count = right, left
	}
	n, ok := count.(int64)
	if !ok {
		if b, isBool := count.(bool); isBool {
			n, ok = 0, true
			if b {
				n = 1
			}
		}
	}
	switch v := seq.(type) {
	case string:
		if !ok {
			return nil, true, s.fail(pos, "can't multiply sequence by non-int of type '%s'", typeName(count))
		}
		if n <= 0 || len(v) == 0 {
			return "", true, nil
		}
		if n > MaxStringLength/int64(len(v)) {
			return nil, true, s.fail(pos, "string length exceeds %d", MaxStringLength)
		}
		return strings.Repeat(v, int(n)), true, nil
	case []any:
		if !ok {
			return nil, true, s.fail(pos, "can't multiply sequence by non-int of type '%s'", typeName(count))
		}
		if n <= 0 || len(v) == 0 {
			return []any{}, true, nil
		}
		if n > MaxStringLength/int64(len(v)) {
			return nil, true, s.fail(pos, "list length exceeds %d", MaxStringLength)
		}
		out := make([]any, 0, len(v)*int(n))
		for i := int64(0); i < n; i++ {
			out = append(out, v...)
		}
		return out, true, nil
	}
	return nil, false, nil
}

func intArith(s *evalState, pos int, op string, a, b int64) (any, error) {
	switch op {
	case "+":
		sum := a + b
		if (b > 0 && sum < a) || (b < 0 && sum > a) {
			return nil, s.fail(pos, "integer overflow")
		}
		return sum, nil
	case "-":
		diff := a - b
		if (b < 0 && diff < a) || (b > 0 && diff > a) {
			return nil, s.fail(pos, "integer overflow")
		}
		return diff, nil
	case "*":
		if a == 0 || b == 0 {
			return int64(0), nil
		}
		product := a * b
		if product/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return nil, s.fail(pos, "integer overflow")
		}
		return product, nil
	case "/":
		if b == 0 {
			return nil, s.fail(pos, "division by zero")
		}
		return float64(a) / float64(b), nil
	case "//":
		if b == 0 {
			return nil, s.fail(pos, "integer division or modulo by zero")
		}
		if a == math.MinInt64 && b == -1 {
			return nil, s.fail(pos, "integer overflow")
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return q, nil
	case "%":
		if b == 0 {
			return nil, s.fail(pos, "integer division or modulo by zero")
		}
		if b == -1 {
			return int64(0), nil
		}
		m := a % b
		if m != 0 && ((m < 0) != (b < 0)) {
			m += b
		}
		return m, nil
	case "**":
		if b > MaxPower {
			return nil, s.fail(pos, "exponent %d exceeds %d", b, MaxPower)
		}
		if b < 0 {
			if a == 0 {
				return nil, s.fail(pos, "0 cannot be raised to a negative power")
			}
			return math.Pow(float64(a), float64(b)), nil
		}
		return intPow(s, pos, a, b)
	}
	return nil, s.fail(pos, "unknown operator %q", op)
}

func intPow(s *evalState, pos int, base, exp int64) (any, error) {
	switch base {
	case 0, 1:
		if exp == 0 {
			return int64(1), nil
		}
		return base, nil
	case -1:
		if exp%2 == 0 {
			return int64(1), nil
		}
		return int64(-1), nil
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			next := result * base
			if next/base != result {
				return nil, s.fail(pos, "integer overflow")
			}
			result = next
		}
		exp >>= 1
		if exp > 0 {
			sq := base * base
			if sq/base != base {
				return nil, s.fail(pos, "integer overflow")
			}
			base = sq
		}
	}
	return result, nil
}

func floatArith(s *evalState, pos int, op string, a, b float64) (any, error) {
	var out float64
	switch op {
	case "+":
		out = a + b
	case "-":
		out = a - b
	case "*":
		out = a * b
	case "/":
		if b == 0 {
			return nil, s.fail(pos, "float division by zero")
		}
		out = a / b
	case "//":
		if b == 0 {
			return nil, s.fail(pos, "float floor division by zero")
		}
		out = math.Floor(a / b)
	case "%":
		if b == 0 {
			return nil, s.fail(pos, "float modulo")
		}
		out = math.Mod(a, b)
		if out != 0 && ((out < 0) != (b < 0)) {
			out += b
		}
	case "**":
		if b > MaxPower {
			return nil, s.fail(pos, "exponent %v exceeds %d", b, MaxPower)
		}
		if a == 0 && b < 0 {
			return nil, s.fail(pos, "0.0 cannot be raised to a negative power")
		}
		out = math.Pow(a, b)
		if math.IsNaN(out) && !math.IsNaN(a) && !math.IsNaN(b) {
			return nil, s.fail(pos, "math domain error")
		}
	default:
		return nil, s.fail(pos, "unknown operator %q", op)
	}
	if math.IsInf(out, 0) && !math.IsInf(a, 0) && !math.IsInf(b, 0) {
		return nil, s.fail(pos, "numerical result out of range")
	}
	return out, nil
}
