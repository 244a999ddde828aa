package expr

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenName
	tokenInt
	tokenFloat
	tokenString
	tokenOp
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
	tokenDot
	tokenAssign
	tokenColon
)

type token struct {
	kind tokenKind
	raw  string
	pos  int
}

// Operators ordered longest first so the scanner is greedy.
var operators = []string{
	"**", "//", "==", "!=", "<=", ">=", ":=",
	"+", "-", "*", "/", "%", "<", ">",
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	next := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	peekAt := func(offset int) byte {
		if i+offset >= len(input) {
			return 0
		}
		return input[i+offset]
	}

	for i < len(input) {
		ch := next()
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}
		start := i

		switch ch {
		case '(':
			i++
			tokens = append(tokens, token{kind: tokenLParen, raw: "(", pos: start})
			continue
		case ')':
			i++
			tokens = append(tokens, token{kind: tokenRParen, raw: ")", pos: start})
			continue
		case '[':
			i++
			tokens = append(tokens, token{kind: tokenLBracket, raw: "[", pos: start})
			continue
		case ']':
			i++
			tokens = append(tokens, token{kind: tokenRBracket, raw: "]", pos: start})
			continue
		case ',':
			i++
			tokens = append(tokens, token{kind: tokenComma, raw: ",", pos: start})
			continue
		case '"', '\'':
			value, end, err := scanString(input, i)
			if err != nil {
				return nil, err
			}
			i = end
			tokens = append(tokens, token{kind: tokenString, raw: value, pos: start})
			continue
		case '.':
			if isDigit(peekAt(1)) {
				raw, kind := scanNumber(input, i)
				i += len(raw)
				tokens = append(tokens, token{kind: kind, raw: raw, pos: start})
				continue
			}
			i++
			tokens = append(tokens, token{kind: tokenDot, raw: ".", pos: start})
			continue
		case '=':
			if peekAt(1) != '=' {
				i++
				tokens = append(tokens, token{kind: tokenAssign, raw: "=", pos: start})
				continue
			}
		}

		if isDigit(ch) {
			raw, kind := scanNumber(input, i)
			i += len(raw)
			if i < len(input) && isNameStart(input[i]) {
				return nil, newError(ErrExpressionSyntax, input, start, "invalid number literal %q", raw+string(input[i]))
			}
			tokens = append(tokens, token{kind: kind, raw: raw, pos: start})
			continue
		}

		if isNameStart(ch) {
			for i < len(input) && isNamePart(input[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenName, raw: input[start:i], pos: start})
			continue
		}

		matched := ""
		for _, op := range operators {
			if strings.HasPrefix(input[i:], op) {
				matched = op
				break
			}
		}
		if matched == "" {
			return nil, newError(ErrExpressionSyntax, input, start, "unexpected character %q", string(ch))
		}
		i += len(matched)
		if matched == ":=" {
			tokens = append(tokens, token{kind: tokenAssign, raw: matched, pos: start})
			continue
		}
		tokens = append(tokens, token{kind: tokenOp, raw: matched, pos: start})
	}

	tokens = append(tokens, token{kind: tokenEOF, pos: len(input)})
	return tokens, nil
}

func scanString(input string, start int) (string, int, error) {
	quote := input[start]
	i := start + 1
	escaped := false
	for i < len(input) {
		c := input[i]
		i++
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '\n' {
			break
		}
		if c == quote {
			value, err := unescape(input[start+1 : i-1])
			if err != nil {
				return "", 0, newError(ErrExpressionSyntax, input, start, "invalid string literal: %v", err)
			}
			return value, i, nil
		}
	}
	return "", 0, newError(ErrExpressionSyntax, input, start, "unterminated string literal")
}

func unescape(body string) (string, error) {
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var b strings.Builder
	for len(body) > 0 {
		// Both quote characters may be escaped regardless of the delimiter.
		if len(body) >= 2 && body[0] == '\\' && (body[1] == '\'' || body[1] == '"') {
			b.WriteByte(body[1])
			body = body[2:]
			continue
		}
		r, multibyte, tail, err := strconv.UnquoteChar(body, 0)
		if err != nil {
			return "", err
		}
		if multibyte || r >= 0x80 {
			b.WriteRune(r)
		} else {
			b.WriteByte(byte(r))
		}
		body = tail
	}
	return b.String(), nil
}

func scanNumber(input string, start int) (string, tokenKind) {
	i := start
	kind := tokenInt
	for i < len(input) && (isDigit(input[i]) || input[i] == '_') {
		i++
	}
	if i < len(input) && input[i] == '.' {
		kind = tokenFloat
		i++
		for i < len(input) && isDigit(input[i]) {
			i++
		}
	}
	if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < len(input) && (input[j] == '+' || input[j] == '-') {
			j++
		}
		if j < len(input) && isDigit(input[j]) {
			kind = tokenFloat
			i = j
			for i < len(input) && isDigit(input[i]) {
				i++
			}
		}
	}
	return input[start:i], kind
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isNameStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isNamePart(ch byte) bool {
	return isNameStart(ch) || isDigit(ch)
}
