package expr

import (
	"strconv"
	"strings"
)

// forbiddenKeywords lists statement-level keywords. Seeing one anywhere in an
// expression rejects it before parsing starts.
var forbiddenKeywords = map[string]string{
	"lambda":   "lambda expressions",
	"import":   "imports",
	"from":     "imports",
	"def":      "function definitions",
	"class":    "class definitions",
	"return":   "statements",
	"yield":    "generators",
	"await":    "coroutines",
	"async":    "coroutines",
	"del":      "statements",
	"global":   "statements",
	"nonlocal": "statements",
	"assert":   "statements",
	"raise":    "statements",
	"try":      "statements",
	"except":   "statements",
	"finally":  "statements",
	"with":     "statements",
	"while":    "loops",
	"for":      "loops and comprehensions",
	"pass":     "statements",
	"break":    "statements",
	"continue": "statements",
}

// reservedWords are expression keywords; they are never variable references.
var reservedWords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "in": {}, "is": {}, "if": {}, "else": {},
	"True": {}, "False": {}, "None": {}, "true": {}, "false": {}, "null": {},
}

// IsKeyword reports whether name is reserved by the expression language and
// therefore cannot be used as a variable.
func IsKeyword(name string) bool {
	if _, ok := reservedWords[name]; ok {
		return true
	}
	_, ok := forbiddenKeywords[name]
	return ok
}

type tokenStream struct {
	src    string
	tokens []token
	pos    int
}

func parse(src string) (node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, newError(ErrExpressionSyntax, src, -1, "empty expression")
	}

	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	if err := screen(src, tokens); err != nil {
		return nil, err
	}

	stream := &tokenStream{src: src, tokens: tokens}
	root, err := stream.parseTernary()
	if err != nil {
		return nil, err
	}
	if tok := stream.peek(); tok.kind != tokenEOF {
		return nil, newError(ErrExpressionSyntax, src, tok.pos, "unexpected token %q", tok.raw)
	}
	return root, nil
}

// screen rejects unsafe tokens up front so nothing about an unsafe expression
// is ever parsed into an evaluable tree.
func screen(src string, tokens []token) error {
	for _, tok := range tokens {
		switch tok.kind {
		case tokenDot:
			return newError(ErrUnsafeConstruct, src, tok.pos, "attribute access is not allowed")
		case tokenAssign:
			return newError(ErrUnsafeConstruct, src, tok.pos, "assignment is not allowed")
		case tokenName:
			if what, ok := forbiddenKeywords[tok.raw]; ok {
				return newError(ErrUnsafeConstruct, src, tok.pos, "%s are not allowed (%q)", what, tok.raw)
			}
			if strings.HasPrefix(tok.raw, "__") {
				return newError(ErrUnsafeConstruct, src, tok.pos, "dunder names are not allowed (%q)", tok.raw)
			}
		}
	}
	return nil
}

func (s *tokenStream) peek() token {
	return s.tokens[s.pos]
}

func (s *tokenStream) peekN(n int) token {
	if s.pos+n >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}
	return s.tokens[s.pos+n]
}

func (s *tokenStream) advance() token {
	tok := s.tokens[s.pos]
	if tok.kind != tokenEOF {
		s.pos++
	}
	return tok
}

func (s *tokenStream) matchKind(kind tokenKind) bool {
	if s.peek().kind != kind {
		return false
	}
	s.advance()
	return true
}

func (s *tokenStream) matchKeyword(word string) bool {
	tok := s.peek()
	if tok.kind != tokenName || tok.raw != word {
		return false
	}
	s.advance()
	return true
}

func (s *tokenStream) matchOp(ops ...string) (token, bool) {
	tok := s.peek()
	if tok.kind != tokenOp {
		return token{}, false
	}
	for _, op := range ops {
		if tok.raw == op {
			s.advance()
			return tok, true
		}
	}
	return token{}, false
}

func (s *tokenStream) syntaxError(tok token, format string, args ...any) error {
	return newError(ErrExpressionSyntax, s.src, tok.pos, format, args...)
}

func (s *tokenStream) parseTernary() (node, error) {
	then, err := s.parseOr()
	if err != nil {
		return nil, err
	}
	if !s.matchKeyword("if") {
		return then, nil
	}
	cond, err := s.parseOr()
	if err != nil {
		return nil, err
	}
	if !s.matchKeyword("else") {
		return nil, s.syntaxError(s.peek(), "expected 'else' in conditional expression")
	}
	otherwise, err := s.parseTernary()
	if err != nil {
		return nil, err
	}
	return conditionalNode{cond: cond, then: then, otherwise: otherwise}, nil
}

func (s *tokenStream) parseOr() (node, error) {
	left, err := s.parseAnd()
	if err != nil {
		return nil, err
	}
	for s.matchKeyword("or") {
		right, err := s.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicalNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (s *tokenStream) parseAnd() (node, error) {
	left, err := s.parseNot()
	if err != nil {
		return nil, err
	}
	for s.matchKeyword("and") {
		right, err := s.parseNot()
		if err != nil {
			return nil, err
		}
		left = logicalNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (s *tokenStream) parseNot() (node, error) {
	if s.matchKeyword("not") {
		operand, err := s.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{operand: operand}, nil
	}
	return s.parseComparison()
}

func (s *tokenStream) parseComparison() (node, error) {
	first, err := s.parseArith()
	if err != nil {
		return nil, err
	}
	cmp := compareNode{first: first}
	for {
		tok := s.peek()
		op := ""
		switch {
		case tok.kind == tokenOp && isComparisonOp(tok.raw):
			s.advance()
			op = tok.raw
		case tok.kind == tokenName && tok.raw == "in":
			s.advance()
			op = "in"
		case tok.kind == tokenName && tok.raw == "not" && s.peekN(1).kind == tokenName && s.peekN(1).raw == "in":
			s.advance()
			s.advance()
			op = "not in"
		case tok.kind == tokenName && tok.raw == "is":
			s.advance()
			op = "is"
			if s.matchKeyword("not") {
				op = "is not"
			}
		}
		if op == "" {
			break
		}
		operand, err := s.parseArith()
		if err != nil {
			return nil, err
		}
		cmp.ops = append(cmp.ops, op)
		cmp.operands = append(cmp.operands, operand)
		cmp.pos = append(cmp.pos, tok.pos)
	}
	if len(cmp.ops) == 0 {
		return first, nil
	}
	return cmp, nil
}

func isComparisonOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	default:
		return false
	}
}

func (s *tokenStream) parseArith() (node, error) {
	left, err := s.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := s.matchOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := s.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.raw, left: left, right: right, pos: tok.pos}
	}
}

func (s *tokenStream) parseTerm() (node, error) {
	left, err := s.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := s.matchOp("*", "/", "//", "%")
		if !ok {
			return left, nil
		}
		right, err := s.parseFactor()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.raw, left: left, right: right, pos: tok.pos}
	}
}

func (s *tokenStream) parseFactor() (node, error) {
	if tok, ok := s.matchOp("+", "-"); ok {
		operand, err := s.parseFactor()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: tok.raw, operand: operand, pos: tok.pos}, nil
	}
	return s.parsePower()
}

func (s *tokenStream) parsePower() (node, error) {
	base, err := s.parsePrimary()
	if err != nil {
		return nil, err
	}
	tok, ok := s.matchOp("**")
	if !ok {
		return base, nil
	}
	// Right associative and binds tighter than a unary minus on its left.
	exponent, err := s.parseFactor()
	if err != nil {
		return nil, err
	}
	return binaryNode{op: "**", left: base, right: exponent, pos: tok.pos}, nil
}

func (s *tokenStream) parsePrimary() (node, error) {
	atom, err := s.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		tok := s.peek()
		switch tok.kind {
		case tokenLParen:
			name, ok := atom.(nameNode)
			if !ok {
				return nil, newError(ErrUnsafeConstruct, s.src, tok.pos, "only named helper functions may be called")
			}
			s.advance()
			args, err := s.parseSequence(tokenRParen)
			if err != nil {
				return nil, err
			}
			atom = callNode{name: name.name, args: args, pos: name.pos}
		case tokenLBracket:
			return nil, newError(ErrUnsafeConstruct, s.src, tok.pos, "subscript access is not allowed")
		default:
			return atom, nil
		}
	}
}

// parseSequence parses comma separated expressions up to the closing token,
// which it consumes. A trailing comma is accepted.
func (s *tokenStream) parseSequence(closing tokenKind) ([]node, error) {
	var items []node
	for {
		if s.matchKind(closing) {
			return items, nil
		}
		item, err := s.parseTernary()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if s.matchKind(tokenComma) {
			continue
		}
		if s.matchKind(closing) {
			return items, nil
		}
		tok := s.peek()
		if tok.kind == tokenEOF {
			return nil, s.syntaxError(tok, "unexpected end of expression, missing closing bracket")
		}
		return nil, s.syntaxError(tok, "unexpected token %q", tok.raw)
	}
}

func (s *tokenStream) parseAtom() (node, error) {
	tok := s.advance()
	switch tok.kind {
	case tokenInt:
		value, err := strconv.ParseInt(strings.ReplaceAll(tok.raw, "_", ""), 10, 64)
		if err != nil {
			return nil, s.syntaxError(tok, "integer literal %q out of range", tok.raw)
		}
		return literalNode{value: value}, nil
	case tokenFloat:
		value, err := strconv.ParseFloat(strings.ReplaceAll(tok.raw, "_", ""), 64)
		if err != nil {
			return nil, s.syntaxError(tok, "invalid float literal %q", tok.raw)
		}
		return literalNode{value: value}, nil
	case tokenString:
		value := tok.raw
		// Adjacent string literals concatenate.
		for s.peek().kind == tokenString {
			value += s.advance().raw
		}
		return literalNode{value: value}, nil
	case tokenName:
		switch tok.raw {
		case "True", "true":
			return literalNode{value: true}, nil
		case "False", "false":
			return literalNode{value: false}, nil
		case "None", "null":
			return literalNode{value: nil}, nil
		}
		if _, reserved := reservedWords[tok.raw]; reserved {
			return nil, s.syntaxError(tok, "unexpected keyword %q", tok.raw)
		}
		return nameNode{name: tok.raw, pos: tok.pos}, nil
	case tokenLParen:
		if s.matchKind(tokenRParen) {
			return listNode{}, nil
		}
		inner, err := s.parseTernary()
		if err != nil {
			return nil, err
		}
		if s.matchKind(tokenRParen) {
			return inner, nil
		}
		if !s.matchKind(tokenComma) {
			next := s.peek()
			if next.kind == tokenEOF {
				return nil, s.syntaxError(next, "missing closing ')'")
			}
			return nil, s.syntaxError(next, "unexpected token %q", next.raw)
		}
		rest, err := s.parseSequence(tokenRParen)
		if err != nil {
			return nil, err
		}
		return listNode{items: append([]node{inner}, rest...)}, nil
	case tokenLBracket:
		items, err := s.parseSequence(tokenRBracket)
		if err != nil {
			return nil, err
		}
		return listNode{items: items}, nil
	case tokenEOF:
		return nil, s.syntaxError(tok, "unexpected end of expression")
	default:
		return nil, s.syntaxError(tok, "unexpected token %q", tok.raw)
	}
}
