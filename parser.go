package opensbli

import (
	"math/big"
	"strings"
	"unicode"
)

// ============================================================
// Tokenizer
// ============================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokIndex // bare index token like _j, used by KroneckerDelta
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPower
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type tokenizer struct {
	input string
	pos   int
}

func (tz *tokenizer) next() (token, error) {
	for tz.pos < len(tz.input) && (tz.input[tz.pos] == ' ' || tz.input[tz.pos] == '\t') {
		tz.pos++
	}
	start := tz.pos
	if tz.pos >= len(tz.input) {
		return token{kind: tokEOF, pos: start}, nil
	}
	c := tz.input[tz.pos]
	switch {
	case c == '+':
		tz.pos++
		return token{tokPlus, "+", start}, nil
	case c == '-':
		tz.pos++
		return token{tokMinus, "-", start}, nil
	case c == '*':
		tz.pos++
		if tz.pos < len(tz.input) && tz.input[tz.pos] == '*' {
			tz.pos++
			return token{tokPower, "**", start}, nil
		}
		return token{tokStar, "*", start}, nil
	case c == '/':
		tz.pos++
		return token{tokSlash, "/", start}, nil
	case c == '(':
		tz.pos++
		return token{tokLParen, "(", start}, nil
	case c == ')':
		tz.pos++
		return token{tokRParen, ")", start}, nil
	case c == ',':
		tz.pos++
		return token{tokComma, ",", start}, nil
	case c >= '0' && c <= '9':
		for tz.pos < len(tz.input) && (isDigit(tz.input[tz.pos]) || tz.input[tz.pos] == '.') {
			tz.pos++
		}
		return token{tokNumber, tz.input[start:tz.pos], start}, nil
	case c == '_':
		tz.pos++
		for tz.pos < len(tz.input) && isIdentByte(tz.input[tz.pos]) {
			tz.pos++
		}
		if tz.pos == start+1 {
			return token{}, &ParseError{Input: tz.input, Pos: start, Msg: "bare underscore is not a valid index"}
		}
		return token{tokIndex, tz.input[start+1 : tz.pos], start}, nil
	case unicode.IsLetter(rune(c)):
		for tz.pos < len(tz.input) && (isIdentByte(tz.input[tz.pos]) || tz.input[tz.pos] == '_') {
			tz.pos++
		}
		return token{tokIdent, tz.input[start:tz.pos], start}, nil
	default:
		return token{}, &ParseError{Input: tz.input, Pos: start, Msg: "unexpected character " + string(c)}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c)
}

// ============================================================
// Parser
// ============================================================

// parser is a recursive-descent parser over one equation string. It builds
// a purely structural tree: Der and the conservative form stay frozen and
// tensor atoms stay EinsteinTerms until the expansion pass binds indices.
type parser struct {
	ctx   *Context
	input string
	tz    tokenizer
	cur   token
}

// ParseEquation parses an equation of the form Eq(lhs, rhs).
func ParseEquation(ctx *Context, input string) (*Equality, error) {
	p := &parser{ctx: ctx, input: input, tz: tokenizer{input: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.kind != tokIdent || p.cur.text != "Eq" {
		return nil, p.errorf(p.cur.pos, "equation must start with Eq(")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(tokLParen, "expected ( after Eq"); err != nil {
		return nil, err
	}
	lhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokComma, "Eq takes two arguments"); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, "expected ) closing Eq"); err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, p.errorf(p.cur.pos, "trailing input after equation")
	}
	return &Equality{LHS: lhs, RHS: rhs}, nil
}

func (p *parser) advance() error {
	t, err := p.tz.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) expect(kind tokenKind, msg string) error {
	if p.cur.kind != kind {
		return p.errorf(p.cur.pos, msg)
	}
	return p.advance()
}

func (p *parser) errorf(pos int, msg string) error {
	return &ParseError{Input: p.input, Pos: pos, Msg: msg}
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms := []Expr{left}
	for p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		neg := p.cur.kind == tokMinus
		if err := p.advance(); err != nil {
			return nil, err
		}
		t, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if neg {
			t = MulOf(N(-1), t)
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &Add{terms: terms}, nil
}

func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	factors := []Expr{left}
	for p.cur.kind == tokStar || p.cur.kind == tokSlash {
		div := p.cur.kind == tokSlash
		if err := p.advance(); err != nil {
			return nil, err
		}
		f, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if div {
			f = &Pow{base: f, exp: N(-1)}
		}
		factors = append(factors, f)
	}
	if len(factors) == 1 {
		return factors[0], nil
	}
	return &Mul{factors: factors}, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.cur.kind == tokMinus {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return MulOf(N(-1), e), nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Expr, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokPower {
		return base, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	// Exponentiation is right associative.
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Pow{base: base, exp: exp}, nil
}

func (p *parser) parseAtom() (Expr, error) {
	switch p.cur.kind {
	case tokNumber:
		val, ok := new(big.Rat).SetString(p.cur.text)
		if !ok {
			return nil, p.errorf(p.cur.pos, "malformed number "+p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Num{val: val}, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "unbalanced parenthesis"); err != nil {
			return nil, err
		}
		return e, nil
	case tokIdent:
		name := p.cur.text
		pos := p.cur.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tokLParen {
			return p.ctx.Term(name)
		}
		return p.parseCall(name, pos)
	case tokIndex:
		return nil, p.errorf(p.cur.pos, "index token _"+p.cur.text+" is only valid inside KD")
	default:
		return nil, p.errorf(p.cur.pos, "expected an expression")
	}
}

func (p *parser) parseCall(name string, pos int) (Expr, error) {
	switch name {
	case "Der":
		return p.parseDer(false, pos)
	case "Conservative", "conser":
		return p.parseDer(true, pos)
	case "KroneckerDelta", "KD":
		return p.parseKD(pos)
	case "Eq":
		return nil, p.errorf(pos, "Eq may only appear at the top level")
	default:
		return nil, p.errorf(pos, "unknown function "+name)
	}
}

func (p *parser) parseDer(conservative bool, pos int) (Expr, error) {
	if err := p.expect(tokLParen, "expected ("); err != nil {
		return nil, err
	}
	arg, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var vars []Expr
	for p.cur.kind == tokComma {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tokIdent {
			return nil, p.errorf(p.cur.pos, "differentiation variable must be a coordinate or time symbol")
		}
		vpos := p.cur.pos
		t, err := p.ctx.Term(p.cur.text)
		if err != nil {
			return nil, err
		}
		if t.Kind != KindCoordinate && t.Kind != KindTime {
			return nil, p.errorf(vpos, t.String()+" is not a coordinate or time symbol")
		}
		vars = append(vars, t)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(tokRParen, "unbalanced parenthesis in derivative"); err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		return nil, p.errorf(pos, "derivative needs at least one differentiation variable")
	}
	if conservative && len(vars) != 1 {
		return nil, p.errorf(pos, "conservative derivative takes exactly one differentiation variable")
	}
	return &Derivative{arg: arg, vars: vars, conservative: conservative}, nil
}

func (p *parser) parseKD(pos int) (Expr, error) {
	if err := p.expect(tokLParen, "expected ("); err != nil {
		return nil, err
	}
	a, err := p.parseKDIndex()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokComma, "KD takes two index arguments"); err != nil {
		return nil, err
	}
	b, err := p.parseKDIndex()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, "unbalanced parenthesis in KD"); err != nil {
		return nil, err
	}
	return &KroneckerDelta{A: a, B: b}, nil
}

func (p *parser) parseKDIndex() (IndexSlot, error) {
	if p.cur.kind != tokIndex {
		return IndexSlot{}, p.errorf(p.cur.pos, "KD argument must be an index token like _i")
	}
	s := IndexSlot{Name: p.cur.text}
	if err := p.advance(); err != nil {
		return IndexSlot{}, err
	}
	return s, nil
}

// stripOuterSpace trims the equation text once on entry so reported error
// positions line up with the stored original.
func stripOuterSpace(s string) string { return strings.TrimSpace(s) }
