package constrata

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"unicode"
)

// tokenKind discriminates lexer tokens.
type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokCmp // "=", "==", "<", "<=", ">", ">="
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	ch := l.input[l.pos]
	switch {
	case ch == '+':
		l.pos++
		return token{kind: tokPlus, text: "+", pos: start}, nil
	case ch == '-':
		l.pos++
		return token{kind: tokMinus, text: "-", pos: start}, nil
	case ch == '*':
		l.pos++
		return token{kind: tokStar, text: "*", pos: start}, nil
	case ch == '/':
		l.pos++
		return token{kind: tokSlash, text: "/", pos: start}, nil
	case ch == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ch == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case ch == '=':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
		}
		return token{kind: tokCmp, text: "=", pos: start}, nil
	case ch == '<' || ch == '>':
		l.pos++
		text := string(ch)
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			text += "="
			l.pos++
		}
		return token{kind: tokCmp, text: text, pos: start}, nil
	case ch >= '0' && ch <= '9' || ch == '.':
		for l.pos < len(l.input) && (l.input[l.pos] >= '0' && l.input[l.pos] <= '9' || l.input[l.pos] == '.') {
			l.pos++
		}
		// Optional exponent part.
		if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
			mark := l.pos
			l.pos++
			if l.pos < len(l.input) && (l.input[l.pos] == '+' || l.input[l.pos] == '-') {
				l.pos++
			}
			if l.pos < len(l.input) && l.input[l.pos] >= '0' && l.input[l.pos] <= '9' {
				for l.pos < len(l.input) && l.input[l.pos] >= '0' && l.input[l.pos] <= '9' {
					l.pos++
				}
			} else {
				l.pos = mark
			}
		}
		return token{kind: tokNumber, text: l.input[start:l.pos], pos: start}, nil
	case isIdentStart(rune(ch)):
		for l.pos < len(l.input) && isIdentPart(rune(l.input[l.pos])) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.input[start:l.pos], pos: start}, nil
	default:
		return token{}, fmt.Errorf("unexpected character %q at position %d", ch, start)
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// parser is a recursive-descent parser over the lexer's token stream with
// one token of lookahead.
type parser struct {
	lex  *lexer
	tok  token
	vars map[string]Variable
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

// ParseRelation parses a textual relation such as "a = 2*b + 1" or
// "area = width * height" into a Relation. Identifiers resolve against
// the given variable map; an unknown identifier is an error. The syntax
// covers + - * /, parentheses, unary minus, decimal numbers, and the
// comparison operators = == < <= > >=.
func ParseRelation(input string, vars map[string]Variable) (Relation, error) {
	p := &parser{lex: &lexer{input: input}, vars: vars}
	if err := p.advance(); err != nil {
		return Relation{}, err
	}
	lhs, err := p.parseExpr()
	if err != nil {
		return Relation{}, err
	}
	if p.tok.kind != tokCmp {
		return Relation{}, fmt.Errorf("expected comparison operator at position %d in %q", p.tok.pos, input)
	}
	opText := p.tok.text
	if err := p.advance(); err != nil {
		return Relation{}, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return Relation{}, err
	}
	if p.tok.kind != tokEOF {
		return Relation{}, fmt.Errorf("unexpected %q at position %d in %q", p.tok.text, p.tok.pos, input)
	}
	switch opText {
	case "=":
		return Eq(lhs, rhs), nil
	case "<":
		return Lt(lhs, rhs), nil
	case "<=":
		return Le(lhs, rhs), nil
	case ">":
		return Gt(lhs, rhs), nil
	case ">=":
		return Ge(lhs, rhs), nil
	}
	return Relation{}, fmt.Errorf("unsupported operator %q", opText)
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return Expr{}, err
	}
	for p.tok.kind == tokPlus || p.tok.kind == tokMinus {
		minus := p.tok.kind == tokMinus
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return Expr{}, err
		}
		if minus {
			left = left.Sub(right)
		} else {
			left = left.Add(right)
		}
	}
	return left, nil
}

func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return Expr{}, err
	}
	for p.tok.kind == tokStar || p.tok.kind == tokSlash {
		div := p.tok.kind == tokSlash
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		right, err := p.parseFactor()
		if err != nil {
			return Expr{}, err
		}
		if div {
			q, err := left.Div(right)
			if err != nil {
				return Expr{}, fmt.Errorf("at position %d: %w", pos, err)
			}
			left = q
		} else {
			left = left.Mul(right)
		}
	}
	return left, nil
}

func (p *parser) parseFactor() (Expr, error) {
	switch p.tok.kind {
	case tokMinus:
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		e, err := p.parseFactor()
		if err != nil {
			return Expr{}, err
		}
		return e.Neg(), nil
	case tokNumber:
		r, ok := new(big.Rat).SetString(p.tok.text)
		if !ok {
			return Expr{}, fmt.Errorf("invalid number %q at position %d", p.tok.text, p.tok.pos)
		}
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		return NewConstantExpr(r), nil
	case tokIdent:
		v, ok := p.vars[p.tok.text]
		if !ok {
			known := make([]string, 0, len(p.vars))
			for name := range p.vars {
				known = append(known, name)
			}
			sort.Strings(known)
			return Expr{}, fmt.Errorf("unknown variable %q at position %d (known: %s)",
				p.tok.text, p.tok.pos, strings.Join(known, ", "))
		}
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		return NewVariableExpr(v), nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		if p.tok.kind != tokRParen {
			return Expr{}, fmt.Errorf("expected ')' at position %d", p.tok.pos)
		}
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		return e, nil
	default:
		return Expr{}, fmt.Errorf("unexpected %q at position %d", p.tok.text, p.tok.pos)
	}
}
