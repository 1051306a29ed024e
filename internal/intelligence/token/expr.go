package token

import (
	"fmt"
	"strconv"

	"github.com/turtacn/smartscanon/internal/intelligence/smarts"
	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

// opKind identifies a node of an atom primitive expression.  The numeric
// values of the operators double as their score opcodes.
type opKind int

const (
	opLeaf    opKind = 0
	opLowAnd  opKind = 1 // ;
	opOr      opKind = 2 // ,
	opHighAnd opKind = 3 // & and juxtaposition
	opNot     opKind = 4 // !
)

func (k opKind) separator() string {
	switch k {
	case opLowAnd:
		return ";"
	case opOr:
		return ","
	default:
		return "&"
	}
}

// node is one element of a parsed primitive expression.  text and score are
// filled during normalization.
type node struct {
	op        opKind
	leaf      string
	recursive string
	children  []*node

	text  string
	score Score
}

type exprParser struct {
	src string
	pos int
}

// parseExpr parses the body of a bracket atom (without the brackets, map
// number or chirality) using SMARTS precedence: ! > implicit & > & > , > ;
func parseExpr(src string) (*node, error) {
	if src == "" {
		return nil, malformed(src, 0, "empty atom expression")
	}
	p := &exprParser{src: src}
	n, err := p.lowAnd()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, malformed(src, p.pos, fmt.Sprintf("unexpected %q", p.src[p.pos]))
	}
	return n, nil
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) lowAnd() (*node, error) {
	return p.binary(opLowAnd, ';', p.or)
}

func (p *exprParser) or() (*node, error) {
	return p.binary(opOr, ',', p.highAnd)
}

func (p *exprParser) binary(op opKind, sep byte, next func() (*node, error)) (*node, error) {
	first, err := next()
	if err != nil {
		return nil, err
	}
	children := []*node{first}
	for p.peek() == sep {
		p.pos++
		c, err := next()
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &node{op: op, children: children}, nil
}

func (p *exprParser) highAnd() (*node, error) {
	first, err := p.unary()
	if err != nil {
		return nil, err
	}
	children := []*node{first}
	for {
		c := p.peek()
		if c == '&' {
			p.pos++
		} else if c == 0 || c == ',' || c == ';' {
			break
		}
		n, err := p.unary()
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &node{op: opHighAnd, children: children}, nil
}

func (p *exprParser) unary() (*node, error) {
	negations := 0
	for p.peek() == '!' {
		negations++
		p.pos++
	}
	n, err := p.primitive()
	if err != nil {
		return nil, err
	}
	if negations%2 == 1 {
		return &node{op: opNot, children: []*node{n}}, nil
	}
	return n, nil
}

func (p *exprParser) digits() (int, bool) {
	start := p.pos
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return 0, false
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return 0, false
	}
	return n, true
}

// element reads an element symbol, preferring two-letter symbols.  A bare
// "H" is only read as hydrogen when allowH is set.
func (p *exprParser) element(allowH bool) (string, bool) {
	if p.pos+2 <= len(p.src) {
		two := p.src[p.pos : p.pos+2]
		if isLower(two[1]) && smarts.IsElement(two) {
			p.pos += 2
			return two, true
		}
	}
	if p.pos < len(p.src) {
		one := p.src[p.pos : p.pos+1]
		if one == "H" && !allowH {
			return "", false
		}
		if smarts.IsElement(one) {
			p.pos++
			return one, true
		}
	}
	return "", false
}

// bareHydrogen reports whether an "H" at the current offset is the element
// rather than a hydrogen count.
func (p *exprParser) bareHydrogen() bool {
	if p.pos != 0 || p.peek() != 'H' {
		return false
	}
	if p.pos+1 == len(p.src) {
		return true
	}
	switch p.src[p.pos+1] {
	case '+', '-', '@', ':':
		return true
	}
	return false
}

func (p *exprParser) primitive() (*node, error) {
	if p.pos >= len(p.src) {
		return nil, malformed(p.src, p.pos, "expected primitive")
	}
	start := p.pos
	c := p.src[p.pos]

	switch {
	case c == '$':
		return p.recursiveLeaf()

	case isDigit(c):
		iso, _ := p.digits()
		prefix := strconv.Itoa(iso)
		if sym, ok := p.element(true); ok {
			return leaf(prefix + sym), nil
		}
		if b := p.peek(); b == '*' || b == 'a' || b == 'A' {
			p.pos++
			return leaf(prefix + string(b)), nil
		}
		return leaf(prefix), nil

	case c == '#':
		p.pos++
		n, ok := p.digits()
		if !ok {
			return nil, malformed(p.src, start, "'#' must be followed by an atomic number")
		}
		return leaf("#" + strconv.Itoa(n)), nil

	case c == '+' || c == '-':
		return p.charge(), nil

	case c == '*' || c == 'a' || c == 'A':
		// "Al", "As", "Ag" and friends are elements.
		if c != '*' {
			if sym, ok := p.element(false); ok {
				return leaf(sym), nil
			}
		}
		p.pos++
		return leaf(string(c)), nil
	}

	if p.bareHydrogen() {
		p.pos++
		return leaf("H"), nil
	}
	if sym, ok := p.element(false); ok {
		return leaf(sym), nil
	}

	switch c {
	case 'H', 'D', 'X', 'v':
		p.pos++
		n, ok := p.digits()
		if !ok {
			n = 1
		}
		return leaf(string(c) + strconv.Itoa(n)), nil
	case 'h', 'R', 'r', 'x':
		p.pos++
		if n, ok := p.digits(); ok {
			return leaf(string(c) + strconv.Itoa(n)), nil
		}
		return leaf(string(c)), nil
	}
	return nil, malformed(p.src, start, fmt.Sprintf("unknown primitive %q", c))
}

func (p *exprParser) charge() *node {
	sign := p.src[p.pos]
	p.pos++
	if n, ok := p.digits(); ok {
		if n == 0 {
			return leaf("+0")
		}
		return leaf(string(sign) + strconv.Itoa(n))
	}
	n := 1
	for p.peek() == sign {
		n++
		p.pos++
	}
	return leaf(string(sign) + strconv.Itoa(n))
}

func (p *exprParser) recursiveLeaf() (*node, error) {
	start := p.pos
	if p.pos+1 >= len(p.src) || p.src[p.pos+1] != '(' {
		return nil, malformed(p.src, start, "'$' must be followed by '('")
	}
	depth := 0
	for i := p.pos + 1; i < len(p.src); i++ {
		switch p.src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				body := p.src[p.pos+2 : i]
				if body == "" {
					return nil, malformed(p.src, start, "empty recursive pattern")
				}
				p.pos = i + 1
				return &node{op: opLeaf, recursive: body}, nil
			}
		}
	}
	return nil, malformed(p.src, start, "unterminated recursive pattern")
}

func leaf(text string) *node {
	return &node{op: opLeaf, leaf: text}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

func malformed(src string, pos int, msg string) error {
	return apperrors.MalformedPattern(msg).WithDetail(fmt.Sprintf("[%s] at offset %d", src, pos))
}

//Personal.AI order the ending
