package smarts

import (
	"fmt"
	"strings"
)

// BondKind is the bond type assigned at parse time.
type BondKind int

const (
	BondUnspecified BondKind = iota
	BondSingle
	BondDouble
	BondTriple
	BondQuadruple
	BondQuintuple
	BondHextuple
	BondOneAndAHalf
	BondTwoAndAHalf
	BondThreeAndAHalf
	BondFourAndAHalf
	BondFiveAndAHalf
	BondAromatic
	BondIonic
	BondHydrogen
	BondThreeCenter
	BondDativeOne
	BondDative
	BondDativeL
	BondDativeR
	BondOther
	BondZero
)

var bondKindNames = [...]string{
	BondUnspecified:   "UNSPECIFIED",
	BondSingle:        "SINGLE",
	BondDouble:        "DOUBLE",
	BondTriple:        "TRIPLE",
	BondQuadruple:     "QUADRUPLE",
	BondQuintuple:     "QUINTUPLE",
	BondHextuple:      "HEXTUPLE",
	BondOneAndAHalf:   "ONEANDAHALF",
	BondTwoAndAHalf:   "TWOANDAHALF",
	BondThreeAndAHalf: "THREEANDAHALF",
	BondFourAndAHalf:  "FOURANDAHALF",
	BondFiveAndAHalf:  "FIVEANDAHALF",
	BondAromatic:      "AROMATIC",
	BondIonic:         "IONIC",
	BondHydrogen:      "HYDROGEN",
	BondThreeCenter:   "THREECENTER",
	BondDativeOne:     "DATIVEONE",
	BondDative:        "DATIVE",
	BondDativeL:       "DATIVEL",
	BondDativeR:       "DATIVER",
	BondOther:         "OTHER",
	BondZero:          "ZERO",
}

func (k BondKind) String() string {
	if k >= 0 && int(k) < len(bondKindNames) {
		return bondKindNames[k]
	}
	return fmt.Sprintf("BondKind(%d)", int(k))
}

// Order is the valence contribution of the bond kind.
func (k BondKind) Order() int {
	switch k {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondQuadruple:
		return 4
	case BondZero:
		return 0
	default:
		return 1
	}
}

// BondDir is the direction of a "/" or "\" bond along Begin→End.
type BondDir int

const (
	DirNone BondDir = iota
	DirUp           // /
	DirDown         // \
)

func (d BondDir) String() string {
	switch d {
	case DirUp:
		return "UP"
	case DirDown:
		return "DOWN"
	default:
		return "NONE"
	}
}

// Reference bonds used to decide whether a bond expression is unconstrained
// between single and aromatic.
var (
	RefSingle   = Bond{Kind: BondSingle, Text: "-"}
	RefAromatic = Bond{Kind: BondAromatic, Text: ":"}
)

// FlipDirection swaps "/" and "\" in a bond text.
func FlipDirection(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/':
			return '\\'
		case '\\':
			return '/'
		}
		return r
	}, text)
}

// classifyBond maps literal bond text to its kind and direction.  Implicit
// bonds start out single; Sanitize turns them aromatic between aromatic atoms.
func classifyBond(text string) (BondKind, BondDir, error) {
	switch text {
	case "", "-":
		return BondSingle, DirNone, nil
	case "=":
		return BondDouble, DirNone, nil
	case "#":
		return BondTriple, DirNone, nil
	case "$":
		return BondQuadruple, DirNone, nil
	case ":":
		return BondAromatic, DirNone, nil
	case "~":
		return BondUnspecified, DirNone, nil
	case "/":
		return BondSingle, DirUp, nil
	case "\\":
		return BondSingle, DirDown, nil
	case "->":
		return BondDative, DirNone, nil
	case "<-":
		return BondDativeL, DirNone, nil
	}
	if _, err := parseBondExpr(text); err != nil {
		return 0, 0, err
	}
	return BondOther, DirNone, nil
}

// Matches reports whether the bond's expression accepts the concrete
// reference bond ref.  Ring membership primitives never match, since the
// references are acyclic.
func (b Bond) Matches(ref Bond) bool {
	if b.Text == "" {
		return ref.Kind == BondSingle || ref.Kind == BondAromatic
	}
	e, err := parseBondExpr(b.Text)
	if err != nil {
		return false
	}
	return e.eval(ref.Kind)
}

type bondExpr struct {
	op       byte // 0 for a primitive, else one of ! & , ;
	prim     string
	children []*bondExpr
}

func (e *bondExpr) eval(kind BondKind) bool {
	switch e.op {
	case '!':
		return !e.children[0].eval(kind)
	case '&', ';':
		for _, c := range e.children {
			if !c.eval(kind) {
				return false
			}
		}
		return true
	case ',':
		for _, c := range e.children {
			if c.eval(kind) {
				return true
			}
		}
		return false
	}
	switch e.prim {
	case "-", "/", "\\":
		return kind == BondSingle
	case "=":
		return kind == BondDouble
	case "#":
		return kind == BondTriple
	case "$":
		return kind == BondQuadruple
	case ":":
		return kind == BondAromatic
	case "~":
		return true
	case "->":
		return kind == BondDative
	case "<-":
		return kind == BondDativeL
	}
	return false
}

type bondParser struct {
	src string
	pos int
}

func parseBondExpr(src string) (*bondExpr, error) {
	p := &bondParser{src: src}
	e, err := p.level(';')
	if err != nil {
		return nil, err
	}
	if p.pos != len(src) {
		return nil, fmt.Errorf("unexpected %q in bond %q", src[p.pos], src)
	}
	return e, nil
}

// level parses the binary operator sep and everything binding tighter.
func (p *bondParser) level(sep byte) (*bondExpr, error) {
	var next func() (*bondExpr, error)
	switch sep {
	case ';':
		next = func() (*bondExpr, error) { return p.level(',') }
	case ',':
		next = func() (*bondExpr, error) { return p.level('&') }
	default:
		next = p.unaryRun
	}
	first, err := next()
	if err != nil {
		return nil, err
	}
	out := []*bondExpr{first}
	for p.pos < len(p.src) && p.src[p.pos] == sep {
		p.pos++
		e, err := next()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if len(out) == 1 {
		return first, nil
	}
	return &bondExpr{op: sep, children: out}, nil
}

// unaryRun parses juxtaposed unary terms, which are an implicit high-precedence and.
func (p *bondParser) unaryRun() (*bondExpr, error) {
	var out []*bondExpr
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '&' || c == ',' || c == ';' {
			break
		}
		e, err := p.unary()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	switch len(out) {
	case 0:
		return nil, fmt.Errorf("empty bond primitive in %q", p.src)
	case 1:
		return out[0], nil
	}
	return &bondExpr{op: '&', children: out}, nil
}

func (p *bondParser) unary() (*bondExpr, error) {
	if p.src[p.pos] == '!' {
		p.pos++
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("dangling '!' in bond %q", p.src)
		}
		e, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &bondExpr{op: '!', children: []*bondExpr{e}}, nil
	}
	rest := p.src[p.pos:]
	for _, prim := range []string{"->", "<-"} {
		if strings.HasPrefix(rest, prim) {
			p.pos += 2
			return &bondExpr{prim: prim}, nil
		}
	}
	c := p.src[p.pos]
	if strings.IndexByte(`-=#$:~@/\`, c) < 0 {
		return nil, fmt.Errorf("unknown bond primitive %q in %q", c, p.src)
	}
	p.pos++
	return &bondExpr{prim: string(c)}, nil
}

//Personal.AI order the ending
