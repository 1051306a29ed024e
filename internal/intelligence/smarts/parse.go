package smarts

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

type ringOpen struct {
	atom     int
	bondText string
	slot     int
}

type parser struct {
	src   string
	pos   int
	mol   *Mol
	order [][]int // per atom, bond indices in written order; -1 until a ring closes
	prev  []bool  // per atom, whether a preceding atom was written before it
	rings map[int]ringOpen
}

// Parse reads a single (possibly dot-disconnected) SMARTS pattern.
func Parse(text string) (*Mol, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.MalformedPattern("empty pattern")
	}
	p := &parser{src: text, mol: &Mol{}, rings: map[int]ringOpen{}}
	if err := p.run(); err != nil {
		return nil, err
	}
	p.resolveChirality()
	return p.mol, nil
}

func (p *parser) fail(format string, args ...interface{}) error {
	return apperrors.MalformedPattern(fmt.Sprintf(format, args...)).
		WithDetail(fmt.Sprintf("%q at offset %d", p.src, p.pos))
}

func (p *parser) run() error {
	cur := -1
	var branches []int
	pendingBond := ""
	havePending := false

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if cur < 0 {
				return p.fail("branch without a preceding atom")
			}
			if havePending {
				return p.fail("bond before branch")
			}
			branches = append(branches, cur)
			p.pos++

		case c == ')':
			if len(branches) == 0 {
				return p.fail("unbalanced ')'")
			}
			if havePending {
				return p.fail("dangling bond")
			}
			cur = branches[len(branches)-1]
			branches = branches[:len(branches)-1]
			p.pos++

		case c == '.':
			if havePending {
				return p.fail("dangling bond")
			}
			if len(branches) > 0 {
				return p.fail("'.' inside a branch")
			}
			cur = -1
			p.pos++

		case isBondStart(p.src, p.pos):
			if cur < 0 {
				return p.fail("bond without a preceding atom")
			}
			if havePending {
				return p.fail("consecutive bonds")
			}
			pendingBond = p.readBond()
			havePending = true
			if _, _, err := classifyBond(pendingBond); err != nil {
				return p.fail("%v", err)
			}

		case c == '%' || isDigit(c):
			if cur < 0 {
				return p.fail("ring closure without a preceding atom")
			}
			num, err := p.readRingNumber()
			if err != nil {
				return err
			}
			if err := p.ring(cur, num, pendingBond); err != nil {
				return err
			}
			pendingBond, havePending = "", false

		case c == '[':
			atom, err := p.readBracketAtom()
			if err != nil {
				return err
			}
			if err := p.addAtom(atom, cur, pendingBond); err != nil {
				return err
			}
			cur = len(p.mol.Atoms) - 1
			pendingBond, havePending = "", false

		default:
			sym, ok := p.readOrganic()
			if !ok {
				return p.fail("unexpected character %q", c)
			}
			if err := p.addAtom(organicAtom(sym), cur, pendingBond); err != nil {
				return err
			}
			cur = len(p.mol.Atoms) - 1
			pendingBond, havePending = "", false
		}
	}

	switch {
	case havePending:
		return p.fail("dangling bond")
	case len(branches) > 0:
		return p.fail("unbalanced '('")
	case len(p.rings) > 0:
		first := -1
		for num := range p.rings {
			if first < 0 || num < first {
				first = num
			}
		}
		return p.fail("unclosed ring %d", first)
	}
	return nil
}

func (p *parser) addAtom(a Atom, prev int, bondText string) error {
	p.mol.Atoms = append(p.mol.Atoms, a)
	p.order = append(p.order, nil)
	p.prev = append(p.prev, prev >= 0)
	idx := len(p.mol.Atoms) - 1
	if prev < 0 {
		return nil
	}
	b, err := p.addBond(prev, idx, bondText)
	if err != nil {
		return err
	}
	p.order[idx] = append(p.order[idx], b)
	p.order[prev] = append(p.order[prev], b)
	return nil
}

func (p *parser) addBond(begin, end int, text string) (int, error) {
	if _, dup := p.mol.BondBetween(begin, end); dup {
		return -1, p.fail("duplicate bond between atoms %d and %d", begin, end)
	}
	kind, dir, err := classifyBond(text)
	if err != nil {
		return -1, p.fail("%v", err)
	}
	p.mol.Bonds = append(p.mol.Bonds, Bond{Begin: begin, End: end, Kind: kind, Dir: dir, Text: text})
	return len(p.mol.Bonds) - 1, nil
}

func (p *parser) ring(cur, num int, bondText string) error {
	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpen{atom: cur, bondText: bondText, slot: len(p.order[cur])}
		p.order[cur] = append(p.order[cur], -1)
		return nil
	}
	delete(p.rings, num)
	if open.atom == cur {
		return p.fail("ring %d closes on its own atom", num)
	}
	text := open.bondText
	if bondText != "" {
		if text != "" && text != bondText {
			return p.fail("ring %d has conflicting bonds %q and %q", num, text, bondText)
		}
		text = bondText
	}
	b, err := p.addBond(open.atom, cur, text)
	if err != nil {
		return err
	}
	p.order[open.atom][open.slot] = b
	p.order[cur] = append(p.order[cur], b)
	return nil
}

func (p *parser) readRingNumber() (int, error) {
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
			return 0, p.fail("'%%' must be followed by two digits")
		}
		n, _ := strconv.Atoi(p.src[p.pos+1 : p.pos+3])
		p.pos += 3
		return n, nil
	}
	n := int(p.src[p.pos] - '0')
	p.pos++
	return n, nil
}

func isBondStart(src string, pos int) bool {
	c := src[pos]
	if c == '<' {
		return pos+1 < len(src) && src[pos+1] == '-'
	}
	return strings.IndexByte(`-=#$:~@/\!&,;`, c) >= 0
}

// readBond consumes the maximal run of bond-expression characters.
func (p *parser) readBond() string {
	start := p.pos
	for p.pos < len(p.src) {
		if p.src[p.pos] == '-' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '>' {
			p.pos += 2
			continue
		}
		if !isBondStart(p.src, p.pos) {
			break
		}
		if p.src[p.pos] == '<' {
			p.pos += 2
			continue
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) readOrganic() (string, bool) {
	rest := p.src[p.pos:]
	for _, sym := range organicSubset {
		if strings.HasPrefix(rest, sym) {
			p.pos += len(sym)
			return sym, true
		}
	}
	if rest[0] == 'a' || rest[0] == 'A' {
		p.pos++
		return rest[:1], true
	}
	return "", false
}

func organicAtom(sym string) Atom {
	a := Atom{Query: sym}
	a.Symbol, a.AtomicNum, a.Aromatic = describeQuery(sym)
	return a
}

// readBracketAtom consumes "[...]", honouring brackets nested inside
// recursive "$(...)" primitives.
func (p *parser) readBracketAtom() (Atom, error) {
	start := p.pos
	depth := 0
	end := -1
	for i := p.pos; i < len(p.src) && end < 0; i++ {
		switch p.src[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth == 0 {
				if p.src[i] != ']' {
					return Atom{}, p.fail("unbalanced parenthesis in bracket atom")
				}
				end = i
			}
		}
	}
	if end < 0 {
		return Atom{}, p.fail("unclosed '['")
	}
	p.pos = end + 1

	query, mapNum, chiral := splitBracket(p.src[start+1 : end])
	if query == "" {
		p.pos = start
		return Atom{}, p.fail("empty bracket atom")
	}
	a := Atom{Query: query, MapNum: mapNum, Chirality: chiral}
	a.Symbol, a.AtomicNum, a.Aromatic = describeQuery(query)
	return a, nil
}

// splitBracket separates the map number and tetrahedral marker from the rest
// of a bracket atom body.  Only the top level is inspected; recursive
// primitives are left untouched.
func splitBracket(body string) (query string, mapNum int, chiral Chirality) {
	depth := 0
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth > 0 {
			sb.WriteByte(c)
			continue
		}
		if c == '@' {
			if i+1 < len(body) && body[i+1] == '@' {
				i++
				if chiral == ChiralNone {
					chiral = ChiralCW
				}
			} else if chiral == ChiralNone {
				chiral = ChiralCCW
			}
			continue
		}
		if c == ':' {
			j := i + 1
			for j < len(body) && isDigit(body[j]) {
				j++
			}
			if j == len(body) && j > i+1 {
				mapNum, _ = strconv.Atoi(body[i+1:])
				break
			}
		}
		sb.WriteByte(c)
	}
	return strings.Trim(sb.String(), "&"), mapNum, chiral
}

// describeQuery extracts the leading element of a primitive expression.
func describeQuery(q string) (symbol string, num int, aromatic bool) {
	i := 0
	for i < len(q) && isDigit(q[i]) {
		i++
	}
	isotope := i > 0
	rest := q[i:]
	switch {
	case rest == "":
		return "*", 0, false
	case rest[0] == '#':
		j := 1
		for j < len(rest) && isDigit(rest[j]) {
			j++
		}
		n, _ := strconv.Atoi(rest[1:j])
		return elementSymbol(n), n, false
	case rest[0] == 'a':
		if len(rest) > 1 && isLower(rest[1]) && IsElement(rest[:2]) {
			return rest[:2], AtomicNumber(rest[:2]), true
		}
		return "*", 0, true
	case rest[0] == '*':
		return "*", 0, false
	case rest[0] == 'H':
		if isotope || len(rest) == 1 || strings.IndexByte("+-", rest[1]) >= 0 {
			return "H", 1, false
		}
	}
	if len(rest) > 1 && isLower(rest[1]) && IsElement(rest[:2]) {
		return rest[:2], AtomicNumber(rest[:2]), isAromaticSymbol(rest[:2])
	}
	if rest[0] != 'H' && IsElement(rest[:1]) {
		return rest[:1], AtomicNumber(rest[:1]), isAromaticSymbol(rest[:1])
	}
	return "*", 0, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

// resolveChirality rewrites every tag from written neighbor order to
// bond-list order.
func (p *parser) resolveChirality() {
	for i := range p.mol.Atoms {
		a := &p.mol.Atoms[i]
		if a.Chirality == ChiralNone {
			continue
		}
		written := make([]int, 0, len(p.order[i])+1)
		for _, b := range p.order[i] {
			written = append(written, p.mol.Bonds[b].Other(i))
		}
		if !sameParity(withImplicit(written, p.prev[i]), withImplicit(p.mol.Neighbors(i), true)) {
			a.Chirality = a.Chirality.Invert()
		}
	}
}

//Personal.AI order the ending
