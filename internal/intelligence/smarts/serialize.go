package smarts

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

type halfEdge struct {
	nbr  int
	bond int
}

type writer struct {
	mol      *Mol
	atomText []string
	bondText []string

	adj        [][]halfEdge
	rank       []int
	parent     []int
	parentBond []int
	children   [][]int
	tree       []bool

	digits map[int]int // bond index → open ring digit
	inUse  map[int]bool
	sb     strings.Builder
}

// Serialize writes m as SMARTS text.  atomText holds the bracketed text of each
// atom without map number or chirality, and bondText the literal text of each
// bond; nil selects the molecule's own texts.
//
// Traversal starts at atom 0 and always continues with the lowest-index
// unvisited neighbor, so a molecule whose atoms are numbered in traversal
// order is written in that order.
func Serialize(m *Mol, atomText, bondText []string) (string, error) {
	if atomText == nil {
		atomText = m.AtomTexts()
	}
	if bondText == nil {
		bondText = m.BondTexts()
	}
	if len(atomText) != len(m.Atoms) || len(bondText) != len(m.Bonds) {
		return "", apperrors.New(apperrors.ErrCodeSerializationFault, "text tables do not match the molecule").
			WithDetail(fmt.Sprintf("%d atoms/%d texts, %d bonds/%d texts", len(m.Atoms), len(atomText), len(m.Bonds), len(bondText)))
	}

	n := len(m.Atoms)
	w := &writer{
		mol:        m,
		atomText:   atomText,
		bondText:   bondText,
		adj:        make([][]halfEdge, n),
		rank:       make([]int, n),
		parent:     make([]int, n),
		parentBond: make([]int, n),
		children:   make([][]int, n),
		tree:       make([]bool, len(m.Bonds)),
		digits:     map[int]int{},
		inUse:      map[int]bool{},
	}
	for i, b := range m.Bonds {
		w.adj[b.Begin] = append(w.adj[b.Begin], halfEdge{nbr: b.End, bond: i})
		w.adj[b.End] = append(w.adj[b.End], halfEdge{nbr: b.Begin, bond: i})
	}
	for i := range w.adj {
		sort.SliceStable(w.adj[i], func(a, b int) bool { return w.adj[i][a].nbr < w.adj[i][b].nbr })
		w.rank[i] = -1
		w.parent[i] = -1
		w.parentBond[i] = -1
	}

	counter := 0
	for start := 0; start < n; start++ {
		if w.rank[start] >= 0 {
			continue
		}
		w.visit(start, &counter)
		if w.sb.Len() > 0 {
			w.sb.WriteByte('.')
		}
		w.write(start)
	}
	return w.sb.String(), nil
}

func (w *writer) visit(u int, counter *int) {
	w.rank[u] = *counter
	*counter++
	for _, e := range w.adj[u] {
		if w.rank[e.nbr] >= 0 {
			continue
		}
		w.parent[e.nbr] = u
		w.parentBond[e.nbr] = e.bond
		w.tree[e.bond] = true
		w.children[u] = append(w.children[u], e.nbr)
		w.visit(e.nbr, counter)
	}
}

// orientedText returns the bond text as written from atom from.
func (w *writer) orientedText(bond, from int) string {
	text := w.bondText[bond]
	if w.mol.Bonds[bond].Begin != from {
		return FlipDirection(text)
	}
	return text
}

func (w *writer) write(u int) {
	var closings, openings []halfEdge
	for _, e := range w.adj[u] {
		if w.tree[e.bond] {
			continue
		}
		if w.rank[e.nbr] < w.rank[u] {
			closings = append(closings, e)
		} else {
			openings = append(openings, e)
		}
	}

	var ringText strings.Builder
	for _, e := range closings {
		ringText.WriteString(ringLabel(w.digits[e.bond]))
	}
	for _, e := range openings {
		d := w.lowestFreeDigit()
		w.digits[e.bond] = d
		w.inUse[d] = true
		ringText.WriteString(w.orientedText(e.bond, u))
		ringText.WriteString(ringLabel(d))
	}
	for _, e := range closings {
		delete(w.inUse, w.digits[e.bond])
	}

	written := make([]int, 0, len(w.adj[u]))
	if w.parent[u] >= 0 {
		written = append(written, w.parent[u])
	}
	for _, e := range closings {
		written = append(written, e.nbr)
	}
	for _, e := range openings {
		written = append(written, e.nbr)
	}
	written = append(written, w.children[u]...)

	atom := w.mol.Atoms[u]
	chiral := atom.Chirality
	if chiral != ChiralNone && !sameParity(withImplicit(w.mol.Neighbors(u), true), withImplicit(written, w.parent[u] >= 0)) {
		chiral = chiral.Invert()
	}
	w.sb.WriteString(decorate(w.atomText[u], atom.MapNum, chiral))
	w.sb.WriteString(ringText.String())

	for i, c := range w.children[u] {
		last := i == len(w.children[u])-1
		if !last {
			w.sb.WriteByte('(')
		}
		w.sb.WriteString(w.orientedText(w.parentBond[c], u))
		w.write(c)
		if !last {
			w.sb.WriteByte(')')
		}
	}
}

func (w *writer) lowestFreeDigit() int {
	d := 1
	for w.inUse[d] {
		d++
	}
	return d
}

func ringLabel(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

// decorate adds the tetrahedral marker after the atom's identity primitive and
// appends the map number.
func decorate(text string, mapNum int, chiral Chirality) string {
	if mapNum == 0 && chiral == ChiralNone {
		return text
	}
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		text = "[" + text + "]"
	}
	body := text[1 : len(text)-1]
	if chiral != ChiralNone {
		body = insertChirality(body, chiral.Marker())
	}
	if mapNum > 0 {
		body += ":" + strconv.Itoa(mapNum)
	}
	return "[" + body + "]"
}

// insertChirality places marker right after the primitive naming the atom.
// In a plain conjunction that primitive is moved to the front first; bodies
// with other top-level operators get the marker as a prefix.
func insertChirality(body, marker string) string {
	if at := leadingElementEnd(body); at > 0 {
		return body[:at] + marker + body[at:]
	}
	if !strings.ContainsAny(body, ",;$(") {
		ops := strings.Split(body, "&")
		for i, op := range ops {
			at := identityEnd(op)
			if at == 0 {
				continue
			}
			moved := append([]string{op[:at] + marker + op[at:]}, ops[:i]...)
			return strings.Join(append(moved, ops[i+1:]...), "&")
		}
	}
	return marker + body
}

// identityEnd returns the length of the isotope and atom identity (element
// symbol, #n, *, A or a) that op starts with, or 0.
func identityEnd(op string) int {
	i := 0
	for i < len(op) && isDigit(op[i]) {
		i++
	}
	if i == len(op) {
		return 0
	}
	if op[i] == '#' {
		j := i + 1
		for j < len(op) && isDigit(op[j]) {
			j++
		}
		if j == i+1 {
			return 0
		}
		return j
	}
	if n := leadingElementEnd(op[i:]); n > 0 {
		return i + n
	}
	switch op[i] {
	case '*', 'A', 'a':
		return i + 1
	}
	return 0
}

// leadingElementEnd returns the length of the element symbol body starts with,
// or 0 when it starts with something else.
func leadingElementEnd(body string) int {
	size := 0
	switch {
	case len(body) >= 2 && isLower(body[1]) && IsElement(body[:2]):
		size = 2
	case len(body) >= 1 && IsElement(body[:1]):
		size = 1
	}
	if size == 0 || (size < len(body) && isDigit(body[size])) {
		return 0
	}
	return size
}

//Personal.AI order the ending
