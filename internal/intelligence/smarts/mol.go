// Package smarts is a small SMARTS toolkit: it parses pattern text into atoms
// and bonds, sanitizes the result and writes it back out.  It does no
// substructure matching and no chemical validation.
package smarts

import (
	"fmt"
)

// Chirality is the tetrahedral tag of an atom.  A Mol stores it relative to
// the order of the atom's bonds in Mol.Bonds; Parse and Serialize convert from
// and to the order the neighbors are written in.
type Chirality int

const (
	ChiralNone Chirality = iota
	ChiralCW             // @@
	ChiralCCW            // @
)

func (c Chirality) String() string {
	switch c {
	case ChiralCW:
		return "CW"
	case ChiralCCW:
		return "CCW"
	default:
		return "NONE"
	}
}

// Marker returns the SMARTS text for the tag.
func (c Chirality) Marker() string {
	switch c {
	case ChiralCW:
		return "@@"
	case ChiralCCW:
		return "@"
	default:
		return ""
	}
}

// Invert swaps CW and CCW.
func (c Chirality) Invert() Chirality {
	switch c {
	case ChiralCW:
		return ChiralCCW
	case ChiralCCW:
		return ChiralCW
	default:
		return c
	}
}

// Hybridization is derived from the bonds around an atom during Sanitize.
type Hybridization int

const (
	HybridUnspecified Hybridization = iota
	HybridSP
	HybridSP2
	HybridSP3
)

func (h Hybridization) String() string {
	switch h {
	case HybridSP:
		return "SP"
	case HybridSP2:
		return "SP2"
	case HybridSP3:
		return "SP3"
	default:
		return "UNSPECIFIED"
	}
}

// Atom is one pattern atom.
type Atom struct {
	// Query is the primitive expression without brackets, map number or
	// chirality, e.g. "C&H1" or "c".
	Query string

	// MapNum is the atom-map number, 0 when absent.
	MapNum int

	Chirality Chirality

	// Symbol and AtomicNum describe the leading element of the query; "*"
	// and 0 when the query does not start with one.
	Symbol    string
	AtomicNum int
	Aromatic  bool

	ExplicitValence int
	Hybridization   Hybridization
}

// Bond connects Begin to End.  Text is the literal bond expression, empty for
// an implicit bond.
type Bond struct {
	Begin int
	End   int
	Kind  BondKind
	Dir   BondDir
	Text  string
}

// Implicit reports whether the bond was written without a bond symbol.
func (b Bond) Implicit() bool { return b.Text == "" }

// Other returns the endpoint opposite to atom.
func (b Bond) Other(atom int) int {
	if b.Begin == atom {
		return b.End
	}
	return b.Begin
}

// Mol is a parsed pattern: atoms, and bonds in creation order.
type Mol struct {
	Atoms []Atom
	Bonds []Bond
}

// NumAtoms returns the number of atoms.
func (m *Mol) NumAtoms() int { return len(m.Atoms) }

// Neighbors returns the neighbors of atom in bond-list order.
func (m *Mol) Neighbors(atom int) []int {
	var out []int
	for _, b := range m.Bonds {
		switch atom {
		case b.Begin:
			out = append(out, b.End)
		case b.End:
			out = append(out, b.Begin)
		}
	}
	return out
}

// BondBetween returns the index of the bond joining a and b.
func (m *Mol) BondBetween(a, b int) (int, bool) {
	for i, bd := range m.Bonds {
		if (bd.Begin == a && bd.End == b) || (bd.Begin == b && bd.End == a) {
			return i, true
		}
	}
	return -1, false
}

// Clone returns a deep copy of m.
func (m *Mol) Clone() *Mol {
	out := &Mol{
		Atoms: make([]Atom, len(m.Atoms)),
		Bonds: make([]Bond, len(m.Bonds)),
	}
	copy(out.Atoms, m.Atoms)
	copy(out.Bonds, m.Bonds)
	return out
}

// AtomTexts returns the default bracketed text of every atom.
func (m *Mol) AtomTexts() []string {
	out := make([]string, len(m.Atoms))
	for i, a := range m.Atoms {
		out[i] = "[" + a.Query + "]"
	}
	return out
}

// BondTexts returns the literal text of every bond.
func (m *Mol) BondTexts() []string {
	out := make([]string, len(m.Bonds))
	for i, b := range m.Bonds {
		out[i] = b.Text
	}
	return out
}

// Permute relabels the atoms of m so that atom i becomes atom perm[i].  Bond
// order and orientation are kept, so chirality tags stay valid.
func Permute(m *Mol, perm []int) (*Mol, error) {
	n := len(m.Atoms)
	if len(perm) != n {
		return nil, fmt.Errorf("smarts: permutation has %d entries for %d atoms", len(perm), n)
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p < 0 || p >= n || seen[p] {
			return nil, fmt.Errorf("smarts: %v is not a permutation", perm)
		}
		seen[p] = true
	}
	out := &Mol{
		Atoms: make([]Atom, n),
		Bonds: make([]Bond, len(m.Bonds)),
	}
	for i, a := range m.Atoms {
		out.Atoms[perm[i]] = a
	}
	for i, b := range m.Bonds {
		b.Begin, b.End = perm[b.Begin], perm[b.End]
		out.Bonds[i] = b
	}
	return out, nil
}

//Personal.AI order the ending
