package smarts

// Sanitize returns a copy of m with bond kinds settled and derived atom
// properties filled in.
//
// Implicit bonds between two aromatic atoms become aromatic.  An explicit
// single bond between two aromatic atoms is rewritten as implicit, so "c-c"
// and "cc" sanitize to the same molecule.
func Sanitize(m *Mol) *Mol {
	out := m.Clone()
	for i := range out.Bonds {
		b := &out.Bonds[i]
		bothAromatic := out.Atoms[b.Begin].Aromatic && out.Atoms[b.End].Aromatic
		if b.Text == "-" && bothAromatic {
			b.Text = ""
		}
		if b.Text == "" {
			b.Kind = BondSingle
			if bothAromatic {
				b.Kind = BondAromatic
			}
		}
	}

	valence := make([]int, len(out.Atoms))
	doubles := make([]int, len(out.Atoms))
	triples := make([]int, len(out.Atoms))
	degree := make([]int, len(out.Atoms))
	for _, b := range out.Bonds {
		for _, a := range [2]int{b.Begin, b.End} {
			valence[a] += b.Kind.Order()
			degree[a]++
			switch b.Kind {
			case BondDouble:
				doubles[a]++
			case BondTriple:
				triples[a]++
			}
		}
	}
	for i := range out.Atoms {
		a := &out.Atoms[i]
		a.ExplicitValence = valence[i]
		switch {
		case a.Aromatic:
			a.Hybridization = HybridSP2
		case triples[i] > 0 || doubles[i] > 1:
			a.Hybridization = HybridSP
		case doubles[i] == 1:
			a.Hybridization = HybridSP2
		case degree[i] > 0:
			a.Hybridization = HybridSP3
		default:
			a.Hybridization = HybridUnspecified
		}
	}
	return out
}

//Personal.AI order the ending
