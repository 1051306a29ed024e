package token

import (
	"sort"
	"strconv"
	"sync"
)

var (
	vocabOnce sync.Once
	vocab     []string
)

// Vocabulary returns the sorted list of primitive texts the presets and the
// random embedding are defined over.  The slice is shared; do not modify it.
func Vocabulary() []string {
	vocabOnce.Do(func() {
		set := map[string]struct{}{}
		add := func(s string) { set[s] = struct{}{} }

		for _, s := range []string{
			"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne", "Na", "Mg", "Al", "Si", "P", "S",
			"Cl", "Ar", "K", "Ca", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn", "Ga", "Ge",
			"As", "Se", "Br", "Kr", "Rb", "Sr", "Zr", "Mo", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn",
			"Sb", "Te", "I", "Xe", "Cs", "Ba", "Pt", "Au", "Hg", "Tl", "Pb", "Bi",
			"b", "c", "n", "o", "p", "s", "se", "as", "te",
			"*", "a", "A", "h", "R", "r", "x",
		} {
			add(s)
		}
		for i := 1; i <= 53; i++ {
			add("#" + strconv.Itoa(i))
		}
		for i := 0; i <= 4; i++ {
			add("H" + strconv.Itoa(i))
			add("h" + strconv.Itoa(i))
			add("R" + strconv.Itoa(i))
			add("x" + strconv.Itoa(i))
		}
		for i := 0; i <= 6; i++ {
			add("D" + strconv.Itoa(i))
			add("X" + strconv.Itoa(i))
			add("v" + strconv.Itoa(i))
		}
		for i := 3; i <= 8; i++ {
			add("r" + strconv.Itoa(i))
		}
		for i := 0; i <= 3; i++ {
			add("+" + strconv.Itoa(i))
		}
		for i := 1; i <= 3; i++ {
			add("-" + strconv.Itoa(i))
		}

		vocab = make([]string, 0, len(set))
		for s := range set {
			vocab = append(vocab, s)
		}
		sort.Strings(vocab)
	})
	return vocab
}

// InVocabulary reports whether primitive is a known vocabulary entry.
func InVocabulary(primitive string) bool {
	v := Vocabulary()
	i := sort.SearchStrings(v, primitive)
	return i < len(v) && v[i] == primitive
}

//Personal.AI order the ending
