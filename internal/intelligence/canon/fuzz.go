package canon

import (
	"math/rand"
	"sort"

	"github.com/turtacn/smartscanon/internal/intelligence/smarts"
	"github.com/turtacn/smartscanon/internal/intelligence/token"
)

// DefaultSkeleton is the pattern RandomPattern uses when none is given.
const DefaultSkeleton = "[Cl][C][C][C][N][C][C][C][Br]"

// RandomPattern canonicalizes skeleton under an embedding drawn at random over
// the primitive vocabulary.  Different seeds exercise different tie orders.
func RandomPattern(skeleton string, mapping bool, rng *rand.Rand) (string, error) {
	if skeleton == "" {
		skeleton = DefaultSkeleton
	}
	res, err := CanonicalizePattern(skeleton,
		WithTokenEmbedding(token.RandomEmbedding(rng)),
		WithMapping(mapping),
	)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Relabel writes text again with its atoms in a random order.
func Relabel(text string, rng *rand.Rand) (string, error) {
	mol, err := smarts.Parse(text)
	if err != nil {
		return "", err
	}
	perm := rng.Perm(mol.NumAtoms())
	shuffled, err := smarts.Permute(mol, perm)
	if err != nil {
		return "", err
	}
	rng.Shuffle(len(shuffled.Bonds), func(i, j int) {
		shuffled.Bonds[i], shuffled.Bonds[j] = shuffled.Bonds[j], shuffled.Bonds[i]
	})
	fixBondOrderChirality(mol, shuffled, perm)
	return smarts.Serialize(shuffled, nil, nil)
}

// fixBondOrderChirality re-expresses every tag of dst relative to its
// shuffled bond list.
func fixBondOrderChirality(src, dst *smarts.Mol, perm []int) {
	for old, a := range src.Atoms {
		if a.Chirality == smarts.ChiralNone {
			continue
		}
		before := src.Neighbors(old)
		for i, nb := range before {
			before[i] = perm[nb]
		}
		idx := perm[old]
		dst.Atoms[idx].Chirality = fixChirality(a.Chirality, before, dst.Neighbors(idx))
	}
}

// InvarianceReport summarizes a relabeling run.
type InvarianceReport struct {
	Input     string
	Canonical string
	Rounds    int

	// Distinct holds every canonical text produced, sorted.  It has a single
	// entry when the canonical form did not depend on atom order.
	Distinct []string

	// Witness maps every non-baseline output to one relabeled input that
	// produced it.
	Witness map[string]string
}

// Invariant reports whether every relabeling produced the same text.
func (r *InvarianceReport) Invariant() bool { return len(r.Distinct) == 1 }

// CheckInvariance canonicalizes text and rounds random relabelings of it.
func CheckInvariance(text string, rounds int, rng *rand.Rand, opts ...Option) (*InvarianceReport, error) {
	base, err := CanonicalizePattern(text, opts...)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{base.Text: true}
	report := &InvarianceReport{
		Input:     text,
		Canonical: base.Text,
		Rounds:    rounds,
		Witness:   map[string]string{},
	}
	for i := 0; i < rounds; i++ {
		relabeled, err := Relabel(text, rng)
		if err != nil {
			return nil, err
		}
		res, err := CanonicalizePattern(relabeled, opts...)
		if err != nil {
			return nil, err
		}
		if !seen[res.Text] {
			seen[res.Text] = true
			report.Witness[res.Text] = relabeled
		}
	}
	for t := range seen {
		report.Distinct = append(report.Distinct, t)
	}
	sort.Strings(report.Distinct)
	return report, nil
}

//Personal.AI order the ending
