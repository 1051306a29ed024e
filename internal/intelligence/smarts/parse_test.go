package smarts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

func TestParse_Chain(t *testing.T) {
	m, err := Parse("CCO")
	require.NoError(t, err)

	require.Equal(t, 3, m.NumAtoms())
	require.Len(t, m.Bonds, 2)
	assert.Equal(t, "O", m.Atoms[2].Query)
	assert.Equal(t, 8, m.Atoms[2].AtomicNum)
	assert.Equal(t, Bond{Begin: 1, End: 2, Kind: BondSingle}, m.Bonds[1])
	assert.True(t, m.Bonds[1].Implicit())
}

func TestParse_BracketAtom(t *testing.T) {
	m, err := Parse("[C@@H:3](F)[NH2+]")
	require.NoError(t, err)

	a := m.Atoms[0]
	assert.Equal(t, "CH", a.Query)
	assert.Equal(t, 3, a.MapNum)
	assert.Equal(t, "C", a.Symbol)
	assert.NotEqual(t, ChiralNone, a.Chirality)
	assert.Equal(t, "NH2+", m.Atoms[2].Query)
	assert.Equal(t, 0, m.Atoms[2].MapNum)
}

func TestParse_RecursiveBracket(t *testing.T) {
	m, err := Parse("[$(C=[O:5]):2]N")
	require.NoError(t, err)

	require.Equal(t, 2, m.NumAtoms())
	assert.Equal(t, "$(C=[O:5])", m.Atoms[0].Query)
	assert.Equal(t, 2, m.Atoms[0].MapNum)
}

func TestParse_BranchesAndRings(t *testing.T) {
	m, err := Parse("C1CC(O)C1")
	require.NoError(t, err)

	require.Equal(t, 5, m.NumAtoms())
	require.Len(t, m.Bonds, 5)
	ring := m.Bonds[4]
	assert.Equal(t, 0, ring.Begin)
	assert.Equal(t, 4, ring.End)
	assert.Equal(t, []int{1, 3, 4}, m.Neighbors(2))
}

func TestParse_PercentRing(t *testing.T) {
	m, err := Parse("C%12CC%12")
	require.NoError(t, err)
	_, ok := m.BondBetween(0, 2)
	assert.True(t, ok)
}

func TestParse_RingBondText(t *testing.T) {
	m, err := Parse("C=1CC1")
	require.NoError(t, err)
	idx, ok := m.BondBetween(0, 2)
	require.True(t, ok)
	assert.Equal(t, BondDouble, m.Bonds[idx].Kind)
}

func TestParse_Fragments(t *testing.T) {
	m, err := Parse("C.N")
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumAtoms())
	assert.Empty(t, m.Bonds)
}

func TestParse_BondKinds(t *testing.T) {
	tests := []struct {
		text string
		kind BondKind
		dir  BondDir
	}{
		{"C-C", BondSingle, DirNone},
		{"C=C", BondDouble, DirNone},
		{"C#C", BondTriple, DirNone},
		{"C$C", BondQuadruple, DirNone},
		{"c:c", BondAromatic, DirNone},
		{"C~C", BondUnspecified, DirNone},
		{"C/C", BondSingle, DirUp},
		{`C\C`, BondSingle, DirDown},
		{"N->C", BondDative, DirNone},
		{"N<-C", BondDativeL, DirNone},
		{"C@C", BondOther, DirNone},
		{"C-,:C", BondOther, DirNone},
		{"C!=C", BondOther, DirNone},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			m, err := Parse(tt.text)
			require.NoError(t, err)
			require.Len(t, m.Bonds, 1)
			assert.Equal(t, tt.kind, m.Bonds[0].Kind)
			assert.Equal(t, tt.dir, m.Bonds[0].Dir)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, text := range []string{
		"", "   ", "C(", "C)", "(C)", "C1CC", "C=", "=C", "[C", "C(=)C",
		"C11", "C>C", "[]", "[:1]", "C%1", "C1CC1C1", "C12CC12", "C=1CC#1", "C,C", "Cx",
	} {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMalformedPattern), err.Error())
		})
	}
}

func TestDescribeQuery(t *testing.T) {
	tests := []struct {
		query    string
		symbol   string
		num      int
		aromatic bool
	}{
		{"C&H1", "C", 6, false},
		{"c", "c", 6, true},
		{"#7", "N", 7, false},
		{"13C", "C", 6, false},
		{"H", "H", 1, false},
		{"2H", "H", 1, false},
		{"H+", "H", 1, false},
		{"Cl", "Cl", 17, false},
		{"se", "se", 34, true},
		{"a", "*", 0, true},
		{"*", "*", 0, false},
		{"$(CC)", "*", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			sym, num, arom := describeQuery(tt.query)
			assert.Equal(t, tt.symbol, sym)
			assert.Equal(t, tt.num, num)
			assert.Equal(t, tt.aromatic, arom)
		})
	}
}

func TestSanitize_AromaticSingleBecomesImplicit(t *testing.T) {
	explicit, err := Parse("c-c")
	require.NoError(t, err)
	implicit, err := Parse("cc")
	require.NoError(t, err)

	a, b := Sanitize(explicit), Sanitize(implicit)
	assert.Equal(t, b, a)
	assert.Equal(t, BondAromatic, a.Bonds[0].Kind)
	assert.Equal(t, "-", explicit.Bonds[0].Text, "input is not modified")
}

func TestSanitize_AliphaticSingleKept(t *testing.T) {
	m, err := Parse("C-C")
	require.NoError(t, err)
	s := Sanitize(m)
	assert.Equal(t, "-", s.Bonds[0].Text)
	assert.Equal(t, BondSingle, s.Bonds[0].Kind)
}

func TestSanitize_ValenceAndHybridization(t *testing.T) {
	m, err := Parse("C=CC#N.c1ccccc1.[Na]")
	require.NoError(t, err)
	s := Sanitize(m)

	assert.Equal(t, 2, s.Atoms[0].ExplicitValence)
	assert.Equal(t, HybridSP2, s.Atoms[0].Hybridization)
	assert.Equal(t, 3, s.Atoms[1].ExplicitValence)
	assert.Equal(t, 4, s.Atoms[2].ExplicitValence)
	assert.Equal(t, HybridSP, s.Atoms[2].Hybridization)
	assert.Equal(t, 3, s.Atoms[3].ExplicitValence)
	assert.Equal(t, HybridSP2, s.Atoms[4].Hybridization)
	assert.Equal(t, BondAromatic, s.Bonds[3].Kind)
	assert.Equal(t, HybridUnspecified, s.Atoms[10].Hybridization)
}

func TestBondMatches(t *testing.T) {
	tests := []struct {
		text     string
		single   bool
		aromatic bool
	}{
		{"", true, true},
		{"-", true, false},
		{":", false, true},
		{"~", true, true},
		{"-,:", true, true},
		{"=", false, false},
		{"@", false, false},
		{"!@", true, true},
		{"!-", false, true},
		{"-;!@", true, false},
		{"/", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			b := Bond{Text: tt.text}
			assert.Equal(t, tt.single, b.Matches(RefSingle))
			assert.Equal(t, tt.aromatic, b.Matches(RefAromatic))
		})
	}
}

func TestPermute(t *testing.T) {
	m, err := Parse("CNO")
	require.NoError(t, err)

	p, err := Permute(m, []int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, "N", p.Atoms[0].Query)
	assert.Equal(t, "O", p.Atoms[1].Query)
	assert.Equal(t, "C", p.Atoms[2].Query)
	assert.Equal(t, 2, p.Bonds[0].Begin)
	assert.Equal(t, 0, p.Bonds[0].End)

	_, err = Permute(m, []int{0, 0, 1})
	assert.Error(t, err)
	_, err = Permute(m, []int{0, 1})
	assert.Error(t, err)
}

//Personal.AI order the ending
