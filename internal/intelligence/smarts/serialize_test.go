package smarts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

func roundTrip(t *testing.T, text string) string {
	t.Helper()
	m, err := Parse(text)
	require.NoError(t, err, text)
	out, err := Serialize(m, nil, nil)
	require.NoError(t, err, text)
	return out
}

func TestSerialize_Shapes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CCO", "[C][C][O]"},
		{"CC(O)N", "[C][C]([O])[N]"},
		{"C1CCC1", "[C]1[C][C][C]1"},
		{"C=1CC1", "[C]=1[C][C]1"},
		{"C.N", "[C].[N]"},
		{"F/C=C/F", "[F]/[C]=[C]/[F]"},
		{"[C:1][N:2]", "[C:1][N:2]"},
		{"c-,:c", "[c]-,:[c]"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, roundTrip(t, tt.in))
		})
	}
}

func TestSerialize_IsFixedPoint(t *testing.T) {
	for _, text := range []string{
		"C1CC2CCC1C2", "[N:3]C(=O)[O-]", "c1ccc2ccccc2c1", "F[C@H](Cl)Br", "C[C@@]1(F)CCO1",
	} {
		twice := roundTrip(t, roundTrip(t, text))
		assert.Equal(t, twice, roundTrip(t, twice), text)
	}
}

func TestSerialize_ChiralityRoundTrip(t *testing.T) {
	assert.Equal(t, "[C@H]([F])([Cl])[Br]", roundTrip(t, "[C@H](F)(Cl)Br"))
	assert.Equal(t, "[F][C@H]([Cl])[Br]", roundTrip(t, "F[C@H](Cl)Br"))
	assert.Equal(t, "[F][C@@H]([Cl])[Br]", roundTrip(t, "F[C@@H](Cl)Br"))
}

func TestSerialize_ChiralityFollowsRelabeling(t *testing.T) {
	m, err := Parse("F[C@H](Cl)Br")
	require.NoError(t, err)

	// Put Br first: written as Br, C, then F and Cl as branches of C.
	p, err := Permute(m, []int{2, 1, 3, 0})
	require.NoError(t, err)
	out, err := Serialize(p, nil, nil)
	require.NoError(t, err)

	// Swapping the written order of the neighbors must invert the marker
	// exactly when the permutation of neighbors is odd.
	// F,H,Cl,Br (@) → Br,H,F,Cl: an even permutation, so the marker stays.
	assert.Equal(t, "[Br][C@H]([F])[Cl]", out)
}

func TestSerialize_DirectionFlipsAgainstOrientation(t *testing.T) {
	m, err := Parse("F/C=C/F")
	require.NoError(t, err)

	// Reverse the atom order; each "/" is now written End→Begin.
	p, err := Permute(m, []int{3, 2, 1, 0})
	require.NoError(t, err)
	out, err := Serialize(p, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `[F]\[C]=[C]\[F]`, out)
}

func TestSerialize_CustomTexts(t *testing.T) {
	m, err := Parse("CN")
	require.NoError(t, err)
	out, err := Serialize(m, []string{"[#6]", "[#7]"}, []string{"~"})
	require.NoError(t, err)
	assert.Equal(t, "[#6]~[#7]", out)

	_, err = Serialize(m, []string{"[#6]"}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSerializationFault))
}

func TestSerialize_TwoDigitRingLabels(t *testing.T) {
	// A wheel: hub 0 bonded to rim atoms 1..11, rim chained 1-2-...-11.
	m := &Mol{}
	for i := 0; i < 12; i++ {
		m.Atoms = append(m.Atoms, Atom{Query: "C"})
	}
	for i := 1; i < 12; i++ {
		m.Bonds = append(m.Bonds, Bond{Begin: 0, End: i, Kind: BondSingle})
	}
	for i := 1; i < 11; i++ {
		m.Bonds = append(m.Bonds, Bond{Begin: i, End: i + 1, Kind: BondSingle})
	}

	out, err := Serialize(m, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "%10")

	back, err := Parse(out)
	require.NoError(t, err)
	assert.Len(t, back.Bonds, len(m.Bonds))
}

func TestDecorate(t *testing.T) {
	assert.Equal(t, "[C]", decorate("[C]", 0, ChiralNone))
	assert.Equal(t, "[C@&H1:4]", decorate("[C&H1]", 4, ChiralCCW))
	assert.Equal(t, "[C@@&H3]", decorate("[H3&C]", 0, ChiralCW))
	assert.Equal(t, "[Cl:2]", decorate("Cl", 2, ChiralNone))
	assert.Equal(t, "[13C@]", decorate("[13C]", 0, ChiralCCW))
}

func TestDecorate_MarkerFollowsAtomIdentity(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		chiral Chirality
		want   string
	}{
		{"atomic number after hydrogens", "[H1&#6]", ChiralCW, "[#6@@&H1]"},
		{"atomic number with implicit and", "[#6H]", ChiralCW, "[#6@@H]"},
		{"identity in the middle", "[X4&c&H1]", ChiralCCW, "[c@&X4&H1]"},
		{"isotope", "[2H&X1]", ChiralCCW, "[2H@&X1]"},
		{"any atom", "[D3&*]", ChiralCCW, "[*@&D3]"},
		{"aliphatic wildcard", "[H1&A]", ChiralCW, "[A@@&H1]"},
		{"no identity", "[X4&H1]", ChiralCW, "[@@X4&H1]"},
		{"disjunction kept in place", "[H1&#6,N]", ChiralCW, "[@@H1&#6,N]"},
		{"recursion kept in place", "[H1&$(CO)]", ChiralCW, "[@@H1&$(CO)]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decorate(tt.body, 0, tt.chiral))
		})
	}
}

func TestSerialize_AtomicNumberChirality(t *testing.T) {
	in, err := Parse("[#6@@H](F)(Cl)Br")
	require.NoError(t, err)
	out := roundTrip(t, "[#6@@H](F)(Cl)Br")
	assert.True(t, strings.HasPrefix(out, "[#6@@"), out)

	back, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, in.Atoms[0].Chirality, back.Atoms[0].Chirality)
	assert.Equal(t, out, roundTrip(t, out))
}

func TestRingLabel(t *testing.T) {
	assert.Equal(t, "9", ringLabel(9))
	assert.Equal(t, "%12", ringLabel(12))
}

func TestSameParity(t *testing.T) {
	assert.True(t, sameParity([]int{1, 2, 3, 4}, []int{1, 2, 3, 4}))
	assert.False(t, sameParity([]int{1, 2, 3, 4}, []int{2, 1, 3, 4}))
	assert.True(t, sameParity([]int{1, 2, 3, 4}, []int{2, 3, 1, 4}))
	assert.True(t, sameParity([]int{1, 2}, []int{1, 2, 3}))
}

func TestWithImplicit(t *testing.T) {
	assert.Equal(t, []int{5, -1, 6, 7}, withImplicit([]int{5, 6, 7}, true))
	assert.Equal(t, []int{-1, 5, 6, 7}, withImplicit([]int{5, 6, 7}, false))
	assert.Equal(t, []int{1, 2, 3, 4}, withImplicit([]int{1, 2, 3, 4}, true))
}

//Personal.AI order the ending
