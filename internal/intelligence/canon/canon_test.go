package canon

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/intelligence/smarts"
	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

func canonical(t *testing.T, text string, opts ...Option) string {
	t.Helper()
	res, err := CanonicalizePattern(text, opts...)
	require.NoError(t, err, text)
	return res.Text
}

func TestCanonicalizePattern_Examples(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CN", "[N][C]"},
		{"NC", "[N][C]"},
		{"CCO", "[O][C][C]"},
		{"CC(O)N", "[N][C]([O])[C]"},
		{"C1CCCCC1", "[C]1[C][C][C][C][C]1"},
		{"c1ccccc1", "[c]1[c][c][c][c][c]1"},
		{"[CH3]", "[H3&C]"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, canonical(t, tt.in))
		})
	}
}

func TestCanonicalizePattern_Idempotent(t *testing.T) {
	for _, text := range []string{
		"CC(O)N",
		"C1CC2CCC1C2",
		"[N+](=O)[O-]",
		"c1ccc2ccccc2c1",
		"F/C=C/Cl",
		"[C;R;X3,X4]~[#7]",
		"F[C@H](Cl)Br",
		"[$(C=O)]N",
		"C.N.O",
	} {
		t.Run(text, func(t *testing.T) {
			once := canonical(t, text)
			assert.Equal(t, once, canonical(t, once))
		})
	}
}

func TestCanonicalizePattern_OutputParses(t *testing.T) {
	for _, text := range []string{"C1CC2CCC1C2", "[C:1]=[O:2]", "C(C)(C)(C)C", "F[C@@H](Cl)Br"} {
		out := canonical(t, text, WithMapping(true))
		_, err := smarts.Parse(out)
		assert.NoError(t, err, out)
	}
}

func TestCanonicalizePattern_ChainReversal(t *testing.T) {
	forward := canonical(t, "[Cl][C][C][C][N][C][C][C][Br]")
	backward := canonical(t, "[Br][C][C][C][N][C][C][C][Cl]")
	assert.Equal(t, forward, backward)
}

func TestCanonicalizePattern_FragmentOrder(t *testing.T) {
	assert.Equal(t, canonical(t, "[C].[N]"), canonical(t, "[N].[C]"))
	assert.Equal(t, "[N].[C]", canonical(t, "[C].[N]"))
}

func TestCanonicalizePattern_AromaticSingleBond(t *testing.T) {
	assert.Equal(t, canonical(t, "cc"), canonical(t, "c-c"))
	assert.Equal(t, canonical(t, "c1ccccc1"), canonical(t, "c1-c-c-c-c-c-1"))
}

func TestCanonicalizePattern_Chirality(t *testing.T) {
	ref := canonical(t, "F[C@H](Cl)Br")

	assert.Equal(t, ref, canonical(t, "Br[C@@H](Cl)F"))
	assert.Equal(t, ref, canonical(t, "[C@@H](F)(Cl)Br"))
	assert.Equal(t, ref, canonical(t, "Cl[C@@H](F)Br"))
	assert.NotEqual(t, ref, canonical(t, "F[C@@H](Cl)Br"))
}

func TestCanonicalizePattern_Mapping(t *testing.T) {
	assert.Equal(t, "[N][C]", canonical(t, "[C:2][N:1]"))
	assert.Equal(t, "[N:1][C:2]", canonical(t, "[C:2][N:1]", WithMapping(true)))
	assert.Equal(t, "[N][C:7]", canonical(t, "[C:7]N", WithMapping(true)))

	res, err := CanonicalizePattern("[C:2][N:1]", WithMapping(true))
	require.NoError(t, err)
	assert.Equal(t, "[N][C]", res.Unmapped)
}

func TestCanonicalizePattern_Errors(t *testing.T) {
	_, err := CanonicalizePattern("C(")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMalformedPattern), "%v", err)

	_, err = CanonicalizePattern("")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMalformedPattern), "%v", err)

	_, err = CanonicalizePattern("CC", WithEmbedding("nope"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnknownEmbedding), "%v", err)
}

func TestCanonicalizePattern_EmbeddingChangesStart(t *testing.T) {
	out := canonical(t, "CN", WithEmbeddingTable(map[string]float64{"C": 0.1, "N": 0.9}))
	assert.Equal(t, "[C][N]", out)
}

func TestCanonicalizePattern_ScoreOrdersFragments(t *testing.T) {
	res, err := CanonicalizePattern("O.N")
	require.NoError(t, err)
	require.Len(t, res.Fragments, 2)
	assert.Equal(t, "[N]", res.Fragments[0].Text)
	assert.LessOrEqual(t, ComparePathScores(res.Fragments[0].Score, res.Fragments[1].Score), 0)
	assert.True(t, res.Score.IsSeq())
	assert.Equal(t, 2, res.Score.Len())
}

func TestCompare(t *testing.T) {
	same, a, b, err := Compare("OCC", "CCO")
	require.NoError(t, err)
	assert.True(t, same)
	assert.Equal(t, a.Text, b.Text)

	same, _, _, err = Compare("CCO", "CCN")
	require.NoError(t, err)
	assert.False(t, same)
}

func TestRelabelInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, text := range []string{
		"CC(O)N",
		"C1CC2CCC1C2",
		"c1ccc(Cl)cc1C#N",
		"F[C@H](Cl)Br",
		"[NH2]C(=O)[C@@H](C)O",
		"F/C=C/Cl",
	} {
		t.Run(text, func(t *testing.T) {
			report, err := CheckInvariance(text, 12, rng)
			require.NoError(t, err)
			assert.True(t, report.Invariant(), "distinct outputs %v, witnesses %v", report.Distinct, report.Witness)
		})
	}
}

func TestRandomPattern_Deterministic(t *testing.T) {
	a, err := RandomPattern("", false, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := RandomPattern(DefaultSkeleton, false, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = smarts.Parse(a)
	assert.NoError(t, err)
}

func TestDebug_LogsAndMatches(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.NewLoggerFromCore(core)

	res, err := Debug("CC(O)N", logger)
	require.NoError(t, err)
	assert.Equal(t, canonical(t, "CC(O)N"), res.Text)

	assert.NotZero(t, logs.FilterMessage("token embedding").Len())
	assert.NotZero(t, logs.FilterMessage("sorted path").Len())
	assert.Equal(t, 1, logs.FilterMessage("fragment").Len())
}

//Personal.AI order the ending
