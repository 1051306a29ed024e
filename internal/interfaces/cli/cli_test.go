package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/turtacn/smartscanon/pkg/types/canon"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "smartscanon", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"pattern", "reaction", "compare", "dedupe", "fuzz", "version"} {
		assert.True(t, names[want], want)
	}
	for _, flag := range []string{"config", "log-level", "output", "verbose", "no-color", "server"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestPattern_Golden(t *testing.T) {
	out, err := run(t, "", "pattern", "OC")
	require.NoError(t, err)
	golden(t).Assert(t, "pattern_text", []byte(out))
}

func TestPattern_Mapping(t *testing.T) {
	out, err := run(t, "", "pattern", "-m", "[C:4][O]")
	require.NoError(t, err)
	assert.Equal(t, "[O][C:4]\n", out)

	out, err = run(t, "", "pattern", "[C:4][O]")
	require.NoError(t, err)
	assert.Equal(t, "[O][C]\n", out)
}

func TestPattern_Verbose(t *testing.T) {
	out, err := run(t, "", "pattern", "-v", "OC.N")
	require.NoError(t, err)
	assert.Contains(t, out, "embedding: drugbank")
	assert.Equal(t, 2, strings.Count(out, "fragment:"))
}

func TestPattern_Stdin(t *testing.T) {
	out, err := run(t, "# comment\nOC\n\nCN\n", "pattern")
	require.NoError(t, err)
	assert.Equal(t, "[O][C]\n[N][C]\n", out)

	out, err = run(t, "OC\nC(\n", "pattern", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 inputs failed")
	assert.Contains(t, out, "[O][C]\n")
	assert.Contains(t, out, "error C(:")

	_, err = run(t, "\n", "pattern")
	assert.Error(t, err)
}

func TestPattern_Malformed(t *testing.T) {
	_, err := run(t, "", "pattern", "C(")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CANON_001")
}

func TestReaction_GoldenJSON(t *testing.T) {
	out, err := run(t, "", "-o", "json", "reaction", "C>O>N")
	require.NoError(t, err)
	golden(t).Assert(t, "reaction_json", []byte(out))
}

func TestReaction_YAML(t *testing.T) {
	out, err := run(t, "", "-o", "yaml", "reaction", "CN>>OC")
	require.NoError(t, err)

	var resp dto.ReactionResponse
	require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "[N][C]>>[O][C]", resp.Canonical)
	assert.Equal(t, []string{"[N][C]"}, resp.Reactants)
}

func TestCompare(t *testing.T) {
	out, err := run(t, "", "compare", "CN", "NC")
	require.NoError(t, err)
	assert.Equal(t, "equal [N][C]\n", out)

	out, err = run(t, "", "compare", "CN", "CO")
	assert.ErrorIs(t, err, ErrSilent)
	golden(t).Assert(t, "compare_different", []byte(out))

	_, err = run(t, "", "compare", "CN")
	assert.Error(t, err)
}

func TestInlineDiff(t *testing.T) {
	assert.Equal(t, "[O][C]", inlineDiff("[O][C]", "[O][C]", nil))
	assert.Equal(t, "[[-N-]{+O+}][C]", inlineDiff("[N][C]", "[O][C]", nil))
}

func TestDedupe_PlainText(t *testing.T) {
	out, err := run(t, "OC alcohol\nCO methanol\nCN amine\n", "dedupe", "-")
	require.NoError(t, err)
	golden(t).Assert(t, "dedupe_text", []byte(out))
}

func TestDedupe_YAMLFile(t *testing.T) {
	unique := filepath.Join(t.TempDir(), "unique.yaml")
	out, err := run(t, "", "-o", "json", "dedupe", "--write-unique", unique, "testdata/rules.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, `"library": "core"`)
	assert.Contains(t, out, `"total": 4`)
	assert.Contains(t, out, `"unique": 2`)
	assert.Contains(t, out, `"hydroxyl-reversed"`)
	assert.Contains(t, out, `"code": "CANON_001"`)

	data, err := os.ReadFile(unique)
	require.NoError(t, err)
	var f dto.RuleFile
	require.NoError(t, yaml.Unmarshal(data, &f))
	assert.Equal(t, "core", f.Library)
	require.Len(t, f.Rules, 2)
	assert.Equal(t, "hydroxyl", f.Rules[0].Name)
	assert.Equal(t, []string{"alcohol"}, f.Rules[0].Tags)
	assert.Equal(t, "amine", f.Rules[1].Name)
}

func TestReadRuleFile(t *testing.T) {
	f, err := readRuleFile("-", strings.NewReader("rules:\n  - pattern: CC\n"))
	require.NoError(t, err)
	require.Len(t, f.Rules, 1)
	assert.Equal(t, "CC", f.Rules[0].Pattern)

	f, err = readRuleFile("-", strings.NewReader("CC ethane group\n# skip\nCO\n"))
	require.NoError(t, err)
	require.Len(t, f.Rules, 2)
	assert.Equal(t, "ethane group", f.Rules[0].Name)
	assert.Empty(t, f.Rules[1].Name)

	_, err = readRuleFile("-", strings.NewReader("# nothing\n"))
	assert.Error(t, err)
	_, err = readRuleFile(filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)
}

func TestReadInputs(t *testing.T) {
	got, err := readInputs([]string{"CC", "CO"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"CC", "CO"}, got)

	got, err = readInputs([]string{"-"}, strings.NewReader("  CC \n#x\n\nCO\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"CC", "CO"}, got)

	_, err = readInputs(nil, strings.NewReader(""))
	assert.Error(t, err)
}

func TestFuzz(t *testing.T) {
	out, err := run(t, "", "fuzz", "--seed", "3", "--rounds", "5", "CCO", "CC(O)N")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "ok"))
	assert.Contains(t, out, "(5 rounds)")

	out, err = run(t, "", "fuzz", "--rounds", "1", "--random", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "random 1:")
	assert.Contains(t, out, "random 2:")

	first, err := run(t, "", "-o", "json", "fuzz", "--seed", "9", "--random", "3")
	require.NoError(t, err)
	second, err := run(t, "", "-o", "json", "fuzz", "--seed", "9", "--random", "3")
	require.NoError(t, err)
	assert.Equal(t, first, second, "runs are reproducible per seed")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "smartscanon dev"))

	out, err = run(t, "", "-o", "json", "version")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "", "-o", "xml", "version")
	assert.Error(t, err)
}

func TestPrinter_Colors(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatText, true)
	require.NoError(t, err)
	assert.Contains(t, p.Good("ok"), "\x1b[")

	p, err = NewPrinter(&buf, FormatText, false)
	require.NoError(t, err)
	assert.Equal(t, "ok", p.Good("ok"))

	assert.False(t, colorEnabled(&buf, false), "buffers are never terminals")
}

//Personal.AI order the ending
