// Package canon computes a canonical, input-order independent serialization
// of SMARTS patterns and reaction patterns.
//
// A fragment is parsed and sanitized, every atom's primitive expression is
// canonicalized into a comparable score, and a branch-and-bound search picks
// the Hamiltonian traversal with the smallest interleaved atom/bond score.
// The pattern is then rebuilt in that order and written back out.
package canon

import (
	"sort"
	"strings"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/intelligence/smarts"
	"github.com/turtacn/smartscanon/internal/intelligence/token"
	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

// Option configures a canonicalization call.
type Option func(*config)

type config struct {
	embeddingName string
	embedding     *token.Embedding
	mapping       bool
	remap         bool
	verbose       bool
	logger        logging.Logger
}

// WithEmbedding selects a named embedding preset.
func WithEmbedding(name string) Option {
	return func(c *config) {
		c.embeddingName = name
		c.embedding = nil
	}
}

// WithEmbeddingTable scores primitives with a caller supplied weight table.
// Primitives missing from the table weigh 0.
func WithEmbeddingTable(weights map[string]float64) Option {
	return func(c *config) {
		c.embedding = token.NewEmbedding("custom", weights)
	}
}

// WithTokenEmbedding scores primitives with emb.
func WithTokenEmbedding(emb *token.Embedding) Option {
	return func(c *config) {
		c.embedding = emb
	}
}

// WithMapping keeps atom-map numbers in the output.
func WithMapping(on bool) Option {
	return func(c *config) { c.mapping = on }
}

// WithRemap renumbers atom maps of a reaction in canonical order.
func WithRemap(on bool) Option {
	return func(c *config) { c.remap = on }
}

// WithVerbose logs the intermediate steps at Debug level.
func WithVerbose(logger logging.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
			c.verbose = true
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		embeddingName: token.DefaultEmbedding,
		remap:         true,
		logger:        logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolve loads the embedding; an unknown preset fails here, before any graph
// is built.
func (c *config) resolve() error {
	if c.embedding != nil {
		return nil
	}
	emb, err := token.LookupEmbedding(c.embeddingName)
	if err != nil {
		return err
	}
	c.embedding = emb
	return nil
}

// recursive canonicalizes the body of a $(...) primitive with the same
// settings as the enclosing pattern.
func (c *config) recursive() token.RecursiveFunc {
	return func(body string) (string, error) {
		res, err := canonicalizePattern(body, c)
		if err != nil {
			return "", err
		}
		return res.Text, nil
	}
}

// FragmentResult is the canonical form of one connected fragment.
type FragmentResult struct {
	Text     string
	Unmapped string
	Score    PathScore
	Stats    SearchStats
}

// PatternResult is the canonical form of a whole pattern.
type PatternResult struct {
	Text     string
	Unmapped string

	// Score is the sequence of the sorted fragment path scores.
	Score     token.Score
	Fragments []FragmentResult
}

// CanonicalizePattern returns the canonical text of a SMARTS pattern.
// Fragments separated by '.' are canonicalized independently and sorted.
func CanonicalizePattern(text string, opts ...Option) (*PatternResult, error) {
	cfg := newConfig(opts)
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return canonicalizePattern(text, cfg)
}

func canonicalizePattern(text string, cfg *config) (*PatternResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.MalformedPattern("empty pattern")
	}
	var frags []FragmentResult
	for _, f := range smarts.SplitFragments(text) {
		fr, err := canonicalizeFragment(f, cfg)
		if err != nil {
			return nil, err
		}
		frags = append(frags, *fr)
	}
	sortFragments(frags)

	res := &PatternResult{Fragments: frags}
	texts := make([]string, len(frags))
	plain := make([]string, len(frags))
	scores := make([]token.Score, len(frags))
	for i, f := range frags {
		texts[i], plain[i], scores[i] = f.Text, f.Unmapped, f.Score.Seq()
	}
	res.Text = strings.Join(texts, ".")
	res.Unmapped = strings.Join(plain, ".")
	res.Score = token.Seq(scores...)
	return res, nil
}

func canonicalizeFragment(text string, cfg *config) (*FragmentResult, error) {
	if text == "" {
		return nil, apperrors.MalformedPattern("empty fragment")
	}
	mol, err := smarts.Parse(text)
	if err != nil {
		return nil, err
	}
	mol = smarts.Sanitize(mol)
	if cfg.verbose {
		sanitized, _ := smarts.Serialize(mol, nil, nil)
		cfg.logger.Debug("fragment", logging.String("input", text), logging.String("sanitized", sanitized))
	}

	g, err := buildGraph(mol, cfg)
	if err != nil {
		return nil, err
	}
	paths, err := g.Search()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeNoHamiltonianPath, "canonical search failed").WithDetail(text)
	}
	rec, chosen, err := g.choose(paths, cfg.mapping)
	if err != nil {
		return nil, err
	}
	stats := g.Stats()
	cfg.logger.Debug("canonical fragment",
		logging.String("text", rec.Text),
		logging.String("score", chosen.Score.String()),
		logging.Int("expanded", stats.Expanded),
		logging.Int("ties", stats.Ties),
	)
	return &FragmentResult{
		Text:     rec.Text,
		Unmapped: rec.Unmapped,
		Score:    chosen.Score,
		Stats:    stats,
	}, nil
}

// sortFragments orders fragments by path score, then unmapped text, then
// requested text.
func sortFragments(frags []FragmentResult) {
	sort.SliceStable(frags, func(i, j int) bool {
		return lessKeys(frags[i].Score.Seq(), frags[j].Score.Seq(),
			frags[i].Unmapped, frags[j].Unmapped, frags[i].Text, frags[j].Text)
	})
}

func lessKeys(a, b token.Score, ua, ub, ta, tb string) bool {
	if c := token.Compare(a, b); c != 0 {
		return c < 0
	}
	if ua != ub {
		return ua < ub
	}
	return ta < tb
}

// Compare canonicalizes a and b with the same options and reports whether
// they describe the same pattern.
func Compare(a, b string, opts ...Option) (bool, *PatternResult, *PatternResult, error) {
	cfg := newConfig(opts)
	if err := cfg.resolve(); err != nil {
		return false, nil, nil, err
	}
	ra, err := canonicalizePattern(a, cfg)
	if err != nil {
		return false, nil, nil, err
	}
	rb, err := canonicalizePattern(b, cfg)
	if err != nil {
		return false, nil, nil, err
	}
	return ra.Text == rb.Text, ra, rb, nil
}

//Personal.AI order the ending
