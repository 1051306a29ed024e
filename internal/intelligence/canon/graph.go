package canon

import (
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/intelligence/smarts"
	"github.com/turtacn/smartscanon/internal/intelligence/token"
)

// AbsentBondPriority pairs with the first atom of a path, which has no
// incoming bond.
const AbsentBondPriority = 2

var bondPriority = map[smarts.BondKind]int{
	smarts.BondUnspecified:   1000,
	smarts.BondSingle:        901,
	smarts.BondAromatic:      850,
	smarts.BondDouble:        802,
	smarts.BondTriple:        700,
	smarts.BondQuadruple:     20,
	smarts.BondQuintuple:     19,
	smarts.BondHextuple:      18,
	smarts.BondOneAndAHalf:   17,
	smarts.BondTwoAndAHalf:   16,
	smarts.BondThreeAndAHalf: 15,
	smarts.BondFourAndAHalf:  14,
	smarts.BondFiveAndAHalf:  13,
	smarts.BondIonic:         12,
	smarts.BondHydrogen:      11,
	smarts.BondThreeCenter:   10,
	smarts.BondDativeOne:     9,
	smarts.BondDative:        8,
	smarts.BondDativeL:       7,
	smarts.BondDativeR:       6,
	smarts.BondOther:         5,
	smarts.BondZero:          4,
}

// BondPriority returns the ordering priority of a bond kind.
func BondPriority(kind smarts.BondKind) int {
	if p, ok := bondPriority[kind]; ok {
		return p
	}
	return bondPriority[smarts.BondOther]
}

// AtomNode is one atom of a pattern graph.
type AtomNode struct {
	Index           int
	Symbol          string
	AtomicNum       int
	ExplicitValence int
	Aromatic        bool
	Hybridization   smarts.Hybridization

	// Query is the canonical bracketed primitive text without map number.
	Query     string
	Chirality smarts.Chirality
	Score     token.Score
	MapNum    int

	// Rank is the reciprocal of the leading scalar of Score.
	Rank float64

	// Neighbors holds the neighbor indices in the original bond order.
	Neighbors []int

	Primitives []token.Primitive
}

// BondEdge is a bond oriented from Begin to End.
type BondEdge struct {
	Begin    int
	End      int
	Kind     smarts.BondKind
	Dir      smarts.BondDir
	Text     string
	Priority int
}

// reversed returns the edge as seen from End.
func (e BondEdge) reversed() BondEdge {
	r := e
	r.Begin, r.End = e.End, e.Begin
	r.Text = smarts.FlipDirection(e.Text)
	switch e.Dir {
	case smarts.DirUp:
		r.Dir = smarts.DirDown
	case smarts.DirDown:
		r.Dir = smarts.DirUp
	}
	return r
}

// Graph is the scored pattern graph the canonical search runs on.
type Graph struct {
	Nodes []AtomNode

	edges  map[[2]int]BondEdge
	logger logging.Logger
	stats  SearchStats
}

// Edge returns the bond between a and b oriented from a to b.
func (g *Graph) Edge(a, b int) (BondEdge, bool) {
	e, ok := g.edges[[2]int{a, b}]
	return e, ok
}

// NumEdges returns the number of distinct bonds.
func (g *Graph) NumEdges() int { return len(g.edges) / 2 }

// BuildGraph scores every atom of mol under emb and records every bond with
// its priority.  mol is expected to be sanitized.
func BuildGraph(mol *smarts.Mol, emb *token.Embedding, opts ...Option) (*Graph, error) {
	cfg := newConfig(opts)
	if emb != nil {
		cfg.embedding = emb
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return buildGraph(mol, cfg)
}

func buildGraph(mol *smarts.Mol, cfg *config) (*Graph, error) {
	g := &Graph{
		Nodes:  make([]AtomNode, len(mol.Atoms)),
		edges:  make(map[[2]int]BondEdge, 2*len(mol.Bonds)),
		logger: cfg.logger,
	}

	tokOpts := []token.Option{token.WithRecursive(cfg.recursive())}
	for i, a := range mol.Atoms {
		tok, err := token.Canonicalize(a.Query, a.MapNum, cfg.embedding, tokOpts...)
		if err != nil {
			return nil, err
		}
		g.Nodes[i] = AtomNode{
			Index:           i,
			Symbol:          a.Symbol,
			AtomicNum:       a.AtomicNum,
			ExplicitValence: a.ExplicitValence,
			Aromatic:        a.Aromatic,
			Hybridization:   a.Hybridization,
			Query:           tok.Query,
			Chirality:       a.Chirality,
			Score:           tok.Score,
			MapNum:          tok.MapNum,
			Rank:            tok.Rank(),
			Primitives:      tok.Primitives,
		}
		g.logger.Debug("token embedding",
			logging.Int("atom", i),
			logging.String("input", a.Query),
			logging.String("canonical", tok.Query),
			logging.Any("score", tok.Score),
		)
	}

	for _, b := range mol.Bonds {
		if _, dup := g.edges[[2]int{b.Begin, b.End}]; dup {
			continue
		}
		kind := b.Kind
		if b.Matches(smarts.RefAromatic) && b.Matches(smarts.RefSingle) {
			kind = smarts.BondUnspecified
		}
		e := BondEdge{
			Begin:    b.Begin,
			End:      b.End,
			Kind:     kind,
			Dir:      b.Dir,
			Text:     b.Text,
			Priority: BondPriority(kind),
		}
		g.edges[[2]int{b.Begin, b.End}] = e
		g.edges[[2]int{b.End, b.Begin}] = e.reversed()
		g.Nodes[b.Begin].Neighbors = append(g.Nodes[b.Begin].Neighbors, b.End)
		g.Nodes[b.End].Neighbors = append(g.Nodes[b.End].Neighbors, b.Begin)
	}
	return g, nil
}

//Personal.AI order the ending
