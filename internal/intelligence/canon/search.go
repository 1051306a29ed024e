package canon

import (
	"fmt"
	"sort"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/intelligence/smarts"
	"github.com/turtacn/smartscanon/internal/intelligence/token"
	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

// Step is one atom of a traversal together with the bond it was entered by.
// The first step of a path has Bonded false.
type Step struct {
	Node   int
	Bonded bool
	Kind   smarts.BondKind
	Text   string
}

// Path is an ordered traversal of the graph.
type Path []Step

// Nodes returns the atom indices in path order.
func (p Path) Nodes() []int {
	out := make([]int, len(p))
	for i, s := range p {
		out[i] = s.Node
	}
	return out
}

// PathScore interleaves atom scores and incoming bond priorities in path
// order: [atom0, [2], atom1, [p01], ...].
type PathScore []token.Score

// Seq returns the score as a single sequence.
func (s PathScore) Seq() token.Score { return token.Seq(s...) }

func (s PathScore) String() string { return s.Seq().String() }

// extend returns a copy of s with one more atom and its incoming bond.
func (s PathScore) extend(atom token.Score, priority int) PathScore {
	out := make(PathScore, len(s), len(s)+2)
	copy(out, s)
	return append(out, atom, token.Seq(token.Scalar(float64(priority))))
}

// ComparePathScores orders two path scores item by item; a strict prefix
// orders first.
func ComparePathScores(a, b PathScore) int {
	return token.Compare(a.Seq(), b.Seq())
}

// ScoredPath is a complete traversal and its score.
type ScoredPath struct {
	Path  Path
	Score PathScore
}

// SearchStats counts the work done by the last Search.
type SearchStats struct {
	Starts    int
	Expanded  int
	Completed int
	Ties      int
}

// Stats returns the counters of the last Search.
func (g *Graph) Stats() SearchStats { return g.stats }

// junction is an immutable stack of branching steps.  Children share the
// stack of their parent; pushing allocates a new head.
type junction struct {
	step Step
	next *junction
}

func (j *junction) push(s Step) *junction { return &junction{step: s, next: j} }

type frontierEntry struct {
	step      Step
	path      Path
	visited   []bool
	count     int
	score     PathScore
	junctions *junction
}

// searchState carries the best score seen across every start atom.
type searchState struct {
	best     PathScore
	complete []ScoredPath
}

// offer updates best with a candidate child score.
func (st *searchState) offer(cand PathScore) {
	switch {
	case st.best == nil, len(cand) > len(st.best):
		st.best = cand
	case len(cand) < len(st.best):
	default:
		if ComparePathScores(cand, st.best) <= 0 {
			st.best = cand
		}
	}
}

// Search returns every Hamiltonian traversal whose path score ties with the
// minimum.  It fails with a no-path error when no traversal covers all atoms.
func (g *Graph) Search() ([]ScoredPath, error) {
	g.stats = SearchStats{}
	n := len(g.Nodes)
	if n == 0 {
		return nil, apperrors.NoHamiltonianPath("empty graph")
	}

	min := g.Nodes[0].Score
	for _, node := range g.Nodes[1:] {
		if token.Compare(node.Score, min) < 0 {
			min = node.Score
		}
	}

	st := &searchState{}
	for i := range g.Nodes {
		if token.Compare(g.Nodes[i].Score, min) != 0 {
			continue
		}
		g.stats.Starts++
		g.searchFrom(i, st)
	}

	if len(st.complete) == 0 {
		return nil, apperrors.NoHamiltonianPath("no traversal visits every atom").
			WithDetail(fmt.Sprintf("atoms=%d bonds=%d", n, g.NumEdges()))
	}

	for _, sp := range st.complete {
		g.logger.Debug("path", logging.Any("nodes", sp.Path.Nodes()), logging.String("score", sp.Score.String()))
	}
	sort.SliceStable(st.complete, func(i, j int) bool {
		return ComparePathScores(st.complete[i].Score, st.complete[j].Score) < 0
	})
	for _, sp := range st.complete {
		g.logger.Debug("sorted path", logging.Any("nodes", sp.Path.Nodes()), logging.String("score", sp.Score.String()))
	}

	top := st.complete[0].Score
	end := 1
	for end < len(st.complete) && ComparePathScores(st.complete[end].Score, top) == 0 {
		end++
	}
	g.stats.Completed = len(st.complete)
	g.stats.Ties = end
	return st.complete[:end], nil
}

func (g *Graph) searchFrom(start int, st *searchState) {
	n := len(g.Nodes)
	first := Step{Node: start}
	visited := make([]bool, n)
	visited[start] = true
	queue := []frontierEntry{{
		step:    first,
		path:    Path{first},
		visited: visited,
		count:   1,
		score:   PathScore{g.Nodes[start].Score, token.Seq(token.Scalar(AbsentBondPriority))},
	}}

	for len(queue) > 0 {
		e := queue[0]
		queue[0] = frontierEntry{}
		queue = queue[1:]
		g.stats.Expanded++

		if e.count == n {
			st.complete = append(st.complete, ScoredPath{Path: e.path, Score: e.score})
			continue
		}

		cur := e.step.Node
		var open []int
		for _, nb := range g.Nodes[cur].Neighbors {
			if !e.visited[nb] {
				open = append(open, nb)
			}
		}

		junctions := e.junctions
		if len(open) > 1 {
			junctions = junctions.push(e.step)
		}
		if len(open) == 0 {
			if junctions == nil {
				continue
			}
			queue = append(queue, frontierEntry{
				step:      junctions.step,
				path:      e.path,
				visited:   e.visited,
				count:     e.count,
				score:     e.score,
				junctions: junctions.next,
			})
			continue
		}

		cands := make([]PathScore, len(open))
		for i, nb := range open {
			edge, _ := g.Edge(cur, nb)
			cands[i] = e.score.extend(g.Nodes[nb].Score, edge.Priority)
			st.offer(cands[i])
		}

		for i, nb := range open {
			if ComparePathScores(cands[i], st.best) > 0 {
				continue
			}
			edge, _ := g.Edge(cur, nb)
			step := Step{Node: nb, Bonded: true, Kind: edge.Kind, Text: edge.Text}

			vis := make([]bool, n)
			copy(vis, e.visited)
			vis[nb] = true
			path := make(Path, len(e.path), len(e.path)+1)
			copy(path, e.path)

			queue = append(queue, frontierEntry{
				step:      step,
				path:      append(path, step),
				visited:   vis,
				count:     e.count + 1,
				score:     cands[i],
				junctions: junctions,
			})
		}
	}
}

//Personal.AI order the ending
