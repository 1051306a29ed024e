package canon

import (
	"fmt"
	"strings"

	"github.com/turtacn/smartscanon/internal/intelligence/smarts"
	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

// Reconstruction is a graph rebuilt in the order of one path.
type Reconstruction struct {
	Mol *smarts.Mol

	// Text is the serialization requested by the caller: mapped when mapping
	// was asked for, otherwise equal to Unmapped.
	Text     string
	Unmapped string
}

// Reconstruct renumbers the atoms of g in path order, rebuilds the bonds from
// the edge table and fixes every stereocenter tag for its new neighbor order.
func (g *Graph) Reconstruct(path Path, mapping bool) (Reconstruction, error) {
	n := len(g.Nodes)
	if len(path) != n {
		return Reconstruction{}, apperrors.New(apperrors.ErrCodeSerializationFault, "path does not cover the graph").
			WithDetail(fmt.Sprintf("path=%d atoms=%d", len(path), n))
	}

	pos := make([]int, n)
	for i := range pos {
		pos[i] = -1
	}
	for i, s := range path {
		if s.Node < 0 || s.Node >= n || pos[s.Node] >= 0 {
			return Reconstruction{}, apperrors.New(apperrors.ErrCodeSerializationFault, "path repeats or leaves the graph").
				WithDetail(fmt.Sprint(path.Nodes()))
		}
		pos[s.Node] = i
	}

	mol := &smarts.Mol{Atoms: make([]smarts.Atom, n)}
	atomText := make([]string, n)
	for i, s := range path {
		node := g.Nodes[s.Node]
		atomText[i] = node.Query
		mol.Atoms[i] = smarts.Atom{
			Query:           strings.TrimSuffix(strings.TrimPrefix(node.Query, "["), "]"),
			Chirality:       node.Chirality,
			Symbol:          node.Symbol,
			AtomicNum:       node.AtomicNum,
			Aromatic:        node.Aromatic,
			ExplicitValence: node.ExplicitValence,
			Hybridization:   node.Hybridization,
		}
		if mapping {
			mol.Atoms[i].MapNum = node.MapNum
		}
	}

	seen := make(map[[2]int]bool, g.NumEdges())
	var bondText []string
	for _, s := range path {
		u := s.Node
		for _, v := range g.Nodes[u].Neighbors {
			key := [2]int{min(u, v), max(u, v)}
			if seen[key] {
				continue
			}
			seen[key] = true
			e, _ := g.Edge(u, v)
			mol.Bonds = append(mol.Bonds, smarts.Bond{
				Begin: pos[u],
				End:   pos[v],
				Kind:  e.Kind,
				Dir:   e.Dir,
				Text:  e.Text,
			})
			bondText = append(bondText, e.Text)
		}
	}

	for i, s := range path {
		tag := mol.Atoms[i].Chirality
		if tag == smarts.ChiralNone {
			continue
		}
		newOrder := mol.Neighbors(i)
		for j, nb := range newOrder {
			newOrder[j] = path[nb].Node
		}
		mol.Atoms[i].Chirality = fixChirality(tag, g.Nodes[s.Node].Neighbors, newOrder)
	}

	unmapped := mol
	if mapping {
		unmapped = mol.Clone()
		for i := range unmapped.Atoms {
			unmapped.Atoms[i].MapNum = 0
		}
	}
	plain, err := smarts.Serialize(unmapped, atomText, bondText)
	if err != nil {
		return Reconstruction{}, err
	}
	rec := Reconstruction{Mol: mol, Text: plain, Unmapped: plain}
	if mapping {
		if rec.Text, err = smarts.Serialize(mol, atomText, bondText); err != nil {
			return Reconstruction{}, err
		}
	}
	return rec, nil
}

// choose reconstructs every path of a tie group and keeps the one with the
// smallest unmapped text, then the smallest requested text.
func (g *Graph) choose(paths []ScoredPath, mapping bool) (Reconstruction, ScoredPath, error) {
	var (
		best     Reconstruction
		bestPath ScoredPath
	)
	for i, sp := range paths {
		rec, err := g.Reconstruct(sp.Path, mapping)
		if err != nil {
			return Reconstruction{}, ScoredPath{}, err
		}
		if i == 0 || rec.Unmapped < best.Unmapped || (rec.Unmapped == best.Unmapped && rec.Text < best.Text) {
			best, bestPath = rec, sp
		}
	}
	return best, bestPath, nil
}

//Personal.AI order the ending
