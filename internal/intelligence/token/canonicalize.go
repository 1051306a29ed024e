// Package token canonicalizes the primitive expression of a single SMARTS atom
// and derives the comparable Score key the canonical path search orders atoms by.
package token

import (
	"sort"
	"strings"
)

// Token is the canonical form of one atom's primitive expression.
type Token struct {
	// Query is the canonical bracketed expression, without map number or
	// chirality, e.g. "[#6&H1]".
	Query string `json:"query"`

	// Score is always a sequence.
	Score Score `json:"score"`

	// MapNum is the atom-map number carried alongside, 0 when absent.
	MapNum int `json:"map_num,omitempty"`

	// Primitives lists the leaf primitives and the weight each received.
	Primitives []Primitive `json:"primitives,omitempty"`
}

// Primitive is a leaf of an atom expression and its embedding weight.
type Primitive struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// Rank is the reciprocal of the leading scalar of the score.
func (t Token) Rank() float64 { return t.Score.Rank() }

// RecursiveFunc canonicalizes the body of a recursive "$(...)" primitive.
type RecursiveFunc func(body string) (string, error)

// Option configures Canonicalize.
type Option func(*canonicalizer)

// WithRecursive installs fn to canonicalize recursive primitive bodies.  Without
// it bodies are kept verbatim.
func WithRecursive(fn RecursiveFunc) Option {
	return func(c *canonicalizer) { c.recursive = fn }
}

type canonicalizer struct {
	emb        *Embedding
	recursive  RecursiveFunc
	primitives []Primitive
}

// Canonicalize parses text, the primitive expression of one atom with or
// without the surrounding brackets, and returns its canonical form and score
// under emb.  A nil emb uses the default preset.
func Canonicalize(text string, mapNum int, emb *Embedding, opts ...Option) (Token, error) {
	if emb == nil {
		var err error
		if emb, err = LookupEmbedding(DefaultEmbedding); err != nil {
			return Token{}, err
		}
	}
	c := &canonicalizer{emb: emb}
	for _, o := range opts {
		o(c)
	}

	body := text
	if strings.HasPrefix(body, "[") && strings.HasSuffix(body, "]") {
		body = body[1 : len(body)-1]
	}
	root, err := parseExpr(body)
	if err != nil {
		return Token{}, err
	}
	root, err = c.normalize(root)
	if err != nil {
		return Token{}, err
	}

	score := root.score
	if !score.IsSeq() {
		score = Seq(score)
	}
	return Token{
		Query:      "[" + root.text + "]",
		Score:      score,
		MapNum:     mapNum,
		Primitives: c.primitives,
	}, nil
}

func (c *canonicalizer) normalize(n *node) (*node, error) {
	switch n.op {
	case opLeaf:
		if n.recursive != "" {
			body := n.recursive
			if c.recursive != nil {
				var err error
				if body, err = c.recursive(body); err != nil {
					return nil, err
				}
			}
			n.leaf = "$(" + body + ")"
		}
		n.text = n.leaf
		w := c.emb.Weight(n.leaf)
		n.score = Scalar(w)
		c.primitives = append(c.primitives, Primitive{Text: n.leaf, Weight: w})
		return n, nil

	case opNot:
		child, err := c.normalize(n.children[0])
		if err != nil {
			return nil, err
		}
		if child.op == opNot {
			return child.children[0], nil
		}
		n.children = []*node{child}
		n.text = "!" + child.text
		n.score = Seq(child.score, Scalar(float64(opNot)))
		return n, nil
	}

	children := make([]*node, 0, len(n.children))
	for _, ch := range n.children {
		nc, err := c.normalize(ch)
		if err != nil {
			return nil, err
		}
		children = append(children, nc)
	}

	op := n.op
	if op == opLowAnd && !hasOp(children, opOr) {
		op = opHighAnd
	}
	children = flatten(children, op)
	if op == opLowAnd {
		children = flatten(children, opHighAnd)
	}
	children = dedupe(children)
	sortNodes(children)
	if len(children) == 1 {
		return children[0], nil
	}

	texts := make([]string, len(children))
	scores := make([]Score, 0, len(children)+1)
	for i, ch := range children {
		texts[i] = ch.text
		scores = append(scores, ch.score)
	}
	scores = append(scores, Scalar(float64(op)))
	return &node{
		op:       op,
		children: children,
		text:     strings.Join(texts, op.separator()),
		score:    Seq(scores...),
	}, nil
}

func hasOp(nodes []*node, op opKind) bool {
	for _, n := range nodes {
		if n.op == op {
			return true
		}
	}
	return false
}

// flatten splices the children of nodes with the given operator into the list.
func flatten(nodes []*node, op opKind) []*node {
	out := make([]*node, 0, len(nodes))
	for _, n := range nodes {
		if n.op == op {
			out = append(out, n.children...)
			continue
		}
		out = append(out, n)
	}
	return out
}

func dedupe(nodes []*node) []*node {
	seen := make(map[string]struct{}, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if _, ok := seen[n.text]; ok {
			continue
		}
		seen[n.text] = struct{}{}
		out = append(out, n)
	}
	return out
}

// sortNodes orders operands by score, then by text.
func sortNodes(nodes []*node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if c := Compare(nodes[i].score, nodes[j].score); c != 0 {
			return c < 0
		}
		return nodes[i].text < nodes[j].text
	})
}

//Personal.AI order the ending
