package canon

import (
	"sort"
	"strings"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/intelligence/smarts"
	"github.com/turtacn/smartscanon/internal/intelligence/token"
)

// ComponentResult is one canonical reaction component.
type ComponentResult struct {
	Text     string
	Unmapped string

	// Score is the sequence of the component's fragment path scores.
	Score     token.Score
	Fragments []FragmentResult
}

// Zone is the ordered component list of reactants, agents or products.
type Zone []ComponentResult

// Texts returns the component texts in order.
func (z Zone) Texts() []string {
	out := make([]string, len(z))
	for i, c := range z {
		out[i] = c.Text
	}
	return out
}

// ReactionResult is the canonical form of a reaction pattern.
type ReactionResult struct {
	Text      string
	Reactants Zone
	Agents    Zone
	Products  Zone
}

// CanonicalizeReaction returns the canonical text of a reaction pattern.
func CanonicalizeReaction(text string, opts ...Option) (string, error) {
	res, err := CanonicalizeReactionDetail(text, opts...)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// CanonicalizeReactionDetail canonicalizes a reaction pattern and returns
// every zone with its sorted components.
func CanonicalizeReactionDetail(text string, opts ...Option) (*ReactionResult, error) {
	cfg := newConfig(opts)
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	rxn, err := smarts.SplitReaction(text)
	if err != nil {
		return nil, err
	}

	res := &ReactionResult{}
	for _, z := range []struct {
		in  []smarts.Component
		out *Zone
	}{
		{rxn.Reactants, &res.Reactants},
		{rxn.Agents, &res.Agents},
		{rxn.Products, &res.Products},
	} {
		zone, err := canonicalizeZone(z.in, cfg)
		if err != nil {
			return nil, err
		}
		*z.out = zone
	}

	if cfg.remap {
		if err := remap(res); err != nil {
			return nil, err
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(res.Reactants.Texts(), "."))
	if len(res.Agents) > 0 {
		sb.WriteByte('>')
		sb.WriteString(strings.Join(res.Agents.Texts(), "."))
	}
	sb.WriteString(">>")
	sb.WriteString(strings.Join(res.Products.Texts(), "."))
	res.Text = sb.String()

	cfg.logger.Debug("canonical reaction", logging.String("input", text), logging.String("text", res.Text))
	return res, nil
}

func canonicalizeZone(comps []smarts.Component, cfg *config) (Zone, error) {
	zone := make(Zone, 0, len(comps))
	for _, comp := range comps {
		c, err := canonicalizeComponent(comp, cfg)
		if err != nil {
			return nil, err
		}
		zone = append(zone, c)
	}
	sort.SliceStable(zone, func(i, j int) bool {
		return lessKeys(zone[i].Score, zone[j].Score, zone[i].Unmapped, zone[j].Unmapped, zone[i].Text, zone[j].Text)
	})
	return zone, nil
}

func canonicalizeComponent(comp smarts.Component, cfg *config) (ComponentResult, error) {
	frags := make([]FragmentResult, 0, len(comp))
	for _, f := range comp {
		fr, err := canonicalizeFragment(f, cfg)
		if err != nil {
			return ComponentResult{}, err
		}
		frags = append(frags, *fr)
	}
	sortFragments(frags)

	texts := make([]string, len(frags))
	plain := make([]string, len(frags))
	scores := make([]token.Score, len(frags))
	for i, f := range frags {
		texts[i], plain[i], scores[i] = f.Text, f.Unmapped, f.Score.Seq()
	}
	c := ComponentResult{
		Text:      strings.Join(texts, "."),
		Unmapped:  strings.Join(plain, "."),
		Score:     token.Seq(scores...),
		Fragments: frags,
	}
	if len(frags) > 1 {
		c.Text = "(" + c.Text + ")"
		c.Unmapped = "(" + c.Unmapped + ")"
	}
	return c, nil
}

// remap numbers atom maps 1, 2, ... in order of first appearance across
// reactants, agents and products.  Map 0 stays absent.
func remap(res *ReactionResult) error {
	next := 1
	index := map[int]int{}
	assign := func(n int) int {
		if n == 0 {
			return 0
		}
		if m, ok := index[n]; ok {
			return m
		}
		index[n] = next
		next++
		return index[n]
	}
	for _, zone := range []Zone{res.Reactants, res.Agents, res.Products} {
		for i := range zone {
			text, err := smarts.RewriteMaps(zone[i].Text, assign)
			if err != nil {
				return err
			}
			zone[i].Text = text
		}
	}
	return nil
}

//Personal.AI order the ending
