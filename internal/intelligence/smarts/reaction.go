package smarts

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

// Component is one reaction component: its fragments, which were grouped in
// parentheses when there is more than one.
type Component []string

// Reaction is a reaction pattern split into its three zones.
type Reaction struct {
	Reactants []Component
	Agents    []Component
	Products  []Component
}

// SplitReaction splits a reaction pattern into zones, components and
// fragments.  It accepts "R>A>P", "R>>P" and "R>A>>P".
func SplitReaction(text string) (*Reaction, error) {
	var seps []int
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case '>':
			if depth == 0 && !(i > 0 && text[i-1] == '-') {
				seps = append(seps, i)
			}
		}
	}

	var zones [3]string
	switch {
	case len(seps) == 2 && seps[1] == seps[0]+1:
		zones = [3]string{text[:seps[0]], "", text[seps[1]+1:]}
	case len(seps) == 2:
		zones = [3]string{text[:seps[0]], text[seps[0]+1 : seps[1]], text[seps[1]+1:]}
	case len(seps) == 3 && seps[2] == seps[1]+1 && seps[1] > seps[0]+1:
		zones = [3]string{text[:seps[0]], text[seps[0]+1 : seps[1]], text[seps[2]+1:]}
	default:
		return nil, apperrors.MalformedReaction("expected reactants>agents>products").WithDetail(text)
	}

	r := &Reaction{}
	for i, dst := range []*[]Component{&r.Reactants, &r.Agents, &r.Products} {
		comps, err := splitComponents(zones[i])
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeMalformedReaction, "malformed reaction zone").WithDetail(zones[i])
		}
		*dst = comps
	}
	return r, nil
}

func splitComponents(zone string) ([]Component, error) {
	if zone == "" {
		return nil, nil
	}
	var out []Component
	for _, part := range splitTopLevel(zone, '.') {
		if part == "" {
			return nil, fmt.Errorf("empty component")
		}
		if part[0] == '(' && matchingParen(part, 0) == len(part)-1 {
			frags := SplitFragments(part[1 : len(part)-1])
			for _, f := range frags {
				if f == "" {
					return nil, fmt.Errorf("empty fragment in %q", part)
				}
			}
			out = append(out, Component(frags))
			continue
		}
		out = append(out, Component{part})
	}
	return out, nil
}

// SplitFragments splits a pattern on top-level '.'.
func SplitFragments(text string) []string {
	return splitTopLevel(text, '.')
}

func splitTopLevel(text string, sep byte) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, text[start:i])
				start = i + 1
			}
		}
	}
	return append(out, text[start:])
}

func matchingParen(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// mapSpan locates the atom-map number of every bracket atom in text order.
type mapSpan struct {
	start, end int // offsets of the digits
	num        int
}

func scanMaps(text string) ([]mapSpan, error) {
	var spans []mapSpan
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		depth, end := 0, -1
		for j := i; j < len(text) && end < 0; j++ {
			switch text[j] {
			case '[', '(':
				depth++
			case ']', ')':
				depth--
				if depth == 0 {
					end = j
				}
			}
		}
		if end < 0 {
			return nil, apperrors.MalformedPattern("unclosed '['").WithDetail(text)
		}
		k := end
		for k > i && isDigit(text[k-1]) {
			k--
		}
		if k < end && text[k-1] == ':' && !insideRecursive(text[i+1:k-1]) {
			n, _ := strconv.Atoi(text[k:end])
			spans = append(spans, mapSpan{start: k - 1, end: end, num: n})
		}
		// Nested brackets belong to recursive primitives and carry no maps of
		// their own at this level.
		i = end
	}
	return spans, nil
}

// insideRecursive reports whether prefix leaves a "$(" group open.
func insideRecursive(prefix string) bool {
	depth := 0
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth > 0
}

// MapNumbers returns the atom-map numbers of text in order of appearance.
func MapNumbers(text string) ([]int, error) {
	spans, err := scanMaps(text)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(spans))
	for i, s := range spans {
		out[i] = s.num
	}
	return out, nil
}

// RewriteMaps replaces every atom-map number n in text with fn(n), in text
// order.  A result of 0 removes the annotation.
func RewriteMaps(text string, fn func(int) int) (string, error) {
	spans, err := scanMaps(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	last := 0
	for _, s := range spans {
		sb.WriteString(text[last:s.start])
		if n := fn(s.num); n > 0 {
			sb.WriteString(":" + strconv.Itoa(n))
		}
		last = s.end
	}
	sb.WriteString(text[last:])
	return sb.String(), nil
}

//Personal.AI order the ending
