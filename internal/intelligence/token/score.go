package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Score is an immutable comparable key: either a scalar or an ordered sequence
// of Scores nested to any depth.  The zero value is the scalar 0.
type Score struct {
	value float64
	items []Score
	seq   bool
}

// Scalar returns a scalar Score.
func Scalar(v float64) Score {
	return Score{value: v}
}

// Seq returns a sequence Score holding a copy of items.
func Seq(items ...Score) Score {
	cp := make([]Score, len(items))
	copy(cp, items)
	return Score{items: cp, seq: true}
}

// IsSeq reports whether s is a sequence.
func (s Score) IsSeq() bool { return s.seq }

// Value returns the scalar value; it is 0 for sequences.
func (s Score) Value() float64 { return s.value }

// Len returns the number of items of a sequence, or 0 for a scalar.
func (s Score) Len() int { return len(s.items) }

// At returns the i-th item of a sequence.
func (s Score) At(i int) Score { return s.items[i] }

// Items returns a copy of the sequence items.
func (s Score) Items() []Score {
	cp := make([]Score, len(s.items))
	copy(cp, s.items)
	return cp
}

// Lead unwraps nested sequences leftward until a scalar is reached.  An empty
// sequence leads with 0.
func (s Score) Lead() float64 {
	for s.seq {
		if len(s.items) == 0 {
			return 0
		}
		s = s.items[0]
	}
	return s.value
}

// Rank is the reciprocal of Lead.  A zero lead ranks as +Inf.
func (s Score) Rank() float64 {
	lead := s.Lead()
	if lead == 0 {
		return math.Inf(1)
	}
	return 1 / lead
}

// Compare is a total order over Scores.
//
// Scalars compare numerically.  Sequences compare item by item and the first
// difference decides; when one sequence is a strict prefix of the other the
// shorter one orders first.  Across shapes a scalar orders before any
// sequence, whatever its contents.
func Compare(a, b Score) int {
	switch {
	case !a.seq && !b.seq:
		switch {
		case a.value < b.value:
			return -1
		case a.value > b.value:
			return 1
		default:
			return 0
		}
	case !a.seq:
		return -1
	case !b.seq:
		return 1
	}
	n := len(a.items)
	if len(b.items) < n {
		n = len(b.items)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a.items[i], b.items[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a.items) < len(b.items):
		return -1
	case len(a.items) > len(b.items):
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and b compare equal.
func (s Score) Equal(o Score) bool { return Compare(s, o) == 0 }

// String renders the score as nested brackets, e.g. "[0.1, [901]]".
func (s Score) String() string {
	var sb strings.Builder
	s.write(&sb)
	return sb.String()
}

func (s Score) write(sb *strings.Builder) {
	if !s.seq {
		sb.WriteString(strconv.FormatFloat(s.value, 'g', -1, 64))
		return
	}
	sb.WriteByte('[')
	for i, it := range s.items {
		if i > 0 {
			sb.WriteString(", ")
		}
		it.write(sb)
	}
	sb.WriteByte(']')
}

// MarshalJSON encodes scalars as numbers and sequences as arrays.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.seq {
		return json.Marshal(s.value)
	}
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

// UnmarshalJSON accepts a number or an arbitrarily nested array of numbers.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []Score
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*s = Score{items: items, seq: true}
		if s.items == nil {
			s.items = []Score{}
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("token: score must be a number or an array: %w", err)
	}
	*s = Score{value: v}
	return nil
}

//Personal.AI order the ending
