// Package rule models a library of SMARTS rules keyed by their canonical form.
package rule

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/smartscanon/pkg/errors"
)

// Kind says whether a rule is a plain pattern or a reaction.
type Kind string

const (
	KindPattern  Kind = "pattern"
	KindReaction Kind = "reaction"
)

// KindOf guesses the kind from the text: anything with a reaction arrow is a
// reaction.
func KindOf(text string) Kind {
	if strings.Contains(text, ">") {
		return KindReaction
	}
	return KindPattern
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindPattern || k == KindReaction
}

// Rule is one entry of a rule library.
type Rule struct {
	ID        uuid.UUID `json:"id"`
	Library   string    `json:"library"`
	Name      string    `json:"name,omitempty"`
	Pattern   string    `json:"pattern"`
	Canonical string    `json:"canonical"`
	Kind      Kind      `json:"kind"`
	Embedding string    `json:"embedding"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRule builds a rule for library from the original pattern and its
// canonical form.
func NewRule(library, name, pattern, canonical, embedding string, tags []string) (*Rule, error) {
	r := &Rule{
		ID:        uuid.New(),
		Library:   strings.TrimSpace(library),
		Name:      strings.TrimSpace(name),
		Pattern:   pattern,
		Canonical: canonical,
		Kind:      KindOf(pattern),
		Embedding: embedding,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the invariants every stored rule must hold.
func (r *Rule) Validate() error {
	switch {
	case r.Library == "":
		return errors.New(errors.ErrCodeValidation, "rule library is required")
	case r.Pattern == "":
		return errors.New(errors.ErrCodeValidation, "rule pattern is required")
	case r.Canonical == "":
		return errors.New(errors.ErrCodeValidation, "rule canonical form is required")
	case r.Embedding == "":
		return errors.New(errors.ErrCodeValidation, "rule embedding is required")
	case !r.Kind.Valid():
		return errors.Newf(errors.ErrCodeValidation, "unknown rule kind %q", r.Kind)
	}
	return nil
}

// Key identifies a rule's canonical slot within its library.
func (r *Rule) Key() string {
	return r.Library + "\x00" + r.Embedding + "\x00" + r.Canonical
}

//Personal.AI order the ending
