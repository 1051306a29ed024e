// Package canon defines the request and response payloads of the
// canonicalization API, shared by the HTTP server, the Go client and the
// queue worker.
package canon

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind names what a batch item or job canonicalizes.
type Kind string

const (
	KindPattern  Kind = "pattern"
	KindReaction Kind = "reaction"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindPattern || k == KindReaction
}

// Options overrides the server defaults for one call. Nil fields keep the
// configured default.
type Options struct {
	Embedding string `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	Mapping   *bool  `json:"mapping,omitempty" yaml:"mapping,omitempty"`
	Remap     *bool  `json:"remap,omitempty" yaml:"remap,omitempty"`
}

// Bool returns a pointer to b, for filling Options.
func Bool(b bool) *bool { return &b }

// PatternRequest asks for the canonical form of one SMARTS pattern.
type PatternRequest struct {
	Pattern string  `json:"pattern"`
	Options Options `json:"options,omitempty"`
}

// Validate checks that the request carries a pattern.
func (r PatternRequest) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return fmt.Errorf("pattern is required")
	}
	return nil
}

// FragmentInfo describes one canonicalized fragment.
type FragmentInfo struct {
	Text     string `json:"text" yaml:"text"`
	Score    string `json:"score" yaml:"score"`
	Expanded int    `json:"expanded" yaml:"expanded"`
	Ties     int    `json:"ties" yaml:"ties"`
}

// PatternResponse is the canonical form of a pattern.
type PatternResponse struct {
	Input     string         `json:"input" yaml:"input"`
	Canonical string         `json:"canonical" yaml:"canonical"`
	Unmapped  string         `json:"unmapped" yaml:"unmapped"`
	Embedding string         `json:"embedding" yaml:"embedding"`
	Fragments []FragmentInfo `json:"fragments,omitempty" yaml:"fragments,omitempty"`
	Cached    bool           `json:"cached" yaml:"cached"`
}

// ReactionRequest asks for the canonical form of a reaction pattern.
type ReactionRequest struct {
	Reaction string  `json:"reaction"`
	Options  Options `json:"options,omitempty"`
}

// Validate checks that the request carries a reaction.
func (r ReactionRequest) Validate() error {
	if strings.TrimSpace(r.Reaction) == "" {
		return fmt.Errorf("reaction is required")
	}
	return nil
}

// ReactionResponse is the canonical form of a reaction pattern.
type ReactionResponse struct {
	Input     string   `json:"input" yaml:"input"`
	Canonical string   `json:"canonical" yaml:"canonical"`
	Reactants []string `json:"reactants" yaml:"reactants"`
	Agents    []string `json:"agents,omitempty" yaml:"agents,omitempty"`
	Products  []string `json:"products" yaml:"products"`
	Embedding string   `json:"embedding" yaml:"embedding"`
	Cached    bool     `json:"cached" yaml:"cached"`
}

// CompareRequest asks whether two patterns share a canonical form.
type CompareRequest struct {
	A       string  `json:"a"`
	B       string  `json:"b"`
	Options Options `json:"options,omitempty"`
}

// Validate checks that both sides are present.
func (r CompareRequest) Validate() error {
	if strings.TrimSpace(r.A) == "" || strings.TrimSpace(r.B) == "" {
		return fmt.Errorf("both a and b are required")
	}
	return nil
}

// CompareResponse reports the outcome of a comparison.
type CompareResponse struct {
	Equal      bool   `json:"equal" yaml:"equal"`
	CanonicalA string `json:"canonical_a" yaml:"canonical_a"`
	CanonicalB string `json:"canonical_b" yaml:"canonical_b"`
}

// BatchItem is one entry of a batch.
type BatchItem struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Kind Kind   `json:"kind" yaml:"kind"`
	Text string `json:"text" yaml:"text"`
}

// BatchRequest canonicalizes many items with shared options. When Async is
// set the items are queued and the response carries only the job id.
type BatchRequest struct {
	Items   []BatchItem `json:"items"`
	Options Options     `json:"options,omitempty"`
	Async   bool        `json:"async,omitempty"`
}

// Validate checks the item list against limit; limit <= 0 disables the bound.
func (r BatchRequest) Validate(limit int) error {
	if len(r.Items) == 0 {
		return fmt.Errorf("items must not be empty")
	}
	if limit > 0 && len(r.Items) > limit {
		return fmt.Errorf("batch of %d items exceeds limit %d", len(r.Items), limit)
	}
	for i, it := range r.Items {
		if !it.Kind.Valid() {
			return fmt.Errorf("items[%d]: unknown kind %q", i, it.Kind)
		}
		if strings.TrimSpace(it.Text) == "" {
			return fmt.Errorf("items[%d]: text is required", i)
		}
	}
	return nil
}

// BatchResult is the outcome of one batch item. Exactly one of Canonical and
// Error is set.
type BatchResult struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Kind      Kind   `json:"kind" yaml:"kind"`
	Input     string `json:"input" yaml:"input"`
	Canonical string `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	ErrorCode string `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the item could not be canonicalized.
func (r BatchResult) Failed() bool { return r.Error != "" }

// BatchResponse holds per-item results in request order, or the job id of an
// asynchronous batch.
type BatchResponse struct {
	Results   []BatchResult `json:"results,omitempty"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	JobID     string        `json:"job_id,omitempty"`
}

// Job is the queued form of a batch.
type Job struct {
	JobID     uuid.UUID   `json:"job_id"`
	Kind      Kind        `json:"kind"`
	Items     []BatchItem `json:"items"`
	Options   Options     `json:"options,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewJob assigns a fresh job id to items.
func NewJob(kind Kind, items []BatchItem, opts Options) *Job {
	return &Job{
		JobID:     uuid.New(),
		Kind:      kind,
		Items:     items,
		Options:   opts,
		CreatedAt: time.Now().UTC(),
	}
}

// JobResult is published once a job has run.
type JobResult struct {
	JobID      uuid.UUID     `json:"job_id"`
	Results    []BatchResult `json:"results"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	FinishedAt time.Time     `json:"finished_at"`
}

// RuleInput is one rule of an import.
type RuleInput struct {
	Name    string   `json:"name" yaml:"name"`
	Pattern string   `json:"pattern" yaml:"pattern"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// RuleFile is the YAML layout of a rule library.
type RuleFile struct {
	Library   string      `json:"library" yaml:"library"`
	Embedding string      `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	Rules     []RuleInput `json:"rules" yaml:"rules"`
}

// ImportRequest loads rules into a library.
type ImportRequest struct {
	Library   string      `json:"library"`
	Embedding string      `json:"embedding,omitempty"`
	Rules     []RuleInput `json:"rules"`
}

// Validate checks that the import names a library and carries rules.
func (r ImportRequest) Validate() error {
	if strings.TrimSpace(r.Library) == "" {
		return fmt.Errorf("library is required")
	}
	if len(r.Rules) == 0 {
		return fmt.Errorf("rules must not be empty")
	}
	return nil
}

// DuplicateGroup lists rules that share one canonical form.
type DuplicateGroup struct {
	Canonical string   `json:"canonical" yaml:"canonical"`
	Names     []string `json:"names" yaml:"names"`
}

// RuleError reports a rule that failed to canonicalize.
type RuleError struct {
	Name    string `json:"name" yaml:"name"`
	Pattern string `json:"pattern" yaml:"pattern"`
	Code    string `json:"code" yaml:"code"`
	Error   string `json:"error" yaml:"error"`
}

// ImportResponse summarizes an import.
type ImportResponse struct {
	Library    string           `json:"library" yaml:"library"`
	Total      int              `json:"total" yaml:"total"`
	Imported   int64            `json:"imported" yaml:"imported"`
	Duplicates []DuplicateGroup `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Existing   int64            `json:"existing" yaml:"existing"`
	Errors     []RuleError      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// RuleView is the API form of a stored rule.
type RuleView struct {
	ID        string    `json:"id"`
	Library   string    `json:"library"`
	Name      string    `json:"name"`
	Pattern   string    `json:"pattern"`
	Canonical string    `json:"canonical"`
	Kind      Kind      `json:"kind"`
	Embedding string    `json:"embedding"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LookupResponse lists stored rules matching a pattern's canonical form.
type LookupResponse struct {
	Pattern   string     `json:"pattern"`
	Canonical string     `json:"canonical"`
	Rules     []RuleView `json:"rules"`
}

//Personal.AI order the ending
