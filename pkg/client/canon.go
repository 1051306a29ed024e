package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/turtacn/smartscanon/pkg/types/canon"
)

// CanonicalizePattern returns the canonical form of one SMARTS pattern.
func (c *Client) CanonicalizePattern(ctx context.Context, pattern string, opts canon.Options) (*canon.PatternResponse, error) {
	var out canon.PatternResponse
	if err := c.post(ctx, "/api/v1/patterns/canonicalize", canon.PatternRequest{Pattern: pattern, Options: opts}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CanonicalizeReaction returns the canonical form of one reaction SMARTS.
func (c *Client) CanonicalizeReaction(ctx context.Context, reaction string, opts canon.Options) (*canon.ReactionResponse, error) {
	var out canon.ReactionResponse
	if err := c.post(ctx, "/api/v1/reactions/canonicalize", canon.ReactionRequest{Reaction: reaction, Options: opts}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compare reports whether two patterns share a canonical form.
func (c *Client) Compare(ctx context.Context, a, b string, opts canon.Options) (*canon.CompareResponse, error) {
	var out canon.CompareResponse
	if err := c.post(ctx, "/api/v1/patterns/compare", canon.CompareRequest{A: a, B: b, Options: opts}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Batch canonicalizes many items. With req.Async set, only JobID is filled
// and results arrive on the results topic.
func (c *Client) Batch(ctx context.Context, req *canon.BatchRequest) (*canon.BatchResponse, error) {
	var out canon.BatchResponse
	if err := c.post(ctx, "/api/v1/batch", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportRules loads rules into a library.
func (c *Client) ImportRules(ctx context.Context, req *canon.ImportRequest) (*canon.ImportResponse, error) {
	var out canon.ImportResponse
	if err := c.post(ctx, "/api/v1/rules/import", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LookupRules finds stored rules equivalent to pattern.
func (c *Client) LookupRules(ctx context.Context, pattern, embedding string) (*canon.LookupResponse, error) {
	q := url.Values{"pattern": {pattern}}
	if embedding != "" {
		q.Set("embedding", embedding)
	}
	var out canon.LookupResponse
	if _, err := c.get(ctx, "/api/v1/rules/lookup?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRules returns one page of a library.
func (c *Client) ListRules(ctx context.Context, library string, page, pageSize int) ([]canon.RuleView, *Pagination, error) {
	q := url.Values{}
	if library != "" {
		q.Set("library", library)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	var out []canon.RuleView
	env, err := c.get(ctx, "/api/v1/rules?"+q.Encode(), &out)
	if err != nil {
		return nil, nil, err
	}
	return out, env.Pagination, nil
}

//Personal.AI order the ending
