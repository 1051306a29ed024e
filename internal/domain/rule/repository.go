package rule

import "context"

// ListFilter selects a page of rules.
type ListFilter struct {
	Library string
	Kind    Kind
	Limit   int
	Offset  int
}

// Repository persists rules. Rules are unique on (library, embedding,
// canonical); inserting a second rule for the same slot is not an error for
// bulk loads but is for Create.
type Repository interface {
	// Create stores one rule. Returns ErrCodeRuleAlreadyExists on a
	// canonical collision.
	Create(ctx context.Context, r *Rule) error

	// BulkInsert stores rules, skipping canonical collisions, and returns how
	// many were written.
	BulkInsert(ctx context.Context, rules []*Rule) (int64, error)

	// FindByCanonical returns every rule, across libraries, with the given
	// canonical text.
	FindByCanonical(ctx context.Context, canonical string) ([]*Rule, error)

	// List returns a page of rules and the total matching count.
	List(ctx context.Context, filter ListFilter) ([]*Rule, int64, error)

	// Delete removes a rule. Returns ErrCodeRuleNotFound when absent.
	Delete(ctx context.Context, id string) error
}

//Personal.AI order the ending
