// Package keyword provides full-text search over recipe text units.
package keyword

import (
	"context"

	"github.com/hyperjump/cookcut/internal/models"
)

// Entry is one indexed text unit. ID matches the vector record ID.
type Entry struct {
	ID       string          `json:"id"`
	RecipeID string          `json:"recipe_id"`
	Kind     models.UnitKind `json:"kind"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
}

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// Kind restricts hits to one unit kind; empty means all kinds.
	Kind models.UnitKind
	// TitleBoost multiplies the score contribution from matches in the recipe title.
	// Values > 1 make title matches rank higher. Use 1.0 for no boost.
	TitleBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2). Default 2.
	Fuzziness int
}

// Index defines keyword indexing and search.
type Index interface {
	IndexEntries(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, ids []string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ID       string
	RecipeID string
	Kind     models.UnitKind
	Title    string
	Content  string
	Score    float64
}
