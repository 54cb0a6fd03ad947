// Package vector stores embedding records and answers filtered nearest-neighbour queries.
package vector

import "context"

// Record is one upsertable vector with its metadata.
// Metadata values are scalars: strings, numbers, or booleans.
type Record struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Match is a single query hit.
type Match struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// QueryOptions restricts a query.
// Filter is an equality match on metadata keys; an empty filter matches everything.
type QueryOptions struct {
	TopK   int
	Filter map[string]string
}

// Store is a key-value vector store with metadata filtering.
// Upsert is idempotent per record ID. Query returns matches by descending score.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, opts QueryOptions) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Dimensions() int
	Close() error
}
