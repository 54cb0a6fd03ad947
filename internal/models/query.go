package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery wraps every validation failure of a SearchQuery.
var ErrInvalidQuery = errors.New("invalid search query")

// Search modes.
const (
	ModeSemantic = "semantic"
	ModeKeyword  = "keyword"
	ModeHybrid   = "hybrid"
)

// SearchQuery is a request against the recipe index.
type SearchQuery struct {
	Query string `json:"query"`
	// Kind restricts results to one unit kind: all, title, ingredients, instructions.
	Kind  string `json:"kind,omitempty"`
	TopK  int    `json:"top_k,omitempty"`
	Mode  string `json:"mode,omitempty"`
	// IncludeRecipe attaches the catalog entry to each hit when a catalog is available.
	IncludeRecipe bool `json:"include_recipe,omitempty"`
}

// Validate checks the query and fills defaults.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	if _, err := ParseKindFilter(q.Kind); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if q.TopK <= 0 {
		q.TopK = 5
	}
	if q.TopK > 100 {
		q.TopK = 100
	}
	switch q.Mode {
	case "":
		q.Mode = ModeSemantic
	case ModeSemantic, ModeKeyword, ModeHybrid:
	default:
		return fmt.Errorf("%w: unknown search mode %q", ErrInvalidQuery, q.Mode)
	}
	return nil
}

// ParseKindFilter maps a user-facing kind filter onto the stored unit kind.
// An empty result means no filter. "instructions" and "instruction" both select
// instruction chunks.
func ParseKindFilter(kind string) (UnitKind, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "all":
		return "", nil
	case "title":
		return UnitTitle, nil
	case "ingredients", "ingredient":
		return UnitIngredients, nil
	case "instructions", "instruction":
		return UnitInstruction, nil
	default:
		return "", fmt.Errorf("unknown kind filter %q", kind)
	}
}

// SearchResult is one hit with the stored metadata of its record.
type SearchResult struct {
	ID            string                 `json:"id"`
	RecipeID      string                 `json:"recipe_id"`
	Kind          UnitKind               `json:"type"`
	Text          string                 `json:"text"`
	Score         float64                `json:"score"`
	KeywordScore  float64                `json:"keyword_score,omitempty"`
	SemanticScore float64                `json:"semantic_score,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	Recipe        *StoredRecipe          `json:"recipe,omitempty"`
	Rank          int                    `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query     string          `json:"query"`
	Kind      string          `json:"kind"`
	Mode      string          `json:"mode"`
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
}
