package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/cookcut/internal/models"
)

const (
	titlePrefix       = "Recipe: "
	ingredientsPrefix = "Ingredients:\n"
)

// Normalizer turns raw recipes into title, ingredients, and instruction text units.
type Normalizer struct {
	chunker *Chunker
}

// NewNormalizer creates a normalizer that splits instructions with chunker.
func NewNormalizer(chunker *Chunker) *Normalizer {
	return &Normalizer{chunker: chunker}
}

// Normalize renders the recipe's text units. Ingredients prefer the cleaned list
// when it has entries. Instructions always yield at least one unit.
func (n *Normalizer) Normalize(recipe models.RawRecipe) (*models.NormalizedRecipe, error) {
	title := strings.TrimSpace(recipe.Title)
	if title == "" {
		return nil, &NormalizationError{Row: recipe.Row, Err: ErrEmptyTitle}
	}

	var ing strings.Builder
	ing.WriteString(ingredientsPrefix)
	first := true
	for _, item := range recipe.PreferredIngredients() {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !first {
			ing.WriteByte('\n')
		}
		ing.WriteString("- ")
		ing.WriteString(item)
		first = false
	}

	chunks := n.chunker.Split(recipe.Instructions)
	instructions := make([]models.TextUnit, len(chunks))
	for i, chunk := range chunks {
		instructions[i] = models.TextUnit{
			Kind:  models.UnitInstruction,
			Text:  fmt.Sprintf("Instructions Part %d/%d:\n%s", i+1, len(chunks), chunk),
			Index: i,
			Total: len(chunks),
		}
	}

	return &models.NormalizedRecipe{
		Title:        models.TextUnit{Kind: models.UnitTitle, Text: titlePrefix + title},
		Ingredients:  models.TextUnit{Kind: models.UnitIngredients, Text: ing.String()},
		Instructions: instructions,
	}, nil
}
