package indexer

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/cookcut/internal/keyword"
	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/recipeid"
	"github.com/hyperjump/cookcut/internal/vector"
)

// Metadata keys stored with every vector record.
const (
	MetaRecipeID    = "recipe_id"
	MetaType        = "type"
	MetaText        = "text"
	MetaChunkOrder  = "chunk_order"
	MetaTotalChunks = "total_chunks"
	MetaImageName   = "image_name"
	MetaRecipeTitle = "recipe_title"
)

// BuildRecords maps an embedded recipe onto vector records: one title record,
// one ingredients record and one record per instruction chunk, in that order.
func BuildRecords(er *models.EmbeddedRecipe) ([]vector.Record, error) {
	if er == nil || er.Normalized == nil {
		return nil, fmt.Errorf("recipe has not been normalized")
	}
	units := er.Normalized.Units()
	if len(units) != len(er.Embeddings) {
		return nil, fmt.Errorf("recipe %q: %d units but %d embeddings", er.Raw.Title, len(units), len(er.Embeddings))
	}
	rid := recipeid.RecipeID(er.Raw.Title, er.Raw.Row)
	title := strings.TrimSpace(er.Raw.Title)
	records := make([]vector.Record, len(units))
	for i, unit := range units {
		meta := map[string]interface{}{
			MetaRecipeID:    rid,
			MetaType:        string(unit.Kind),
			MetaText:        unit.Text,
			MetaRecipeTitle: title,
		}
		switch unit.Kind {
		case models.UnitTitle:
			if er.Raw.ImageName != "" {
				meta[MetaImageName] = er.Raw.ImageName
			}
		case models.UnitInstruction:
			meta[MetaChunkOrder] = unit.Index
			meta[MetaTotalChunks] = unit.Total
		}
		records[i] = vector.Record{
			ID:       recipeid.RecordID(rid, unit.Kind, unit.Index),
			Values:   er.Embeddings[i],
			Metadata: meta,
		}
	}
	return records, nil
}

// KeywordEntries returns the keyword index entries for a recipe. Entry IDs match record IDs.
func KeywordEntries(er *models.EmbeddedRecipe) []keyword.Entry {
	if er == nil || er.Normalized == nil {
		return nil
	}
	rid := recipeid.RecipeID(er.Raw.Title, er.Raw.Row)
	title := strings.TrimSpace(er.Raw.Title)
	units := er.Normalized.Units()
	entries := make([]keyword.Entry, len(units))
	for i, unit := range units {
		entries[i] = keyword.Entry{
			ID:       recipeid.RecordID(rid, unit.Kind, unit.Index),
			RecipeID: rid,
			Kind:     unit.Kind,
			Title:    title,
			Content:  unit.Text,
		}
	}
	return entries
}

// StoredRecipe returns the catalog row for a recipe.
func StoredRecipe(raw models.RawRecipe, now time.Time) *models.StoredRecipe {
	return &models.StoredRecipe{
		ID:           recipeid.RecipeID(raw.Title, raw.Row),
		Title:        strings.TrimSpace(raw.Title),
		Ingredients:  raw.PreferredIngredients(),
		Instructions: raw.Instructions,
		ImageName:    raw.ImageName,
		SourceRow:    raw.Row,
		UpdatedAt:    now,
	}
}
