// Package models defines core data structures for recipes, text units, and search results.
package models

import "time"

// RawRecipe is one row of the source dataset.
type RawRecipe struct {
	Title              string   `json:"Title" db:"title"`
	Ingredients        []string `json:"Ingredients" db:"ingredients"`
	CleanedIngredients []string `json:"Cleaned_Ingredients,omitempty" db:"cleaned_ingredients"`
	Instructions       string   `json:"Instructions" db:"instructions"`
	ImageName          string   `json:"Image_Name,omitempty" db:"image_name"`
	// Row is the position of the recipe in its source dataset.
	Row int `json:"-" db:"source_row"`
}

// PreferredIngredients returns the cleaned list when it has entries, otherwise the raw list.
func (r RawRecipe) PreferredIngredients() []string {
	if len(r.CleanedIngredients) > 0 {
		return r.CleanedIngredients
	}
	return r.Ingredients
}

// UnitKind identifies which part of a recipe a text unit came from.
// The string values are the ones persisted in the "type" metadata field.
type UnitKind string

const (
	UnitTitle       UnitKind = "title"
	UnitIngredients UnitKind = "ingredients"
	UnitInstruction UnitKind = "instruction"
)

// TextUnit is one embeddable piece of a recipe.
// Index and Total are only meaningful for instruction units.
type TextUnit struct {
	Kind  UnitKind `json:"kind"`
	Text  string   `json:"text"`
	Index int      `json:"index,omitempty"`
	Total int      `json:"total,omitempty"`
}

// NormalizedRecipe holds the text units derived from a RawRecipe.
type NormalizedRecipe struct {
	Title        TextUnit   `json:"title"`
	Ingredients  TextUnit   `json:"ingredients"`
	Instructions []TextUnit `json:"instructions"`
}

// Units returns all units in embedding order: title, ingredients, then instructions.
func (n *NormalizedRecipe) Units() []TextUnit {
	units := make([]TextUnit, 0, 2+len(n.Instructions))
	units = append(units, n.Title, n.Ingredients)
	return append(units, n.Instructions...)
}

// EmbeddedRecipe is a recipe ready to be turned into vector records.
// Embeddings is parallel to Normalized.Units().
type EmbeddedRecipe struct {
	Raw        RawRecipe
	Normalized *NormalizedRecipe
	Embeddings [][]float32
}

// StoredRecipe is the catalog form of a recipe, keyed by its derived ID.
type StoredRecipe struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Ingredients  []string  `json:"ingredients" db:"ingredients"`
	Instructions string    `json:"instructions" db:"instructions"`
	ImageName    string    `json:"image_name,omitempty" db:"image_name"`
	SourceRow    int       `json:"source_row" db:"source_row"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IngestRun summarizes one pipeline pass over a dataset.
type IngestRun struct {
	ID            string        `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Seen          int           `json:"seen"`
	Processed     int           `json:"processed"`
	Failed        int           `json:"failed"`
	Flushes       int           `json:"flushes"`
	FailedFlushes int           `json:"failed_flushes"`
	Records       int           `json:"records"`
	Duration      time.Duration `json:"duration_ns"`
}
