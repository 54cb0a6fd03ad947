// Package recipeid derives deterministic identifiers for recipes and their vector records.
package recipeid

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/hyperjump/cookcut/internal/models"
)

// Length is the number of hex characters kept from the digest.
const Length = 16

// RecipeID returns a stable ID for a recipe from its title and source row.
// Surrounding whitespace in the title is ignored; the row keeps recipes that
// share a title apart.
func RecipeID(title string, row int) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(title)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(row)))
	return hex.EncodeToString(h.Sum(nil))[:Length]
}

// RecordID returns the vector record ID for one unit of a recipe:
// {rid}_title, {rid}_ingredients or {rid}_instruction_{index}.
func RecordID(recipeID string, kind models.UnitKind, index int) string {
	if kind == models.UnitInstruction {
		return recipeID + "_" + string(kind) + "_" + strconv.Itoa(index)
	}
	return recipeID + "_" + string(kind)
}

// Parse splits a record ID back into its recipe ID and unit kind.
// ok is false when the ID does not follow the record scheme.
func Parse(recordID string) (recipeID string, kind models.UnitKind, ok bool) {
	if len(recordID) <= Length+1 || recordID[Length] != '_' {
		return "", "", false
	}
	recipeID = recordID[:Length]
	rest := recordID[Length+1:]
	switch {
	case rest == string(models.UnitTitle):
		return recipeID, models.UnitTitle, true
	case rest == string(models.UnitIngredients):
		return recipeID, models.UnitIngredients, true
	case strings.HasPrefix(rest, string(models.UnitInstruction)+"_"):
		if _, err := strconv.Atoi(strings.TrimPrefix(rest, string(models.UnitInstruction)+"_")); err != nil {
			return "", "", false
		}
		return recipeID, models.UnitInstruction, true
	}
	return "", "", false
}
