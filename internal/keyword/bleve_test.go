package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/cookcut/internal/models"
)

func testEntries() []Entry {
	return []Entry{
		{ID: "a_title", RecipeID: "a", Kind: models.UnitTitle, Title: "Tomato Soup", Content: "Recipe: Tomato Soup"},
		{ID: "a_ingredients", RecipeID: "a", Kind: models.UnitIngredients, Title: "Tomato Soup", Content: "Ingredients:\n- tomato\n- salt"},
		{ID: "a_instruction_0", RecipeID: "a", Kind: models.UnitInstruction, Title: "Tomato Soup", Content: "Instructions Part 1/1:\nBoil water. Add tomato. Simmer 10 minutes."},
		{ID: "b_title", RecipeID: "b", Kind: models.UnitTitle, Title: "Garlic Pasta", Content: "Recipe: Garlic Pasta"},
		{ID: "b_instruction_0", RecipeID: "b", Kind: models.UnitInstruction, Title: "Garlic Pasta", Content: "Instructions Part 1/1:\nCook the pasta in salted water."},
	}
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() {
		_ = idx.Close()
	}()
	ctx := context.Background()

	if err := idx.IndexEntries(ctx, testEntries()); err != nil {
		t.Fatalf("IndexEntries: %v", err)
	}
	if n, _ := idx.DocCount(); n != 5 {
		t.Errorf("DocCount=%d, want 5", n)
	}

	results, err := idx.Search(ctx, "pasta", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results for \"pasta\"")
	}
	for _, r := range results {
		if r.RecipeID != "b" {
			t.Errorf("unexpected hit %+v", r)
		}
	}
}

func TestBleveIndex_KindFilter(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	_ = idx.IndexEntries(ctx, testEntries())

	results, err := idx.Search(ctx, "water", 10, &SearchOptions{Kind: models.UnitInstruction})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 instruction hits, got %d", len(results))
	}
	results, _ = idx.Search(ctx, "tomato", 10, &SearchOptions{Kind: models.UnitTitle})
	if len(results) != 1 || results[0].ID != "a_title" || results[0].Kind != models.UnitTitle {
		t.Errorf("expected only a_title, got %+v", results)
	}
	if len(results) == 1 && results[0].Title != "Tomato Soup" {
		t.Errorf("title field = %q", results[0].Title)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx, _ := NewBleveIndex("")
	defer idx.Close()
	ctx := context.Background()
	_ = idx.IndexEntries(ctx, testEntries())

	exact, _ := idx.Search(ctx, "tomatto", 10, nil)
	if len(exact) != 0 {
		t.Errorf("exact search should not match a typo, got %d", len(exact))
	}
	fuzzy, err := idx.Search(ctx, "tomatto", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) == 0 {
		t.Error("fuzzy search should tolerate one edit")
	}
}

func TestBleveIndex_ReopenAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, _ := NewBleveIndex(path)
	ctx := context.Background()
	_ = idx.IndexEntries(ctx, testEntries())
	_ = idx.Close()

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Delete(ctx, []string{"b_title", "b_instruction_0"}); err != nil {
		t.Fatal(err)
	}
	results, _ := reopened.Search(ctx, "pasta", 10, nil)
	if len(results) != 0 {
		t.Errorf("deleted entries should not match, got %d", len(results))
	}
}
