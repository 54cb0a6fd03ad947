package indexer

import (
	"testing"
	"time"

	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/recipeid"
)

func embedded(t *testing.T, n *Normalizer, raw models.RawRecipe) *models.EmbeddedRecipe {
	t.Helper()
	norm, err := n.Normalize(raw)
	if err != nil {
		t.Fatal(err)
	}
	units := norm.Units()
	vecs := make([][]float32, len(units))
	for i := range units {
		vecs[i] = []float32{float32(i), 1}
	}
	return &models.EmbeddedRecipe{Raw: raw, Normalized: norm, Embeddings: vecs}
}

func TestBuildRecords_TomatoSoup(t *testing.T) {
	n := testNormalizer(t, 500, 100)
	raw := models.RawRecipe{
		Title:        "Tomato Soup",
		Ingredients:  []string{"tomato", "salt"},
		Instructions: "Boil water. Add tomato. Simmer 10 minutes.",
		ImageName:    "tomato-soup",
		Row:          4,
	}
	records, err := BuildRecords(embedded(t, n, raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	rid := recipeid.RecipeID("Tomato Soup", 4)
	wantIDs := []string{rid + "_title", rid + "_ingredients", rid + "_instruction_0"}
	for i, rec := range records {
		if rec.ID != wantIDs[i] {
			t.Errorf("record %d id = %q, want %q", i, rec.ID, wantIDs[i])
		}
		if rec.Metadata[MetaRecipeID] != rid {
			t.Errorf("record %d recipe_id = %v", i, rec.Metadata[MetaRecipeID])
		}
		if rec.Metadata[MetaRecipeTitle] != "Tomato Soup" {
			t.Errorf("record %d recipe_title = %v", i, rec.Metadata[MetaRecipeTitle])
		}
		if rec.Values[0] != float32(i) {
			t.Errorf("record %d got embedding %v", i, rec.Values)
		}
	}
	title := records[0].Metadata
	if title[MetaType] != "title" || title[MetaText] != "Recipe: Tomato Soup" || title[MetaImageName] != "tomato-soup" {
		t.Errorf("title metadata = %v", title)
	}
	if _, ok := records[1].Metadata[MetaImageName]; ok {
		t.Error("image_name should only be on the title record")
	}
	instr := records[2].Metadata
	if instr[MetaType] != "instruction" || instr[MetaChunkOrder] != 0 || instr[MetaTotalChunks] != 1 {
		t.Errorf("instruction metadata = %v", instr)
	}
}

func TestBuildRecords_ChunkOrderContiguous(t *testing.T) {
	n := testNormalizer(t, 40, 10)
	raw := models.RawRecipe{
		Title:        "Stew",
		Ingredients:  []string{"beef"},
		Instructions: "Brown the beef in batches. Add the onions and cook until soft. Pour in the stock. Simmer for two hours. Season and serve.",
	}
	records, err := BuildRecords(embedded(t, n, raw))
	if err != nil {
		t.Fatal(err)
	}
	instructions := records[2:]
	if len(instructions) < 2 {
		t.Fatalf("expected several instruction records, got %d", len(instructions))
	}
	seen := make(map[string]bool)
	for i, rec := range instructions {
		if rec.Metadata[MetaChunkOrder] != i {
			t.Errorf("chunk_order = %v, want %d", rec.Metadata[MetaChunkOrder], i)
		}
		if rec.Metadata[MetaTotalChunks] != len(instructions) {
			t.Errorf("total_chunks = %v, want %d", rec.Metadata[MetaTotalChunks], len(instructions))
		}
	}
	for _, rec := range records {
		if seen[rec.ID] {
			t.Errorf("duplicate record id %q", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestBuildRecords_EmbeddingCountMismatch(t *testing.T) {
	n := testNormalizer(t, 500, 100)
	er := embedded(t, n, models.RawRecipe{Title: "Toast", Instructions: "Toast it."})
	er.Embeddings = er.Embeddings[:2]
	if _, err := BuildRecords(er); err == nil {
		t.Fatal("expected error for missing embeddings")
	}
	if _, err := BuildRecords(nil); err == nil {
		t.Fatal("expected error for nil recipe")
	}
}

func TestKeywordEntriesMatchRecordIDs(t *testing.T) {
	n := testNormalizer(t, 500, 100)
	er := embedded(t, n, models.RawRecipe{Title: " Toast ", Ingredients: []string{"bread"}, Instructions: "Toast it."})
	records, err := BuildRecords(er)
	if err != nil {
		t.Fatal(err)
	}
	entries := KeywordEntries(er)
	if len(entries) != len(records) {
		t.Fatalf("entries = %d, records = %d", len(entries), len(records))
	}
	for i := range entries {
		if entries[i].ID != records[i].ID {
			t.Errorf("entry %d id %q != record id %q", i, entries[i].ID, records[i].ID)
		}
		if entries[i].Title != "Toast" {
			t.Errorf("entry title = %q", entries[i].Title)
		}
	}
}

func TestStoredRecipe(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := StoredRecipe(models.RawRecipe{
		Title:              "Toast",
		Ingredients:        []string{"1 slice bread"},
		CleanedIngredients: []string{"bread"},
		Instructions:       "Toast it.",
		Row:                2,
	}, now)
	if got.ID != recipeid.RecipeID("Toast", 2) {
		t.Errorf("id = %q", got.ID)
	}
	if len(got.Ingredients) != 1 || got.Ingredients[0] != "bread" {
		t.Errorf("ingredients = %v", got.Ingredients)
	}
	if !got.UpdatedAt.Equal(now) || got.SourceRow != 2 {
		t.Errorf("unexpected stored recipe %+v", got)
	}
}
