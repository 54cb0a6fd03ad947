package indexer

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/hyperjump/cookcut/internal/models"
)

func testNormalizer(t *testing.T, maxLength, overlap int) *Normalizer {
	t.Helper()
	return NewNormalizer(mustChunker(t, maxLength, overlap))
}

func TestNormalizer_TomatoSoup(t *testing.T) {
	n := testNormalizer(t, 500, 100)
	got, err := n.Normalize(models.RawRecipe{
		Title:        "Tomato Soup",
		Ingredients:  []string{"tomato", "salt"},
		Instructions: "Boil water. Add tomato. Simmer 10 minutes.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Title.Text != "Recipe: Tomato Soup" || got.Title.Kind != models.UnitTitle {
		t.Errorf("title unit = %+v", got.Title)
	}
	if got.Ingredients.Text != "Ingredients:\n- tomato\n- salt" {
		t.Errorf("ingredients unit = %q", got.Ingredients.Text)
	}
	if len(got.Instructions) != 1 {
		t.Fatalf("expected 1 instruction unit, got %d", len(got.Instructions))
	}
	want := "Instructions Part 1/1:\nBoil water. Add tomato. Simmer 10 minutes."
	if got.Instructions[0].Text != want {
		t.Errorf("instruction unit = %q, want %q", got.Instructions[0].Text, want)
	}
}

func TestNormalizer_PrefersCleanedIngredients(t *testing.T) {
	n := testNormalizer(t, 500, 100)
	got, _ := n.Normalize(models.RawRecipe{
		Title:              "Salad",
		Ingredients:        []string{"1 head of lettuce, washed"},
		CleanedIngredients: []string{"lettuce", " ", "olive oil"},
	})
	if got.Ingredients.Text != "Ingredients:\n- lettuce\n- olive oil" {
		t.Errorf("ingredients unit = %q", got.Ingredients.Text)
	}
}

func TestNormalizer_EmptyInstructionsStillYieldOneUnit(t *testing.T) {
	n := testNormalizer(t, 500, 100)
	got, err := n.Normalize(models.RawRecipe{Title: "Mystery"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Instructions) != 1 {
		t.Fatalf("expected 1 instruction unit, got %d", len(got.Instructions))
	}
	if got.Instructions[0].Text != "Instructions Part 1/1:\n" {
		t.Errorf("instruction unit = %q", got.Instructions[0].Text)
	}
}

func TestNormalizer_LongInstructions(t *testing.T) {
	n := testNormalizer(t, 100, 20)
	instructions := strings.Repeat("Whisk the eggs with sugar until pale. ", 12)
	got, err := n.Normalize(models.RawRecipe{Title: "Sponge", Instructions: instructions})
	if err != nil {
		t.Fatal(err)
	}
	total := len(got.Instructions)
	if total < 2 {
		t.Fatalf("expected several units, got %d", total)
	}
	if want := len(mustChunker(t, 100, 20).Split(instructions)); total != want {
		t.Errorf("units = %d, chunks = %d", total, want)
	}
	for i, u := range got.Instructions {
		if u.Index != i || u.Total != total {
			t.Errorf("unit %d has index %d total %d", i, u.Index, u.Total)
		}
		prefix := "Instructions Part " + strconv.Itoa(i+1) + "/" + strconv.Itoa(total) + ":\n"
		if !strings.HasPrefix(u.Text, prefix) {
			t.Errorf("unit %d text %q missing prefix %q", i, u.Text, prefix)
		}
	}
}

func TestNormalizer_EmptyTitle(t *testing.T) {
	n := testNormalizer(t, 500, 100)
	_, err := n.Normalize(models.RawRecipe{Title: "  ", Row: 7})
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
	if nerr.Row != 7 || !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("unexpected error %+v", nerr)
	}
}
