package search

import (
	"testing"

	"github.com/hyperjump/cookcut/internal/keyword"
	"github.com/hyperjump/cookcut/internal/vector"
)

func TestNormalizeKeywordScores(t *testing.T) {
	results := []*keyword.Result{
		{ID: "a", Score: 2},
		{ID: "b", Score: 4},
		{ID: "c", Score: 1},
	}
	m := NormalizeKeywordScores(results)
	if m["b"] != 1.0 {
		t.Errorf("max score should be 1.0, got %f", m["b"])
	}
	if m["a"] != 0.5 {
		t.Errorf("a should be 0.5, got %f", m["a"])
	}
	if len(m) != 3 {
		t.Errorf("expected 3 entries, got %d", len(m))
	}
	if len(NormalizeKeywordScores(nil)) != 0 {
		t.Error("nil results should give an empty map")
	}
}

func TestNormalizeSemanticScores(t *testing.T) {
	m := NormalizeSemanticScores([]vector.Match{
		{ID: "same", Score: 1},
		{ID: "orthogonal", Score: 0},
		{ID: "opposite", Score: -1},
	})
	if m["same"] != 1 || m["orthogonal"] != 0.5 || m["opposite"] != 0 {
		t.Errorf("unexpected map %v", m)
	}
}

func TestFuse(t *testing.T) {
	kw := map[string]float64{"r1_title": 1.0, "r2_title": 0.5}
	sem := map[string]float64{"r1_title": 0.5, "r2_title": 1.0, "r3_ingredients": 0.9}
	results := Fuse(kw, sem, 0.5, 0.5)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Fatal("results should be sorted by score descending")
		}
	}
	// r1 and r2 tie at 0.75; ID breaks the tie
	if results[0].ID != "r1_title" || results[1].ID != "r2_title" {
		t.Errorf("order = %s, %s", results[0].ID, results[1].ID)
	}
	if results[2].KeywordScore != 0 || results[2].SemanticScore != 0.9 {
		t.Errorf("semantic-only hit = %+v", results[2])
	}
}
