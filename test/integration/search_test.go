// Package integration runs ingest and search against every locally runnable store backend.
package integration

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hyperjump/cookcut/internal/embedding"
	"github.com/hyperjump/cookcut/internal/indexer"
	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/recipeid"
	"github.com/hyperjump/cookcut/internal/search"
	"github.com/hyperjump/cookcut/internal/vector"
)

const dims = 8

type sliceSource struct {
	recipes []models.RawRecipe
	pos     int
}

func (s *sliceSource) Next(context.Context) (models.RawRecipe, error) {
	if s.pos >= len(s.recipes) {
		return models.RawRecipe{}, io.EOF
	}
	s.pos++
	return s.recipes[s.pos-1], nil
}

func (s *sliceSource) Close() error { return nil }

func tomatoSoup() models.RawRecipe {
	return models.RawRecipe{
		Title:        "Tomato Soup",
		Ingredients:  []string{"4 tomatoes", "1 onion", "salt"},
		Instructions: "Chop the onion. Simmer with the tomatoes for twenty minutes. Blend until smooth.",
		ImageName:    "tomato-soup",
		Row:          0,
	}
}

func backends(t *testing.T) map[string]vector.Config {
	dir := t.TempDir()
	mr := miniredis.RunT(t)
	return map[string]vector.Config{
		"memory": {Provider: "memory", Dimensions: dims, Path: filepath.Join(dir, "vectors.bin")},
		"sqlite": {Provider: "sqlite", Dimensions: dims, Path: filepath.Join(dir, "vectors.db"), Table: "recipe_vectors"},
		"redis":  {Provider: "redis", Dimensions: dims, DSN: "redis://" + mr.Addr(), Namespace: "recipes"},
	}
}

func TestIntegration_IngestAndSearch(t *testing.T) {
	for name, cfg := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, err := vector.New(ctx, cfg)
			if err != nil {
				t.Fatal(err)
			}
			client := embedding.NewClient(embedding.NewMockProvider(dims))
			defer client.Close()

			chunker, err := indexer.NewChunker(indexer.DefaultMaxLength, indexer.DefaultOverlap)
			if err != nil {
				t.Fatal(err)
			}
			p := indexer.NewPipeline(indexer.NewNormalizer(chunker), client, store, indexer.PipelineConfig{})
			res, err := p.Run(ctx, &sliceSource{recipes: []models.RawRecipe{tomatoSoup()}})
			if err != nil {
				t.Fatal(err)
			}
			if res.Processed != 1 || res.Records != 3 {
				t.Fatalf("processed %d recipes, %d records", res.Processed, res.Records)
			}

			// reopen to check the records survived
			if err := store.Close(); err != nil {
				t.Fatal(err)
			}
			store, err = vector.New(ctx, cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()
			if n, err := store.Count(ctx); err != nil || n != 3 {
				t.Fatalf("count after reopen = %d, %v", n, err)
			}

			engine := search.NewEngine(client, store)
			resp, err := engine.Search(ctx, models.SearchQuery{Query: "tomato soup", Kind: "instructions", TopK: 5})
			if err != nil {
				t.Fatal(err)
			}
			if len(resp.Results) != 1 {
				t.Fatalf("instruction results = %d, want 1", len(resp.Results))
			}
			hit := resp.Results[0]
			recipe := recipeid.RecipeID("Tomato Soup", 0)
			if hit.ID != recipeid.RecordID(recipe, models.UnitInstruction, 0) || hit.RecipeID != recipe {
				t.Errorf("hit = %s (%s)", hit.ID, hit.RecipeID)
			}
			if hit.Metadata[indexer.MetaRecipeTitle] != "Tomato Soup" {
				t.Errorf("metadata = %v", hit.Metadata)
			}

			resp, err = engine.Search(ctx, models.SearchQuery{Query: "tomato soup", TopK: 10})
			if err != nil {
				t.Fatal(err)
			}
			if resp.Total != 3 {
				t.Errorf("unfiltered results = %d, want 3", resp.Total)
			}
		})
	}
}
