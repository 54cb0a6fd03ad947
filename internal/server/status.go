package server

import (
	"context"
	"fmt"

	"github.com/hyperjump/cookcut/internal/config"
	"github.com/hyperjump/cookcut/internal/dataset"
	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/storage"
	"github.com/hyperjump/cookcut/internal/vector"
)

// Status is the index summary served on /api/v1/status and printed by the CLI.
type Status struct {
	Recipes        int64             `json:"recipes"`
	Vectors        int               `json:"vectors"`
	LatestRun      *models.IngestRun `json:"latest_run,omitempty"`
	Dataset        dataset.Info      `json:"dataset"`
	Config         StatusConfig      `json:"config"`
	DiskUsageBytes int64             `json:"disk_usage_bytes,omitempty"`
}

// StatusConfig is the subset of configuration worth reporting.
type StatusConfig struct {
	EmbeddingProvider   string `json:"embedding_provider"`
	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	StoreProvider       string `json:"store_provider"`
	ChunkMaxLength      int    `json:"chunk_max_length"`
	ChunkOverlap        int    `json:"chunk_overlap"`
	DatabasePath        string `json:"database_path"`
	KeywordIndexPath    string `json:"keyword_index_path,omitempty"`
	VectorPath          string `json:"vector_path,omitempty"`
}

// BuildStatus collects counts from the catalog and the vector store.
// catalog may be nil, in which case recipe counts and the run ledger are omitted.
func BuildStatus(ctx context.Context, catalog storage.Storage, store vector.Store, cfg *config.Config) (*Status, error) {
	st := &Status{Dataset: dataset.DefaultInfo}
	if cfg.Dataset.Path != "" {
		st.Dataset = dataset.Info{Name: cfg.Dataset.Path, Source: cfg.Dataset.Path}
	} else if cfg.Dataset.HFDataset != "" && cfg.Dataset.HFDataset != dataset.DefaultInfo.Name {
		st.Dataset = dataset.Info{
			Name:   cfg.Dataset.HFDataset,
			Source: "https://huggingface.co/datasets/" + cfg.Dataset.HFDataset,
		}
	}

	if catalog != nil {
		n, err := catalog.CountRecipes(ctx)
		if err != nil {
			return nil, fmt.Errorf("count recipes: %w", err)
		}
		st.Recipes = n
		run, err := catalog.LatestRun(ctx)
		switch {
		case err == nil:
			st.LatestRun = run
		case !isNotFound(err):
			return nil, fmt.Errorf("latest run: %w", err)
		}
	}
	if store != nil {
		n, err := store.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count vectors: %w", err)
		}
		st.Vectors = n
	}

	st.Config = StatusConfig{
		EmbeddingProvider:   cfg.Embedding.Provider,
		EmbeddingModel:      cfg.Embedding.Model,
		EmbeddingDimensions: cfg.Embedding.Dimensions,
		StoreProvider:       cfg.Store.Provider,
		ChunkMaxLength:      cfg.Chunking.MaxLength,
		ChunkOverlap:        cfg.Chunking.OverlapOrDefault(),
		DatabasePath:        cfg.Storage.DatabasePath,
		VectorPath:          cfg.Store.Path,
	}
	paths := []string{cfg.Storage.DatabasePath, cfg.Store.Path}
	if cfg.Keyword.EnabledOrDefault() {
		st.Config.KeywordIndexPath = cfg.Keyword.IndexPath
		paths = append(paths, cfg.Keyword.IndexPath)
	}
	if size, err := storage.DiskUsageBytes(paths...); err == nil {
		st.DiskUsageBytes = size
	}
	return st, nil
}
