package config

import "time"

const defaultChunkOverlap = 100

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Dataset.Format == "" && cfg.Dataset.Path == "" {
		cfg.Dataset.Format = "hf"
	}
	if cfg.Dataset.HFDataset == "" {
		cfg.Dataset.HFDataset = "Hieu-Pham/kaggle_food_recipes"
	}
	if cfg.Dataset.HFSplit == "" {
		cfg.Dataset.HFSplit = "train"
	}
	if cfg.Chunking.MaxLength == 0 {
		cfg.Chunking.MaxLength = 500
	}
	if cfg.Chunking.Overlap == nil {
		overlap := defaultChunkOverlap
		cfg.Chunking.Overlap = &overlap
	}
	if cfg.Chunking.SearchWindow == 0 {
		cfg.Chunking.SearchWindow = 50
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.MaxAttempts == 0 {
		cfg.Embedding.MaxAttempts = 3
	}
	if cfg.Embedding.RetryDelay == 0 {
		cfg.Embedding.RetryDelay = 5 * time.Second
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Embedding.MaxInFlight == 0 {
		cfg.Embedding.MaxInFlight = 4
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = 50
	}
	if cfg.Pipeline.UpsertBatchSize == 0 {
		cfg.Pipeline.UpsertBatchSize = 100
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 1
	}
	if cfg.Store.Provider == "" {
		cfg.Store.Provider = "memory"
	}
	if cfg.Store.Metric == "" {
		cfg.Store.Metric = "cosine"
	}
	if cfg.Store.Table == "" {
		cfg.Store.Table = "recipe_vectors"
	}
	if cfg.Store.Namespace == "" {
		cfg.Store.Namespace = "recipes"
	}
	if cfg.Store.Path == "" {
		switch cfg.Store.Provider {
		case "memory":
			cfg.Store.Path = ".cookcut/indices/vectors.bin"
		case "sqlite":
			cfg.Store.Path = ".cookcut/indices/vectors.db"
		}
	}
	if cfg.Store.Timeout == 0 {
		cfg.Store.Timeout = 30 * time.Second
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".cookcut/db/catalog.db"
	}
	if cfg.Keyword.IndexPath == "" {
		cfg.Keyword.IndexPath = ".cookcut/indices/bleve"
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 5
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.KeywordWeight = 0.5
		cfg.Search.SemanticWeight = 0.5
	}
	if cfg.Search.CandidateMultiplier == 0 {
		cfg.Search.CandidateMultiplier = 4
	}
	if cfg.Search.TitleBoost == 0 {
		cfg.Search.TitleBoost = 2.0
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 2 * time.Second
	}
}
