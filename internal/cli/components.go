package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/cookcut/internal/config"
	"github.com/hyperjump/cookcut/internal/dataset"
	"github.com/hyperjump/cookcut/internal/embedding"
	"github.com/hyperjump/cookcut/internal/indexer"
	"github.com/hyperjump/cookcut/internal/keyword"
	"github.com/hyperjump/cookcut/internal/metrics"
	"github.com/hyperjump/cookcut/internal/search"
	"github.com/hyperjump/cookcut/internal/storage"
	"github.com/hyperjump/cookcut/internal/vector"
	"github.com/hyperjump/cookcut/pkg/utils"
	"go.uber.org/zap"
)

// Components holds every long-lived object built from one config.
type Components struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Embedder *embedding.Client
	Store    vector.Store
	Catalog  *storage.SQLiteStorage
	// Keyword is nil when keyword indexing is disabled.
	Keyword *keyword.BleveIndex
	Engine  *search.Engine
}

// Build creates the embedding client, vector store, catalog and keyword index.
// Any failure here is fatal to the command.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger = utils.OrNop(logger)
	c := &Components{Config: cfg, Logger: logger, Metrics: metrics.New()}

	provider, err := embedding.NewProvider(embedding.ProviderConfig{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	clientOpts := []embedding.ClientOption{
		embedding.WithLogger(logger),
		embedding.WithMetrics(c.Metrics),
		embedding.WithRetryPolicy(embedding.RetryPolicy{
			MaxAttempts: cfg.Embedding.MaxAttempts,
			Delay:       cfg.Embedding.RetryDelay,
			Exponential: cfg.Embedding.Exponential,
			MaxDelay:    cfg.Embedding.MaxDelay,
		}),
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithMaxInFlight(cfg.Embedding.MaxInFlight),
		embedding.WithRateLimit(cfg.Embedding.RequestsPerSecond, cfg.Embedding.Burst),
	}
	if cfg.Embedding.CacheSize > 0 {
		cache, err := embedding.NewCache(cfg.Embedding.CacheSize)
		if err != nil {
			_ = provider.Close()
			return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
		}
		clientOpts = append(clientOpts, embedding.WithCache(cache))
	}
	c.Embedder = embedding.NewClient(provider, clientOpts...)

	c.Store, err = vector.New(ctx, vector.Config{
		Provider:   cfg.Store.Provider,
		Dimensions: cfg.Embedding.Dimensions,
		Path:       cfg.Store.Path,
		Table:      cfg.Store.Table,
		DSN:        cfg.Store.DSN,
		Namespace:  cfg.Store.Namespace,
		IndexHost:  cfg.Store.IndexHost,
		APIKey:     cfg.Store.APIKey,
		Timeout:    cfg.Store.Timeout,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	logger.Info("vector store initialized",
		zap.String("provider", cfg.Store.Provider),
		zap.Int("dimensions", cfg.Embedding.Dimensions))

	c.Catalog, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if cfg.Keyword.EnabledOrDefault() {
		c.Keyword, err = keyword.NewBleveIndex(cfg.Keyword.IndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
	}

	engineOpts := []search.Option{
		search.WithCatalog(c.Catalog),
		search.WithMetrics(c.Metrics),
		search.WithLogger(logger),
		search.WithConfig(search.Config{
			KeywordWeight:       cfg.Search.KeywordWeight,
			SemanticWeight:      cfg.Search.SemanticWeight,
			CandidateMultiplier: cfg.Search.CandidateMultiplier,
			TitleBoost:          cfg.Search.TitleBoost,
			Fuzzy:               cfg.Search.Fuzzy,
		}),
	}
	if c.Keyword != nil {
		engineOpts = append(engineOpts, search.WithKeywordIndex(c.Keyword))
	}
	c.Engine = search.NewEngine(c.Embedder, c.Store, engineOpts...)
	return c, nil
}

// NewPipeline builds an ingest pipeline writing to every configured backend.
func (c *Components) NewPipeline(progress func(indexer.Progress)) (*indexer.Pipeline, error) {
	cfg := c.Config
	chunker, err := indexer.NewChunker(cfg.Chunking.MaxLength, cfg.Chunking.OverlapOrDefault(),
		indexer.WithSearchWindow(cfg.Chunking.SearchWindow))
	if err != nil {
		return nil, err
	}
	opts := []indexer.PipelineOption{
		indexer.WithLogger(c.Logger),
		indexer.WithCatalog(c.Catalog),
		indexer.WithMetrics(c.Metrics),
	}
	if c.Keyword != nil {
		opts = append(opts, indexer.WithKeywordIndex(c.Keyword))
	}
	if progress != nil {
		opts = append(opts, indexer.WithProgress(progress))
	}
	return indexer.NewPipeline(indexer.NewNormalizer(chunker), c.Embedder, c.Store, indexer.PipelineConfig{
		BatchSize:       cfg.Pipeline.BatchSize,
		UpsertBatchSize: cfg.Pipeline.UpsertBatchSize,
		Workers:         cfg.Pipeline.Workers,
	}, opts...), nil
}

// OpenSource opens the configured dataset. limit overrides the configured limit when positive.
func (c *Components) OpenSource(ctx context.Context, path string, limit int) (dataset.Source, error) {
	d := c.Config.Dataset
	if path == "" {
		path = d.Path
	}
	if limit <= 0 {
		limit = d.Limit
	}
	format := d.Format
	if path != d.Path {
		// the configured format belongs to the configured file
		format = ""
	}
	return dataset.Open(ctx, dataset.Config{
		Path:      path,
		Format:    format,
		HFDataset: d.HFDataset,
		HFConfig:  d.HFConfig,
		HFSplit:   d.HFSplit,
		HFToken:   d.HFToken,
		PageSize:  d.PageSize,
		Limit:     limit,
	})
}

// Close releases every component. The memory store writes itself to disk here.
func (c *Components) Close() {
	var errs []error
	if c.Keyword != nil {
		errs = append(errs, c.Keyword.Close())
	}
	if c.Catalog != nil {
		errs = append(errs, c.Catalog.Close())
	}
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	if c.Embedder != nil {
		errs = append(errs, c.Embedder.Close())
	}
	if err := errors.Join(errs...); err != nil {
		c.Logger.Warn("close components", zap.Error(err))
	}
}
