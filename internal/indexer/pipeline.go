package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/cookcut/internal/dataset"
	"github.com/hyperjump/cookcut/internal/keyword"
	"github.com/hyperjump/cookcut/internal/metrics"
	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/vector"
	"github.com/hyperjump/cookcut/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of recipes accumulated before a flush.
const DefaultBatchSize = 50

// Embedder computes embeddings for recipe text. *embedding.Client implements it.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Catalog persists flushed recipes and run summaries. *storage.SQLiteStorage implements it.
type Catalog interface {
	SaveRecipes(ctx context.Context, recipes []*models.StoredRecipe) error
	RecordRun(ctx context.Context, run *models.IngestRun) error
}

// PipelineConfig sizes a run.
type PipelineConfig struct {
	// BatchSize is the number of recipes per flush.
	BatchSize int
	// UpsertBatchSize is the number of records per store upsert.
	UpsertBatchSize int
	// Workers > 1 embeds recipes concurrently; results are drained in completion order.
	Workers int
}

// Progress is reported after every recipe, whether it succeeded or not.
type Progress struct {
	RunID     string
	Seen      int
	Processed int
	Failed    int
	Title     string
	Err       error
}

// RunResult summarizes a pipeline run. Processed counts recipes whose flush succeeded.
type RunResult struct {
	RunID         string        `json:"run_id"`
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

// IngestRun converts the result into its catalog form.
func (r *RunResult) IngestRun() *models.IngestRun {
	return &models.IngestRun{
		ID:            r.RunID,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Seen:          r.Seen,
		Processed:     r.Processed,
		Failed:        r.Failed,
		Flushes:       r.Flushes,
		FailedFlushes: r.FailedFlushes,
		Records:       r.Records,
		Duration:      r.Duration,
	}
}

// Pipeline streams recipes from a dataset, embeds them and upserts the records in batches.
type Pipeline struct {
	normalizer *Normalizer
	embedder   Embedder
	store      vector.Store
	cfg        PipelineConfig
	catalog    Catalog
	keyword    keyword.Index
	metrics    *metrics.Collector
	progress   func(Progress)
	logger     *zap.Logger
	now        func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the run logger.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithCatalog stores flushed recipes and the run summary in c.
func WithCatalog(c Catalog) PipelineOption {
	return func(p *Pipeline) { p.catalog = c }
}

// WithKeywordIndex also indexes flushed records for keyword search.
func WithKeywordIndex(idx keyword.Index) PipelineOption {
	return func(p *Pipeline) { p.keyword = idx }
}

// WithMetrics records recipe and flush counters.
func WithMetrics(m *metrics.Collector) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithProgress registers a callback invoked after each recipe.
func WithProgress(fn func(Progress)) PipelineOption {
	return func(p *Pipeline) { p.progress = fn }
}

// NewPipeline creates a pipeline. Zero config values fall back to defaults.
func NewPipeline(normalizer *Normalizer, embedder Embedder, store vector.Store, cfg PipelineConfig, opts ...PipelineOption) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = vector.DefaultUpsertBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	p := &Pipeline{
		normalizer: normalizer,
		embedder:   embedder,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// run holds the state owned by one call to Run.
type run struct {
	result *RunResult
	batch  []*models.EmbeddedRecipe
}

// Run consumes src until io.EOF. Per-recipe and per-flush failures are logged and counted;
// only a dataset read failure or cancellation ends the run early. On cancellation the
// unflushed batch is discarded and ctx.Err() is returned together with the partial result.
func (p *Pipeline) Run(ctx context.Context, src dataset.Source) (*RunResult, error) {
	r := &run{
		result: &RunResult{RunID: uuid.NewString(), StartedAt: p.now()},
		batch:  make([]*models.EmbeddedRecipe, 0, p.cfg.BatchSize),
	}
	p.logger.Info("ingest run started",
		zap.String("run_id", r.result.RunID),
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Int("workers", p.cfg.Workers))

	var err error
	if p.cfg.Workers > 1 {
		err = p.runConcurrent(ctx, src, r)
	} else {
		err = p.runSequential(ctx, src, r)
	}

	res := r.result
	res.FinishedAt = p.now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)
	if p.catalog != nil {
		if recErr := p.catalog.RecordRun(context.WithoutCancel(ctx), res.IngestRun()); recErr != nil {
			p.logger.Warn("failed to record ingest run", zap.String("run_id", res.RunID), zap.Error(recErr))
		}
	}
	fields := []zap.Field{
		zap.String("run_id", res.RunID),
		zap.Int("processed", res.Processed),
		zap.Int("failed", res.Failed),
		zap.Int("flushes", res.Flushes),
		zap.Int("failed_flushes", res.FailedFlushes),
		zap.Duration("duration", res.Duration),
	}
	if err != nil {
		p.logger.Warn("ingest run stopped", append(fields, zap.Error(err))...)
		return res, err
	}
	p.logger.Info(fmt.Sprintf("successfully processed %d recipes", res.Processed), fields...)
	return res, nil
}

func (p *Pipeline) runSequential(ctx context.Context, src dataset.Source, r *run) error {
	for {
		raw, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if dataset.IsRowError(err) {
				p.recipeFailed(r, raw, err)
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			p.drain(ctx, r)
			return fmt.Errorf("failed to read dataset: %w", err)
		}
		er, err := p.processRecipe(ctx, raw)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			p.recipeFailed(r, raw, err)
			continue
		}
		p.accept(ctx, r, er)
	}
	p.drain(ctx, r)
	return nil
}

type outcome struct {
	raw    models.RawRecipe
	recipe *models.EmbeddedRecipe
	err    error
}

// runConcurrent reads on one goroutine and embeds on cfg.Workers goroutines. All results
// come back to this goroutine, which alone owns the batch.
func (p *Pipeline) runConcurrent(ctx context.Context, src dataset.Source, r *run) error {
	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan models.RawRecipe, p.cfg.Workers)
	results := make(chan outcome, p.cfg.Workers)

	g.Go(func() error {
		defer close(rows)
		for {
			raw, err := src.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				if dataset.IsRowError(err) {
					results <- outcome{raw: raw, err: err}
					continue
				}
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return fmt.Errorf("failed to read dataset: %w", err)
			}
			select {
			case rows <- raw:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	for i := 0; i < p.cfg.Workers; i++ {
		g.Go(func() error {
			for raw := range rows {
				er, err := p.processRecipe(gctx, raw)
				results <- outcome{raw: raw, recipe: er, err: err}
			}
			return nil
		})
	}

	var groupErr error
	go func() {
		groupErr = g.Wait()
		close(results)
	}()

	for out := range results {
		if out.err != nil {
			// Cancelled by the caller: the batch is discarded anyway. Cancelled because the
			// reader failed: the recipe was read but never finished, so it counts as failed.
			if ctx.Err() != nil && errors.Is(out.err, context.Canceled) {
				continue
			}
			p.recipeFailed(r, out.raw, out.err)
			continue
		}
		p.accept(ctx, r, out.recipe)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	p.drain(ctx, r)
	return groupErr
}

// processRecipe normalizes a recipe and embeds its title, ingredients and instruction chunks.
func (p *Pipeline) processRecipe(ctx context.Context, raw models.RawRecipe) (*models.EmbeddedRecipe, error) {
	normalized, err := p.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	titleVec, err := p.embedder.EmbedOne(ctx, normalized.Title.Text)
	if err != nil {
		return nil, fmt.Errorf("embed title: %w", err)
	}
	ingredientsVec, err := p.embedder.EmbedOne(ctx, normalized.Ingredients.Text)
	if err != nil {
		return nil, fmt.Errorf("embed ingredients: %w", err)
	}
	texts := make([]string, len(normalized.Instructions))
	for i, unit := range normalized.Instructions {
		texts[i] = unit.Text
	}
	instructionVecs, err := p.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed instructions: %w", err)
	}
	if len(instructionVecs) != len(texts) {
		return nil, fmt.Errorf("embed instructions: got %d vectors for %d chunks", len(instructionVecs), len(texts))
	}
	embeddings := make([][]float32, 0, 2+len(instructionVecs))
	embeddings = append(embeddings, titleVec, ingredientsVec)
	embeddings = append(embeddings, instructionVecs...)
	return &models.EmbeddedRecipe{Raw: raw, Normalized: normalized, Embeddings: embeddings}, nil
}

func (p *Pipeline) accept(ctx context.Context, r *run, er *models.EmbeddedRecipe) {
	r.result.Seen++
	r.batch = append(r.batch, er)
	if len(r.batch) >= p.cfg.BatchSize {
		p.flush(ctx, r)
	}
	p.report(r, er.Raw.Title, nil)
}

func (p *Pipeline) recipeFailed(r *run, raw models.RawRecipe, err error) {
	r.result.Seen++
	r.result.Failed++
	p.metrics.RecipeFailed()
	p.logger.Warn("skipping recipe",
		zap.String("run_id", r.result.RunID),
		zap.String("title", strings.TrimSpace(raw.Title)),
		zap.Int("row", raw.Row),
		zap.Error(err))
	p.report(r, raw.Title, err)
}

func (p *Pipeline) report(r *run, title string, err error) {
	if p.progress == nil {
		return
	}
	p.progress(Progress{
		RunID:     r.result.RunID,
		Seen:      r.result.Seen,
		Processed: r.result.Processed,
		Failed:    r.result.Failed,
		Title:     title,
		Err:       err,
	})
}

func (p *Pipeline) drain(ctx context.Context, r *run) {
	if len(r.batch) > 0 {
		p.flush(ctx, r)
	}
}

// flush writes the current batch and resets it. A failed upsert counts the whole
// batch as unprocessed; keyword and catalog writes only run after a successful upsert.
func (p *Pipeline) flush(ctx context.Context, r *run) {
	batch := r.batch
	r.batch = make([]*models.EmbeddedRecipe, 0, p.cfg.BatchSize)
	r.result.Flushes++

	records := make([]vector.Record, 0, len(batch)*3)
	built := make([]*models.EmbeddedRecipe, 0, len(batch))
	for _, er := range batch {
		recs, err := BuildRecords(er)
		if err != nil {
			r.result.Failed++
			p.metrics.RecipeFailed()
			p.logger.Warn("skipping recipe", zap.String("title", er.Raw.Title), zap.Int("row", er.Raw.Row), zap.Error(err))
			continue
		}
		records = append(records, recs...)
		built = append(built, er)
	}

	written, err := vector.UpsertBatched(ctx, p.store, records, p.cfg.UpsertBatchSize)
	if err != nil {
		r.result.FailedFlushes++
		p.metrics.Flush(false, len(records))
		p.logger.Error("flush failed",
			zap.String("run_id", r.result.RunID),
			zap.Int("batch_size", len(batch)),
			zap.Int("records", len(records)),
			zap.Int("written", written),
			zap.Error(err))
		return
	}
	r.result.Processed += len(built)
	r.result.Records += written
	p.metrics.Flush(true, written)
	p.metrics.RecipeProcessed(len(built))
	p.logger.Debug("batch flushed",
		zap.String("run_id", r.result.RunID),
		zap.Int("recipes", len(built)),
		zap.Int("records", written),
		zap.Int("processed_total", r.result.Processed))

	if p.keyword != nil {
		entries := make([]keyword.Entry, 0, len(records))
		for _, er := range built {
			entries = append(entries, KeywordEntries(er)...)
		}
		if err := p.keyword.IndexEntries(ctx, entries); err != nil {
			p.logger.Warn("keyword indexing failed", zap.Int("entries", len(entries)), zap.Error(err))
		}
	}
	if p.catalog != nil {
		now := p.now()
		recipes := make([]*models.StoredRecipe, len(built))
		for i, er := range built {
			recipes[i] = StoredRecipe(er.Raw, now)
		}
		if err := p.catalog.SaveRecipes(ctx, recipes); err != nil {
			p.logger.Warn("catalog save failed", zap.Int("recipes", len(recipes)), zap.Error(err))
		}
	}
}
