// Package search answers recipe queries against the vector store and keyword index.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/cookcut/internal/keyword"
	"github.com/hyperjump/cookcut/internal/metrics"
	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/storage"
	"github.com/hyperjump/cookcut/internal/vector"
	"github.com/hyperjump/cookcut/pkg/utils"
	"go.uber.org/zap"
)

// ErrKeywordUnavailable is returned for keyword and hybrid queries when no keyword index is configured.
var ErrKeywordUnavailable = errors.New("keyword index not configured")

// Embedder embeds a query. *embedding.Client implements it.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// RecipeLookup resolves catalog entries for results.
type RecipeLookup interface {
	GetRecipe(ctx context.Context, id string) (*models.StoredRecipe, error)
}

// Config tunes keyword and hybrid queries.
type Config struct {
	KeywordWeight  float64
	SemanticWeight float64
	// CandidateMultiplier scales TopK for each side of a hybrid query before fusion.
	CandidateMultiplier int
	TitleBoost          float64
	Fuzzy               bool
}

// DefaultConfig weighs keyword and semantic scores equally.
func DefaultConfig() Config {
	return Config{KeywordWeight: 0.5, SemanticWeight: 0.5, CandidateMultiplier: 4, TitleBoost: 2}
}

// Engine runs semantic, keyword and hybrid search.
type Engine struct {
	embedder Embedder
	store    vector.Store
	keyword  keyword.Index
	catalog  RecipeLookup
	metrics  *metrics.Collector
	logger   *zap.Logger
	config   Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithKeywordIndex enables keyword and hybrid modes.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(e *Engine) { e.keyword = idx }
}

// WithCatalog enables IncludeRecipe.
func WithCatalog(c RecipeLookup) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithMetrics records query latency and outcome.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithConfig replaces the default fusion settings.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// NewEngine creates a search engine over store.
func NewEngine(embedder Embedder, store vector.Store, opts ...Option) *Engine {
	e := &Engine{embedder: embedder, store: store, config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	if e.config.CandidateMultiplier <= 0 {
		e.config.CandidateMultiplier = 1
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Search validates q and runs it in the requested mode. Results are ordered by descending score.
// A failing store query is returned as a *vector.QueryError.
func (e *Engine) Search(ctx context.Context, q models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	kind, _ := models.ParseKindFilter(q.Kind)

	var (
		results []*models.SearchResult
		err     error
	)
	switch q.Mode {
	case models.ModeKeyword:
		results, err = e.keywordSearch(ctx, q.Query, kind, q.TopK)
	case models.ModeHybrid:
		results, err = e.hybridSearch(ctx, q.Query, kind, q.TopK)
	default:
		results, err = e.semanticSearch(ctx, q.Query, kind, q.TopK)
	}
	e.metrics.Search(q.Mode, err == nil, time.Since(startTime))
	if err != nil {
		e.logger.Debug("search failed", zap.String("mode", q.Mode), zap.String("query", q.Query), zap.Error(err))
		return nil, err
	}

	if q.IncludeRecipe && e.catalog != nil {
		e.attachRecipes(ctx, results)
	}
	for i, r := range results {
		r.Rank = i + 1
	}
	kindLabel := string(kind)
	if kindLabel == "" {
		kindLabel = "all"
	}
	return &models.SearchResponse{
		Query:     q.Query,
		Kind:      kindLabel,
		Mode:      q.Mode,
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(startTime).Milliseconds(),
	}, nil
}

func (e *Engine) semanticMatches(ctx context.Context, query string, kind models.UnitKind, topK int) ([]vector.Match, error) {
	vec, err := e.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	opts := vector.QueryOptions{TopK: topK}
	if kind != "" {
		opts.Filter = map[string]string{"type": string(kind)}
	}
	matches, err := e.store.Query(ctx, vec, opts)
	if err != nil {
		return nil, &vector.QueryError{Err: err}
	}
	return matches, nil
}

func (e *Engine) semanticSearch(ctx context.Context, query string, kind models.UnitKind, topK int) ([]*models.SearchResult, error) {
	matches, err := e.semanticMatches(ctx, query, kind, topK)
	if err != nil {
		return nil, err
	}
	results := make([]*models.SearchResult, 0, len(matches))
	for _, m := range matches {
		r := resultFromMetadata(m.ID, m.Metadata)
		r.Score = m.Score
		r.SemanticScore = m.Score
		results = append(results, r)
	}
	return results, nil
}

func (e *Engine) keywordHits(ctx context.Context, query string, kind models.UnitKind, limit int) ([]*keyword.Result, error) {
	if e.keyword == nil {
		return nil, ErrKeywordUnavailable
	}
	hits, err := e.keyword.Search(ctx, query, limit, &keyword.SearchOptions{
		Kind:         kind,
		TitleBoost:   e.config.TitleBoost,
		FuzzyEnabled: e.config.Fuzzy,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return hits, nil
}

func (e *Engine) keywordSearch(ctx context.Context, query string, kind models.UnitKind, topK int) ([]*models.SearchResult, error) {
	hits, err := e.keywordHits(ctx, query, kind, topK)
	if err != nil {
		return nil, err
	}
	results := make([]*models.SearchResult, 0, len(hits))
	for _, h := range hits {
		r := resultFromKeyword(h)
		r.Score = h.Score
		r.KeywordScore = h.Score
		results = append(results, r)
	}
	return results, nil
}

// hybridSearch runs both sides concurrently, normalizes their scores and fuses them by record ID.
func (e *Engine) hybridSearch(ctx context.Context, query string, kind models.UnitKind, topK int) ([]*models.SearchResult, error) {
	if e.keyword == nil {
		return nil, ErrKeywordUnavailable
	}
	candidates := topK * e.config.CandidateMultiplier
	var (
		hits    []*keyword.Result
		matches []vector.Match
		errChan = make(chan error, 2)
		wg      sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := e.keywordHits(ctx, query, kind, candidates)
		if err != nil {
			errChan <- err
			return
		}
		hits = res
	}()
	go func() {
		defer wg.Done()
		res, err := e.semanticMatches(ctx, query, kind, candidates)
		if err != nil {
			errChan <- err
			return
		}
		matches = res
	}()
	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	byID := make(map[string]*models.SearchResult, len(hits)+len(matches))
	for _, h := range hits {
		byID[h.ID] = resultFromKeyword(h)
	}
	for _, m := range matches {
		// store metadata is richer than the keyword entry
		byID[m.ID] = resultFromMetadata(m.ID, m.Metadata)
	}
	fused := Fuse(NormalizeKeywordScores(hits), NormalizeSemanticScores(matches), e.config.KeywordWeight, e.config.SemanticWeight)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	results := make([]*models.SearchResult, 0, len(fused))
	for _, f := range fused {
		r := byID[f.ID]
		r.Score = f.Score
		r.KeywordScore = f.KeywordScore
		r.SemanticScore = f.SemanticScore
		results = append(results, r)
	}
	return results, nil
}

func (e *Engine) attachRecipes(ctx context.Context, results []*models.SearchResult) {
	seen := make(map[string]*models.StoredRecipe)
	for _, r := range results {
		if r.RecipeID == "" {
			continue
		}
		recipe, ok := seen[r.RecipeID]
		if !ok {
			var err error
			recipe, err = e.catalog.GetRecipe(ctx, r.RecipeID)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					e.logger.Warn("catalog lookup failed", zap.String("recipe_id", r.RecipeID), zap.Error(err))
				}
				recipe = nil
			}
			seen[r.RecipeID] = recipe
		}
		r.Recipe = recipe
	}
}

func resultFromMetadata(id string, meta map[string]interface{}) *models.SearchResult {
	r := &models.SearchResult{ID: id, Metadata: meta}
	if v, ok := meta["recipe_id"].(string); ok {
		r.RecipeID = v
	}
	if v, ok := meta["type"].(string); ok {
		r.Kind = models.UnitKind(v)
	}
	if v, ok := meta["text"].(string); ok {
		r.Text = v
	}
	return r
}

func resultFromKeyword(h *keyword.Result) *models.SearchResult {
	return &models.SearchResult{
		ID:       h.ID,
		RecipeID: h.RecipeID,
		Kind:     h.Kind,
		Text:     h.Content,
		Metadata: map[string]interface{}{
			"recipe_id":    h.RecipeID,
			"type":         string(h.Kind),
			"text":         h.Content,
			"recipe_title": h.Title,
		},
	}
}
