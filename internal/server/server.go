// Package server provides the HTTP API for cookcut.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/cookcut/internal/config"
	"github.com/hyperjump/cookcut/internal/metrics"
	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/storage"
	"github.com/hyperjump/cookcut/internal/vector"
	"github.com/hyperjump/cookcut/pkg/utils"
	"go.uber.org/zap"
)

// Searcher answers search requests. *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, q models.SearchQuery) (*models.SearchResponse, error)
}

// Server is the HTTP server for the cookcut API.
type Server struct {
	engine  Searcher
	catalog storage.Storage
	store   vector.Store
	config  *config.Config
	metrics *metrics.Collector
	addr    string
	logger  *zap.Logger
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes the collector's registry on /metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAddr overrides the listen address from the config. Empty keeps the config value.
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// NewServer creates a server with the given dependencies. catalog may be nil.
func NewServer(
	engine Searcher,
	catalog storage.Storage,
	store vector.Store,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		engine:  engine,
		catalog: catalog,
		store:   store,
		config:  cfg,
		logger:  utils.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/recipes", s.handleListRecipes)
	r.Get("/api/v1/recipes/{id}", s.handleGetRecipe)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.addr
	if addr == "" {
		addr = s.config.Server.Addr()
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
