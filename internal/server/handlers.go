package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/cookcut/internal/embedding"
	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/search"
	"github.com/hyperjump/cookcut/internal/storage"
	"github.com/hyperjump/cookcut/internal/vector"
	"go.uber.org/zap"
)

const maxListLimit = 100

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if query.TopK == 0 && s.config != nil {
		query.TopK = s.config.Search.DefaultTopK
	}
	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.String("kind", query.Kind),
		zap.String("mode", query.Mode),
		zap.Int("top_k", query.TopK))
	response, err := s.engine.Search(r.Context(), query)
	if err != nil {
		status := searchErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("search failed", zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func searchErrorStatus(err error) int {
	var queryErr *vector.QueryError
	switch {
	case errors.Is(err, models.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrKeywordUnavailable):
		return http.StatusNotImplemented
	case errors.As(err, &queryErr), embedding.IsEmbeddingError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "catalog not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	recipe, err := s.catalog.GetRecipe(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusNotFound, "recipe not found")
			return
		}
		s.logger.Error("get recipe failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, recipe)
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "catalog not enabled")
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := intParam(r, "limit", 20)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	ctx := r.Context()
	recipes, err := s.catalog.ListRecipes(ctx, offset, limit)
	if err != nil {
		s.logger.Error("list recipes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.catalog.CountRecipes(ctx)
	if err != nil {
		s.logger.Error("count recipes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recipes == nil {
		recipes = []*models.StoredRecipe{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"recipes": recipes,
		"offset":  offset,
		"limit":   limit,
		"total":   total,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := BuildStatus(r.Context(), s.catalog, s.store, s.config)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
