// Package storage persists the recipe catalog and the ingest run ledger.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/cookcut/internal/models"
)

// ErrNotFound is returned when a recipe or run does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines recipe catalog and run ledger operations.
type Storage interface {
	// Recipe operations
	SaveRecipes(ctx context.Context, recipes []*models.StoredRecipe) error
	GetRecipe(ctx context.Context, id string) (*models.StoredRecipe, error)
	ListRecipes(ctx context.Context, offset, limit int) ([]*models.StoredRecipe, error)
	CountRecipes(ctx context.Context) (int64, error)

	// Run ledger
	RecordRun(ctx context.Context, run *models.IngestRun) error
	LatestRun(ctx context.Context) (*models.IngestRun, error)

	Close() error
}
