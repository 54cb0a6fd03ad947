package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/cookcut/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		ingredients TEXT NOT NULL,
		instructions TEXT NOT NULL,
		image_name TEXT,
		source_row INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_recipes_source_row ON recipes(source_row);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		seen INTEGER NOT NULL,
		processed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		flushes INTEGER NOT NULL,
		failed_flushes INTEGER NOT NULL,
		records INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRecipes inserts or replaces recipes in one transaction.
func (s *SQLiteStorage) SaveRecipes(ctx context.Context, recipes []*models.StoredRecipe) error {
	if len(recipes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO recipes (id, title, ingredients, instructions, image_name, source_row, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   ingredients = excluded.ingredients,
		   instructions = excluded.instructions,
		   image_name = excluded.image_name,
		   source_row = excluded.source_row,
		   updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recipes {
		ingredients, err := json.Marshal(r.Ingredients)
		if err != nil {
			return fmt.Errorf("failed to marshal ingredients: %w", err)
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Title, string(ingredients), r.Instructions, r.ImageName, r.SourceRow, r.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to save recipe %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// GetRecipe returns a recipe by ID.
func (s *SQLiteStorage) GetRecipe(ctx context.Context, id string) (*models.StoredRecipe, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, ingredients, instructions, image_name, source_row, updated_at
		 FROM recipes WHERE id = ?`, id,
	)
	recipe, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

// ListRecipes returns recipes in dataset order with offset and limit.
func (s *SQLiteStorage) ListRecipes(ctx context.Context, offset, limit int) ([]*models.StoredRecipe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, ingredients, instructions, image_name, source_row, updated_at
		 FROM recipes ORDER BY source_row LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []*models.StoredRecipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(sc scanner) (*models.StoredRecipe, error) {
	var (
		r           models.StoredRecipe
		ingredients string
		imageName   sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.Title, &ingredients, &r.Instructions, &imageName, &r.SourceRow, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ImageName = imageName.String
	if ingredients != "" {
		if err := json.Unmarshal([]byte(ingredients), &r.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
		}
	}
	return &r, nil
}

// CountRecipes returns the total number of recipes.
func (s *SQLiteStorage) CountRecipes(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count)
	return count, err
}

// RecordRun stores a run summary, replacing an earlier record with the same ID.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run *models.IngestRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		 (id, started_at, finished_at, seen, processed, failed, flushes, failed_flushes, records, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Seen, run.Processed, run.Failed,
		run.Flushes, run.FailedFlushes, run.Records, int64(run.Duration),
	)
	return err
}

// LatestRun returns the most recently finished run.
func (s *SQLiteStorage) LatestRun(ctx context.Context) (*models.IngestRun, error) {
	var (
		run      models.IngestRun
		duration int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, seen, processed, failed, flushes, failed_flushes, records, duration_ns
		 FROM runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Seen, &run.Processed, &run.Failed,
		&run.Flushes, &run.FailedFlushes, &run.Records, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ingest run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	run.Duration = time.Duration(duration)
	return &run, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
