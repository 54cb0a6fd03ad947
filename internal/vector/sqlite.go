package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	_ "github.com/mattn/go-sqlite3"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore keeps vectors in a SQLite table and scores them in process.
type SQLiteStore struct {
	db         *sql.DB
	table      string
	dimensions int
}

// NewSQLiteStore opens or creates a SQLite database at dbPath with a vector table.
func NewSQLiteStore(dbPath, table string, dimensions int) (*SQLiteStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if table == "" {
		table = "recipe_vectors"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
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
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id TEXT PRIMARY KEY,
		embedding BLOB NOT NULL,
		metadata TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`, table)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, table: table, dimensions: dimensions}, nil
}

// Dimensions returns the vector dimension.
func (s *SQLiteStore) Dimensions() int {
	return s.dimensions
}

// Upsert writes records in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, embedding, metadata, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding, metadata = excluded.metadata, updated_at = excluded.updated_at`,
		s.table))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	for _, rec := range records {
		if len(rec.Values) != s.dimensions {
			return fmt.Errorf("record %q: %w", rec.ID, dimensionError(len(rec.Values), s.dimensions))
		}
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %q: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, float32SliceToBytes(rec.Values), string(meta)); err != nil {
			return fmt.Errorf("upsert %q: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// Query scans all rows, filters on metadata and ranks by cosine similarity.
func (s *SQLiteStore) Query(ctx context.Context, query []float32, opts QueryOptions) ([]Match, error) {
	if len(query) != s.dimensions {
		return nil, dimensionError(len(query), s.dimensions)
	}
	if opts.TopK <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, embedding, metadata FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()
	var matches []Match
	for rows.Next() {
		var (
			id       string
			blob     []byte
			metaJSON sql.NullString
		)
		if err := rows.Scan(&id, &blob, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		var meta map[string]interface{}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
				return nil, fmt.Errorf("decode metadata for %q: %w", id, err)
			}
		}
		if !MatchesFilter(meta, opts.Filter) {
			continue
		}
		matches = append(matches, Match{ID: id, Score: CosineSimilarity(query, bytesToFloat32Slice(blob)), Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vectors: %w", err)
	}
	return rankMatches(matches, opts.TopK), nil
}

// Delete removes records by ID.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table), id); err != nil {
			return fmt.Errorf("delete %q: %w", id, err)
		}
	}
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
