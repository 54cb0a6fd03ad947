package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// pgPool is the subset of *pgxpool.Pool the store uses; pgxmock satisfies it in tests.
type pgPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PGStore stores vectors in Postgres using the pgvector extension and cosine distance.
type PGStore struct {
	pool       pgPool
	tableIdent string
	dimensions int
}

// NewPGStore connects to dsn and ensures the vector table exists.
func NewPGStore(ctx context.Context, dsn, table string, dimensions int) (*PGStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("pgvector: dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	store, err := newPGStoreWithPool(ctx, pool, table, dimensions)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func newPGStoreWithPool(ctx context.Context, pool pgPool, table string, dimensions int) (*PGStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if table == "" {
		table = "recipe_vectors"
	}
	store := &PGStore{
		pool:       pool,
		tableIdent: pgx.Identifier{table}.Sanitize(),
		dimensions: dimensions,
	}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (p *PGStore) ensureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		embedding vector(%d),
		metadata JSONB,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`, p.tableIdent, p.dimensions)
	if _, err := p.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: create table: %w", err)
	}
	return nil
}

// Dimensions returns the vector dimension.
func (p *PGStore) Dimensions() int {
	return p.dimensions
}

// Upsert writes records in a single transaction.
func (p *PGStore) Upsert(ctx context.Context, records []Record) (err error) {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if len(rec.Values) != p.dimensions {
			return fmt.Errorf("pgvector: record %q: %w", rec.ID, dimensionError(len(rec.Values), p.dimensions))
		}
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgvector: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("pgvector: rollback failed: %w; original error: %v", rbErr, err)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("pgvector: commit: %w", commitErr)
		}
	}()
	stmt := fmt.Sprintf(`INSERT INTO %s (id, embedding, metadata, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    embedding = excluded.embedding,
    metadata = excluded.metadata,
    updated_at = excluded.updated_at`, p.tableIdent)
	now := time.Now().UTC()
	for _, rec := range records {
		metadata, marshalErr := json.Marshal(rec.Metadata)
		if marshalErr != nil {
			return fmt.Errorf("pgvector: marshal metadata for %q: %w", rec.ID, marshalErr)
		}
		if _, execErr := tx.Exec(ctx, stmt, rec.ID, pgvector.NewVector(rec.Values), metadata, now); execErr != nil {
			return fmt.Errorf("pgvector: upsert %q: %w", rec.ID, execErr)
		}
	}
	return nil
}

// Query orders by cosine distance and reports 1 - distance as the score.
func (p *PGStore) Query(ctx context.Context, query []float32, opts QueryOptions) ([]Match, error) {
	if len(query) != p.dimensions {
		return nil, fmt.Errorf("pgvector: %w", dimensionError(len(query), p.dimensions))
	}
	if opts.TopK <= 0 {
		return nil, nil
	}
	var b strings.Builder
	b.WriteString("SELECT id, metadata, 1 - (embedding <=> $1) AS score FROM ")
	b.WriteString(p.tableIdent)
	b.WriteString(" WHERE 1=1")
	args := []any{pgvector.NewVector(query)}
	argPos := 2
	keys := make([]string, 0, len(opts.Filter))
	for k := range opts.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " AND metadata ->> $%d = $%d", argPos, argPos+1)
		args = append(args, k, opts.Filter[k])
		argPos += 2
	}
	fmt.Fprintf(&b, " ORDER BY embedding <=> $1 ASC LIMIT $%d", argPos)
	args = append(args, opts.TopK)

	rows, err := p.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()
	matches := make([]Match, 0, opts.TopK)
	for rows.Next() {
		var (
			id          string
			metadataRaw []byte
			score       float64
		)
		if err := rows.Scan(&id, &metadataRaw, &score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		meta := make(map[string]interface{})
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &meta); err != nil {
				return nil, fmt.Errorf("pgvector: decode metadata: %w", err)
			}
		}
		matches = append(matches, Match{ID: id, Score: score, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: search rows: %w", err)
	}
	return matches, nil
}

// Delete removes records by ID.
func (p *PGStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", p.tableIdent), ids); err != nil {
		return fmt.Errorf("pgvector: delete: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (p *PGStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", p.tableIdent)).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgvector: count: %w", err)
	}
	return n, nil
}

// Close releases the pool.
func (p *PGStore) Close() error {
	p.pool.Close()
	return nil
}
