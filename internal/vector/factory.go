package vector

import (
	"context"
	"fmt"
	"time"
)

// Provider names a store backend.
type Provider string

const (
	// ProviderMemory uses in-memory brute-force search, optionally persisted to a file.
	ProviderMemory Provider = "memory"
	// ProviderSQLite stores vectors in a local SQLite table.
	ProviderSQLite Provider = "sqlite"
	// ProviderPGVector stores vectors in Postgres with the pgvector extension.
	ProviderPGVector Provider = "pgvector"
	// ProviderRedis stores vectors as Redis hashes.
	ProviderRedis Provider = "redis"
	// ProviderPinecone uses a provisioned Pinecone index.
	ProviderPinecone Provider = "pinecone"
)

// Config selects and configures a store backend.
type Config struct {
	Provider   string
	Dimensions int
	// Path is the file for memory and sqlite backends.
	Path  string
	Table string
	// DSN is the Postgres connection string or Redis URL.
	DSN       string
	Namespace string
	IndexHost string
	APIKey    string
	Timeout   time.Duration
}

// New creates a store of the configured provider.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch Provider(cfg.Provider) {
	case ProviderMemory, "":
		return NewMemoryStore(cfg.Dimensions, cfg.Path)
	case ProviderSQLite:
		return NewSQLiteStore(cfg.Path, cfg.Table, cfg.Dimensions)
	case ProviderPGVector:
		return NewPGStore(ctx, cfg.DSN, cfg.Table, cfg.Dimensions)
	case ProviderRedis:
		return NewRedisStore(ctx, cfg.DSN, cfg.Namespace, cfg.Dimensions)
	case ProviderPinecone:
		return NewPineconeStore(cfg.IndexHost, cfg.APIKey, cfg.Namespace, cfg.Dimensions, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown vector store provider: %s (supported: memory, sqlite, pgvector, redis, pinecone)", cfg.Provider)
	}
}
