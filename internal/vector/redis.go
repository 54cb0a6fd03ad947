package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	redisDefaultPrefix = "cookcut"
	redisValuesField   = "values"
	redisMetaField     = "metadata"
)

// RedisStore keeps each record in a hash and scores candidates client side.
// The ID set lets queries enumerate records without SCAN.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	dimensions int
}

// NewRedisStore connects to the Redis URL and verifies the connection.
func NewRedisStore(ctx context.Context, url, prefix string, dimensions int) (*RedisStore, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("redis: url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return newRedisStoreWithClient(client, prefix, dimensions)
}

func newRedisStoreWithClient(client redis.UniversalClient, prefix string, dimensions int) (*RedisStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = redisDefaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix, dimensions: dimensions}, nil
}

func (r *RedisStore) setKey() string { return r.prefix + ":ids" }

func (r *RedisStore) recordKey(id string) string { return r.prefix + ":vec:" + id }

// Dimensions returns the vector dimension.
func (r *RedisStore) Dimensions() int {
	return r.dimensions
}

// Upsert writes records through a single pipeline.
func (r *RedisStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	pipe := r.client.TxPipeline()
	for _, rec := range records {
		if len(rec.Values) != r.dimensions {
			return fmt.Errorf("redis: record %q: %w", rec.ID, dimensionError(len(rec.Values), r.dimensions))
		}
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("redis: marshal metadata for %q: %w", rec.ID, err)
		}
		pipe.HSet(ctx, r.recordKey(rec.ID), redisValuesField, float32SliceToBytes(rec.Values), redisMetaField, meta)
		pipe.SAdd(ctx, r.setKey(), rec.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: upsert pipeline: %w", err)
	}
	return nil
}

// Query loads every record, applies the filter, and ranks by cosine similarity.
func (r *RedisStore) Query(ctx context.Context, query []float32, opts QueryOptions) ([]Match, error) {
	if len(query) != r.dimensions {
		return nil, fmt.Errorf("redis: %w", dimensionError(len(query), r.dimensions))
	}
	if opts.TopK <= 0 {
		return nil, nil
	}
	ids, err := r.client.SMembers(ctx, r.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := r.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HMGet(ctx, r.recordKey(id), redisValuesField, redisMetaField)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: load records: %w", err)
	}
	matches := make([]Match, 0, len(ids))
	for i, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) != 2 || vals[0] == nil {
			continue
		}
		values, _ := vals[0].(string)
		var meta map[string]interface{}
		if raw, ok := vals[1].(string); ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &meta); err != nil {
				return nil, fmt.Errorf("redis: decode metadata for %q: %w", ids[i], err)
			}
		}
		if !MatchesFilter(meta, opts.Filter) {
			continue
		}
		matches = append(matches, Match{
			ID:       ids[i],
			Score:    CosineSimilarity(query, bytesToFloat32Slice([]byte(values))),
			Metadata: meta,
		})
	}
	return rankMatches(matches, opts.TopK), nil
}

// Delete removes records by ID.
func (r *RedisStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, r.recordKey(id))
		pipe.SRem(ctx, r.setKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.setKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: count: %w", err)
	}
	return int(n), nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
