package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const pineconeAPIVersion = "2024-07"

// PineconeStore talks to a provisioned Pinecone index over its data-plane REST API.
// The index itself (dimension, cosine metric) is created outside this process.
type PineconeStore struct {
	client     *resty.Client
	namespace  string
	dimensions int
}

type pineconeVector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type pineconeQueryRequest struct {
	Vector          []float32              `json:"vector"`
	TopK            int                    `json:"topK"`
	IncludeMetadata bool                   `json:"includeMetadata"`
	Filter          map[string]interface{} `json:"filter,omitempty"`
	Namespace       string                 `json:"namespace,omitempty"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string                 `json:"id"`
		Score    float64                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"matches"`
}

type pineconeStatsResponse struct {
	Dimension        int `json:"dimension"`
	TotalVectorCount int `json:"totalVectorCount"`
	Namespaces       map[string]struct {
		VectorCount int `json:"vectorCount"`
	} `json:"namespaces"`
}

// NewPineconeStore creates a client for the index served at host.
func NewPineconeStore(host, apiKey, namespace string, dimensions int, timeout time.Duration) (*PineconeStore, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return nil, errors.New("pinecone: index host is required")
	}
	if apiKey == "" {
		return nil, errors.New("pinecone: api key is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Api-Key", apiKey).
		SetHeader("X-Pinecone-API-Version", pineconeAPIVersion)
	return &PineconeStore{client: client, namespace: namespace, dimensions: dimensions}, nil
}

// Dimensions returns the vector dimension.
func (p *PineconeStore) Dimensions() int {
	return p.dimensions
}

// Upsert sends records in one request; callers keep batches under the API limit.
func (p *PineconeStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	vectors := make([]pineconeVector, len(records))
	for i, rec := range records {
		if len(rec.Values) != p.dimensions {
			return fmt.Errorf("pinecone: record %q: %w", rec.ID, dimensionError(len(rec.Values), p.dimensions))
		}
		vectors[i] = pineconeVector{ID: rec.ID, Values: rec.Values, Metadata: rec.Metadata}
	}
	resp, err := p.client.R().
		ForceContentType("application/json").
		SetContext(ctx).
		SetBody(map[string]interface{}{"vectors": vectors, "namespace": p.namespace}).
		Post("/vectors/upsert")
	if err != nil {
		return fmt.Errorf("pinecone: upsert: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("pinecone: upsert: %s", apiError(resp))
	}
	return nil
}

// Query runs a top-k query with an $eq filter per metadata key.
func (p *PineconeStore) Query(ctx context.Context, query []float32, opts QueryOptions) ([]Match, error) {
	if len(query) != p.dimensions {
		return nil, fmt.Errorf("pinecone: %w", dimensionError(len(query), p.dimensions))
	}
	if opts.TopK <= 0 {
		return nil, nil
	}
	req := pineconeQueryRequest{
		Vector:          query,
		TopK:            opts.TopK,
		IncludeMetadata: true,
		Namespace:       p.namespace,
	}
	if len(opts.Filter) > 0 {
		req.Filter = make(map[string]interface{}, len(opts.Filter))
		for k, v := range opts.Filter {
			req.Filter[k] = map[string]string{"$eq": v}
		}
	}
	var out pineconeQueryResponse
	resp, err := p.client.R().
		ForceContentType("application/json").
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/query")
	if err != nil {
		return nil, fmt.Errorf("pinecone: query: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("pinecone: query: %s", apiError(resp))
	}
	matches := make([]Match, len(out.Matches))
	for i, m := range out.Matches {
		matches[i] = Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return rankMatches(matches, opts.TopK), nil
}

// Delete removes records by ID.
func (p *PineconeStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	resp, err := p.client.R().
		ForceContentType("application/json").
		SetContext(ctx).
		SetBody(map[string]interface{}{"ids": ids, "namespace": p.namespace}).
		Post("/vectors/delete")
	if err != nil {
		return fmt.Errorf("pinecone: delete: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("pinecone: delete: %s", apiError(resp))
	}
	return nil
}

// Count returns the vector count of the configured namespace.
func (p *PineconeStore) Count(ctx context.Context) (int, error) {
	var out pineconeStatsResponse
	resp, err := p.client.R().
		ForceContentType("application/json").
		SetContext(ctx).
		SetBody(map[string]interface{}{}).
		SetResult(&out).
		Post("/describe_index_stats")
	if err != nil {
		return 0, fmt.Errorf("pinecone: stats: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("pinecone: stats: %s", apiError(resp))
	}
	if p.namespace == "" {
		return out.TotalVectorCount, nil
	}
	return out.Namespaces[p.namespace].VectorCount, nil
}

// Close is a no-op; the HTTP client has no persistent state to release.
func (p *PineconeStore) Close() error {
	return nil
}

func apiError(resp *resty.Response) string {
	body := strings.TrimSpace(resp.String())
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		return resp.Status()
	}
	return fmt.Sprintf("%s: %s", resp.Status(), body)
}
