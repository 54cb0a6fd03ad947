package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig configures the OpenAI embeddings provider.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
}

// OpenAIProvider calls the OpenAI embeddings endpoint.
type OpenAIProvider struct {
	llm        *openai.LLM
	model      string
	dimensions int
}

// NewOpenAIProvider creates a provider for the configured model.
// An empty APIKey falls back to OPENAI_API_KEY in the environment.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openai: embedding model is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.New("openai: dimensions must be positive")
	}
	opts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: initialize client: %w", err)
	}
	return &OpenAIProvider{llm: llm, model: cfg.Model, dimensions: cfg.Dimensions}, nil
}

// Embed sends all texts in one request.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		if isRejected(err) {
			return nil, Permanent(err)
		}
		return nil, err
	}
	return vectors, nil
}

// Dimensions returns the configured output size.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Model returns the model identifier.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Close is a no-op; the HTTP client holds no resources.
func (p *OpenAIProvider) Close() error {
	return nil
}

// isRejected matches request errors that will fail the same way on every attempt.
func isRejected(err error) bool {
	lower := strings.ToLower(err.Error())
	for _, marker := range []string{"status code: 400", "status code: 401", "status code: 403", "status code: 404", "invalid_request_error"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
