package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/cookcut/internal/metrics"
	"github.com/hyperjump/cookcut/pkg/utils"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// RetryPolicy controls how a failed provider call is retried.
// MaxAttempts counts the first call, so 3 means at most two retries.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Exponential bool
	MaxDelay    time.Duration
}

// DefaultRetryPolicy makes three attempts five seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second}
}

func (p RetryPolicy) backoff() retry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	var b retry.Backoff
	if p.Exponential {
		b = retry.NewExponential(delay)
	} else {
		b = retry.NewConstant(delay)
	}
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// Client wraps a Provider with one retry policy shared by single and batch requests.
type Client struct {
	provider  Provider
	policy    RetryPolicy
	batchSize int
	limiter   *rate.Limiter
	inFlight  *semaphore.Weighted
	cache     *Cache
	metrics   *metrics.Collector
	logger    *zap.Logger
	// onRetry observes each scheduled retry; used by tests.
	onRetry func(attempt int, delay time.Duration)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger for retry warnings.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// WithBatchSize caps the number of texts per provider request.
func WithBatchSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithRateLimit throttles provider requests to rps with the given burst.
// rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxInFlight caps concurrent provider requests across all callers.
func WithMaxInFlight(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.inFlight = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithCache enables the embedding cache.
func WithCache(cache *Cache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithMetrics records request outcomes into m.
func WithMetrics(m *metrics.Collector) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for provider.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider:  provider,
		policy:    DefaultRetryPolicy(),
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

// Dimensions returns the provider's vector size.
func (c *Client) Dimensions() int {
	return c.provider.Dimensions()
}

// Model returns the provider's model identifier.
func (c *Client) Model() string {
	return c.provider.Model()
}

// Close closes the provider.
func (c *Client) Close() error {
	return c.provider.Close()
}

// EmbedOne embeds a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedMany embeds texts and returns vectors in input order. Newlines are replaced
// with spaces before embedding. Texts are sent in provider batches of the configured
// size; each batch is retried under the client's policy.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &Error{Err: ErrEmptyInput}
	}
	model := c.provider.Model()
	out := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	flat := make([]string, len(texts))
	for i, text := range texts {
		flat[i] = utils.FlattenNewlines(text)
		if c.cache != nil {
			if v, ok := c.cache.Get(model, flat[i]); ok {
				out[i] = v
				continue
			}
		}
		missing = append(missing, i)
	}
	if c.cache != nil {
		c.metrics.EmbedCache(len(texts)-len(missing), len(missing))
	}
	for start := 0; start < len(missing); start += c.batchSize {
		end := start + c.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		idx := missing[start:end]
		batch := make([]string, len(idx))
		for i, j := range idx {
			batch[i] = flat[j]
		}
		vectors, err := c.embedWithRetry(ctx, batch)
		if err != nil {
			return nil, err
		}
		for i, j := range idx {
			out[j] = vectors[i]
			if c.cache != nil {
				c.cache.Set(model, flat[j], vectors[i])
			}
		}
	}
	return out, nil
}

func (c *Client) embedWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	started := time.Now()
	attempts := 0
	var vectors [][]float32
	backoff := retry.BackoffFunc(c.policy.backoff().Next)
	observed := retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := backoff.Next()
		if !stop {
			c.logger.Warn("embedding request failed, retrying",
				zap.Int("attempt", attempts),
				zap.Duration("delay", d),
				zap.Int("batch_size", len(batch)))
			c.metrics.EmbedRetry()
			if c.onRetry != nil {
				c.onRetry(attempts, d)
			}
		}
		return d, stop
	})
	err := retry.Do(ctx, observed, func(ctx context.Context) error {
		attempts++
		v, err := c.call(ctx, batch)
		if err != nil {
			if IsPermanent(err) || ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		vectors = v
		return nil
	})
	c.metrics.EmbedRequest(err == nil, time.Since(started))
	if err != nil {
		return nil, &Error{Attempts: attempts, Batch: len(batch), Err: err}
	}
	return vectors, nil
}

func (c *Client) call(ctx context.Context, batch []string) ([][]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.inFlight != nil {
		if err := c.inFlight.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer c.inFlight.Release(1)
	}
	vectors, err := c.provider.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		return nil, Permanent(fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(batch)))
	}
	dims := c.provider.Dimensions()
	for i, v := range vectors {
		if len(v) != dims {
			return nil, Permanent(fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dims))
		}
	}
	return vectors, nil
}

// IsEmbeddingError reports whether err came from a failed embedding request.
func IsEmbeddingError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
