package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyProvider fails the first failures calls, then delegates to a MockProvider.
type flakyProvider struct {
	*MockProvider
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	inputs   [][]string
}

func (f *flakyProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.inputs = append(f.inputs, append([]string(nil), texts...))
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.New("503 service unavailable")
	}
	return f.MockProvider.Embed(ctx, texts)
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Delay: time.Millisecond}
}

func TestClient_EmbedOneRetries(t *testing.T) {
	t.Run("Should succeed after exactly two retry delays", func(t *testing.T) {
		p := &flakyProvider{MockProvider: NewMockProvider(8), failures: 2}
		c := NewClient(p, WithRetryPolicy(fastPolicy(3)))
		var delays []time.Duration
		c.onRetry = func(_ int, d time.Duration) { delays = append(delays, d) }

		vec, err := c.EmbedOne(context.Background(), "Recipe: Tomato Soup")
		require.NoError(t, err)
		assert.Len(t, vec, 8)
		assert.Equal(t, 3, p.calls)
		assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, delays)
	})

	t.Run("Should give up after max attempts with an embedding error", func(t *testing.T) {
		p := &flakyProvider{MockProvider: NewMockProvider(8), failures: 100}
		c := NewClient(p, WithRetryPolicy(fastPolicy(3)))
		_, err := c.EmbedOne(context.Background(), "x")
		var embErr *Error
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, 3, embErr.Attempts)
		assert.Equal(t, 3, p.calls)
		assert.True(t, IsEmbeddingError(err))
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("Should not retry permanent errors", func(t *testing.T) {
		p := &flakyProvider{MockProvider: NewMockProvider(8), failures: 100, err: Permanent(errors.New("bad input"))}
		c := NewClient(p, WithRetryPolicy(fastPolicy(3)))
		_, err := c.EmbedOne(context.Background(), "x")
		var embErr *Error
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, 1, embErr.Attempts)
		assert.Equal(t, 1, p.calls)
	})

	t.Run("Should stop waiting when the context is cancelled", func(t *testing.T) {
		p := &flakyProvider{MockProvider: NewMockProvider(8), failures: 100}
		c := NewClient(p, WithRetryPolicy(RetryPolicy{MaxAttempts: 3, Delay: time.Hour}))
		ctx, cancel := context.WithCancel(context.Background())
		c.onRetry = func(int, time.Duration) { cancel() }
		done := make(chan error, 1)
		go func() {
			_, err := c.EmbedOne(ctx, "x")
			done <- err
		}()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 1, p.calls)
		case <-time.After(5 * time.Second):
			t.Fatal("retry delay was not interrupted by cancellation")
		}
	})
}

func TestClient_EmbedMany(t *testing.T) {
	t.Run("Should preserve order and flatten newlines", func(t *testing.T) {
		p := &flakyProvider{MockProvider: NewMockProvider(8)}
		c := NewClient(p)
		texts := []string{"Instructions Part 1/2:\nBoil water.", "Instructions Part 2/2:\nAdd salt."}
		vectors, err := c.EmbedMany(context.Background(), texts)
		require.NoError(t, err)
		require.Len(t, vectors, 2)
		assert.Equal(t, p.MockProvider.vector(strings.ReplaceAll(texts[1], "\n", " ")), vectors[1])
		for _, in := range p.inputs[0] {
			assert.NotContains(t, in, "\n")
		}
	})

	t.Run("Should retry batch requests with the same policy", func(t *testing.T) {
		p := &flakyProvider{MockProvider: NewMockProvider(8), failures: 1}
		c := NewClient(p, WithRetryPolicy(fastPolicy(3)))
		vectors, err := c.EmbedMany(context.Background(), []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Len(t, vectors, 3)
		assert.Equal(t, 2, p.calls)
	})

	t.Run("Should split into provider batches", func(t *testing.T) {
		p := &flakyProvider{MockProvider: NewMockProvider(4)}
		c := NewClient(p, WithBatchSize(2))
		vectors, err := c.EmbedMany(context.Background(), []string{"a", "b", "c", "d", "e"})
		require.NoError(t, err)
		assert.Len(t, vectors, 5)
		require.Len(t, p.inputs, 3)
		assert.Equal(t, []string{"e"}, p.inputs[2])
	})

	t.Run("Should reject empty input", func(t *testing.T) {
		c := NewClient(NewMockProvider(4))
		_, err := c.EmbedMany(context.Background(), nil)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("Should serve repeated texts from the cache", func(t *testing.T) {
		cache, err := NewCache(16)
		require.NoError(t, err)
		p := &flakyProvider{MockProvider: NewMockProvider(4)}
		c := NewClient(p, WithCache(cache))
		first, err := c.EmbedMany(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		second, err := c.EmbedMany(context.Background(), []string{"b", "a", "c"})
		require.NoError(t, err)
		assert.Equal(t, first[0], second[1])
		require.Len(t, p.inputs, 2)
		assert.Equal(t, []string{"c"}, p.inputs[1])
	})
}

type shortProvider struct{ *MockProvider }

func (s shortProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{make([]float32, s.dimensions)}, nil
}

func TestClient_ValidatesProviderOutput(t *testing.T) {
	var calls atomic.Int32
	c := NewClient(shortProvider{NewMockProvider(4)}, WithRetryPolicy(fastPolicy(3)))
	c.onRetry = func(int, time.Duration) { calls.Add(1) }
	_, err := c.EmbedMany(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 1 vectors for 2 texts")
	assert.Zero(t, calls.Load(), "count mismatch should not be retried")
}

type countingProvider struct {
	*MockProvider
	active, peak atomic.Int32
}

func (p *countingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return p.MockProvider.Embed(ctx, texts)
}

func TestClient_MaxInFlight(t *testing.T) {
	p := &countingProvider{MockProvider: NewMockProvider(4)}
	c := NewClient(p, WithMaxInFlight(2))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.EmbedOne(context.Background(), strings.Repeat("x", i+1))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, p.peak.Load(), int32(2))
}

func TestRetryPolicy_Backoff(t *testing.T) {
	b := RetryPolicy{MaxAttempts: 3, Delay: time.Second}.backoff()
	for i := 0; i < 2; i++ {
		d, stop := b.Next()
		assert.False(t, stop)
		assert.Equal(t, time.Second, d)
	}
	_, stop := b.Next()
	assert.True(t, stop)

	exp := RetryPolicy{MaxAttempts: 4, Delay: time.Second, Exponential: true, MaxDelay: 3 * time.Second}.backoff()
	var got []time.Duration
	for {
		d, stop := exp.Next()
		if stop {
			break
		}
		got = append(got, d)
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, got)
}
