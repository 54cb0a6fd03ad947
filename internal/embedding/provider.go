// Package embedding turns text into vectors through a remote provider with retry,
// rate limiting, and caching.
package embedding

import "context"

// Provider is one embedding backend. Embed returns one vector per input, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
	Close() error
}
