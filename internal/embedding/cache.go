package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is an LRU cache for embeddings keyed by model and text.
type Cache struct {
	lru *lru.Cache[string, []float32]
}

// NewCache creates a cache holding at most size embeddings.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Get returns a copy of the cached embedding if present.
func (c *Cache) Get(model, text string) ([]float32, bool) {
	v, ok := c.lru.Get(cacheKey(model, text))
	if !ok {
		return nil, false
	}
	return cloneVector(v), true
}

// Set stores a copy of the embedding, evicting the least recently used entry when full.
func (c *Cache) Set(model, text string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	c.lru.Add(cacheKey(model, text), cloneVector(vector))
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(src []float32) []float32 {
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
