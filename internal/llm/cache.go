package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of completions kept per client
const DefaultCacheSize = 256

// CachedClient wraps a Client with an LRU cache keyed by prompt,
// temperature, and endpoint. Pipeline stages frequently re-issue
// identical prompts (retries, re-scoring merged candidates), and a hit
// skips a full model round trip.
type CachedClient struct {
	inner Client
	cache *lru.Cache[string, string]
}

// NewCachedClient wraps inner with a completion cache of the given
// size. Size zero uses DefaultCacheSize.
func NewCachedClient(inner Client, size int) (*CachedClient, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion cache: %w", err)
	}
	return &CachedClient{inner: inner, cache: cache}, nil
}

// Complete implements Client
func (c *CachedClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	key := cacheKey(c.inner.Endpoint(), prompt, temperature)
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}

	text, err := c.inner.Complete(ctx, prompt, temperature)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, text)
	return text, nil
}

// Endpoint implements Client
func (c *CachedClient) Endpoint() string { return c.inner.Endpoint() }

// Close implements Client
func (c *CachedClient) Close() error { return c.inner.Close() }

// Len returns the number of cached completions
func (c *CachedClient) Len() int { return c.cache.Len() }

func cacheKey(endpoint, prompt string, temperature float64) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%.4f|%s", endpoint, temperature, prompt))
	return hex.EncodeToString(h[:])
}
