package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/doeshing/promptmate/internal/ports"
)

// CacheConfig sizes the embedding cache.
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int64
}

// CachedEmbedder memoizes another Embedder for TTL, keyed by the sha256 of the text.
type CachedEmbedder struct {
	next  ports.Embedder
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewCachedEmbedder(next ports.Embedder, cfg CacheConfig) (*CachedEmbedder, error) {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, cache: cache, ttl: cfg.TTL}, nil
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(key, vec, 1, c.ttl)
	// ristretto admits writes asynchronously
	c.cache.Wait()
	return vec, nil
}

func (c *CachedEmbedder) Dimension() int {
	return c.next.Dimension()
}

// Close releases the cache goroutines.
func (c *CachedEmbedder) Close() {
	c.cache.Close()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

var _ ports.Embedder = (*CachedEmbedder)(nil)
