package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// CacheStore is the subset of the redis client the embedding cache needs.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
}

// CachedEmbedder is a read-through cache in front of an Embedder. Cache
// failures are treated as misses.
type CachedEmbedder struct {
	next   Embedder
	store  CacheStore
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedEmbedder(next Embedder, store CacheStore, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("service", "embedding_cache"),
	}
}

func (c *CachedEmbedder) Model() string   { return c.next.Model() }
func (c *CachedEmbedder) Dimensions() int { return c.next.Dimensions() }

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if v, ok := c.lookup(ctx, text); ok {
			vectors[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := c.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, &EmbeddingProviderError{Op: "decode", Err: fmt.Errorf("got %d embeddings for %d inputs", len(fresh), len(missing))}
	}

	for j, v := range fresh {
		vectors[missingIdx[j]] = v
		if err := c.store.Set(ctx, c.key(missing[j]), encodeVector(v), c.ttl); err != nil {
			c.logger.Debug("Embedding cache write failed", "error", err)
		}
	}
	return vectors, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%d:%s", c.next.Model(), c.next.Dimensions(), hex.EncodeToString(sum[:]))
}

func (c *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	raw, err := c.store.Get(ctx, c.key(text))
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil || len(v) == 0 {
		c.logger.Warn("Discarding unreadable cached embedding", "error", err)
		return nil, false
	}
	return v, true
}

func encodeVector(v []float32) []byte {
	data, _ := json.Marshal(v)
	return data
}
