package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/ports"
)

// Embedder serves vectors from the cache and embeds only the misses. Cache
// failures are logged and fall through to the wrapped embedder.
type Embedder struct {
	next   ports.Embedder
	cache  ports.EmbeddingCache
	model  string
	logger *slog.Logger
}

func NewEmbedder(next ports.Embedder, cache ports.EmbeddingCache, model string, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{next: next, cache: cache, model: model, logger: logger}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	var (
		missing []string
		slots   []int
	)
	for i, text := range texts {
		vec, err := e.cache.Get(ctx, Key(e.model, text))
		switch {
		case err == nil:
			out[i] = vec
			continue
		case !domain.IsKind(err, domain.ErrCacheMiss):
			e.logger.Warn("embedding_cache_get_failed", "error", err)
		}
		missing = append(missing, text)
		slots = append(slots, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := e.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(missing))
	}
	for j, vec := range vectors {
		out[slots[j]] = vec
		if err := e.cache.Set(ctx, Key(e.model, missing[j]), vec); err != nil {
			e.logger.Warn("embedding_cache_set_failed", "error", err)
		}
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
