package nlp

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot/pipelines"
)

type featureExtractor interface {
	RunPipeline(inputs []string) (*pipelines.FeatureExtractionOutput, error)
}

// Embedder produces sentence embeddings in-process.
type Embedder struct {
	pipeline featureExtractor
}

func NewEmbedder(p featureExtractor) *Embedder {
	return &Embedder{pipeline: p}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("embedding pipeline: got %d vectors for %d texts", got, len(texts))
	}
	return result.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
