package ports

import (
	"context"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the full answering pipeline.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string, topK int) (*domain.Answer, error)
}

// Scorer exposes the similarity and validation operations on their own.
type Scorer interface {
	Similarity(ctx context.Context, a, b string) (domain.SimilarityReport, error)
	Validate(ctx context.Context, question, answer string, contexts []string) (domain.ValidationReport, error)
}

// PassageIndexer builds the passage collection and its indexes.
type PassageIndexer interface {
	Index(ctx context.Context, texts []string, source string) (*domain.IndexReport, error)
}
