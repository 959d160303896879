package usecase

import (
	"context"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/ports"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
)

// ScoringService serves the similarity and validation steps on their own,
// fetching embeddings when an embedder is configured.
type ScoringService struct {
	engine   *Engine
	embedder ports.Embedder
}

func NewScoringService(engine *Engine, embedder ports.Embedder) *ScoringService {
	if engine == nil {
		engine = NewEngine(nil)
	}
	return &ScoringService{engine: engine, embedder: embedder}
}

func (s *ScoringService) Similarity(ctx context.Context, a, b string) (domain.SimilarityReport, error) {
	vectors := s.vectors(ctx, a, b)
	return s.engine.scorer.Compare(a, b, vectors), ctx.Err()
}

func (s *ScoringService) Validate(ctx context.Context, question, answer string, contexts []string) (domain.ValidationReport, error) {
	profile := s.engine.AnalyzeQuestion(ctx, question)
	texts := append([]string{question, answer}, contexts...)
	vectors := s.vectors(ctx, texts...)
	return s.engine.Validate(profile, question, answer, contexts, vectors), ctx.Err()
}

func (s *ScoringService) vectors(ctx context.Context, texts ...string) scoring.Vectors {
	set := scoring.VectorSet{}
	if s.embedder == nil {
		return set
	}
	embedded, err := s.embedder.Embed(ctx, texts)
	if err != nil || len(embedded) != len(texts) {
		if err != nil {
			s.engine.logger.Warn("collaborator_degraded", "collaborator", "embedder", "error", err)
		}
		return set
	}
	for i, t := range texts {
		if len(embedded[i]) > 0 {
			set[t] = embedded[i]
		}
	}
	return set
}
