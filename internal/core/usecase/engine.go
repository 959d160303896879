package usecase

import (
	"log/slog"

	"github.com/kirillkom/answer-engine/internal/core/ports"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
)

// Engine holds the extraction, fusion and validation steps. It keeps no
// per-request state; optional collaborators only feed the question analysis.
type Engine struct {
	scorer    *scoring.Engine
	weights   scoring.Weights
	tokenizer ports.Tokenizer
	stemmer   ports.Stemmer
	entities  ports.EntityExtractor
	logger    *slog.Logger
}

type EngineOption func(*Engine)

func WithTokenizer(t ports.Tokenizer) EngineOption {
	return func(e *Engine) { e.tokenizer = t }
}

func WithStemmer(s ports.Stemmer) EngineOption {
	return func(e *Engine) { e.stemmer = s }
}

func WithEntityExtractor(x ports.EntityExtractor) EngineOption {
	return func(e *Engine) { e.entities = x }
}

func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(scorer *scoring.Engine, opts ...EngineOption) *Engine {
	if scorer == nil {
		scorer = scoring.DefaultEngine()
	}
	e := &Engine{
		scorer:  scorer,
		weights: scorer.Weights(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Scorer() *scoring.Engine {
	return e.scorer
}
