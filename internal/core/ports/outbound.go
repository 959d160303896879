package ports

import (
	"context"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

// Embedder builds vectors for passages and question text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher ranks passage ids by vector similarity.
type VectorSearcher interface {
	SearchVectors(ctx context.Context, vector []float32, k int) ([]domain.ScoredID, error)
}

// VectorIndexer writes passage vectors into the vector index.
type VectorIndexer interface {
	IndexPassages(ctx context.Context, passages []domain.Passage, vectors [][]float32) error
}

// PassageStore resolves passage ids to text. Unknown ids are omitted from
// the result.
type PassageStore interface {
	Passages(ctx context.Context, ids []string) (map[string]string, error)
	ListPassages(ctx context.Context) ([]domain.Passage, error)
}

// PassageWriter persists the passage collection.
type PassageWriter interface {
	SavePassages(ctx context.Context, passages []domain.Passage) error
}

// LexicalSearcher ranks passage texts by keyword relevance.
type LexicalSearcher interface {
	SearchLexical(ctx context.Context, text string, k int) ([]domain.ScoredText, error)
}

// LexicalIndexer adds passages to the lexical index.
type LexicalIndexer interface {
	IndexTexts(ctx context.Context, passages []domain.Passage) error
}

type Tokenizer interface {
	Tokenize(ctx context.Context, text string) ([]string, error)
}

type Stemmer interface {
	Stem(ctx context.Context, token string) (string, error)
}

type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) ([]domain.Entity, error)
}

// AnswerGenerator produces free text from an already formatted prompt.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptFormatter turns a question and its supporting contexts into a
// generator prompt. The strategy is chosen by the caller.
type PromptFormatter func(question string, contexts []string) string

// EmbeddingCache stores vectors by key. Get returns domain.ErrCacheMiss
// when the key is absent.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float32, error)
	Set(ctx context.Context, key string, vector []float32) error
}

// Chunker splits long source text into passages.
type Chunker interface {
	Split(text string) []string
}

// SourceLoader reads raw passages from a source file.
type SourceLoader interface {
	Load(ctx context.Context, path string) ([]string, error)
}

// QuestionQueue carries question requests over a message broker.
type QuestionQueue interface {
	Ask(ctx context.Context, req domain.QuestionRequest) (*domain.Answer, error)
	ServeQuestions(ctx context.Context, handler func(context.Context, domain.QuestionRequest) (*domain.Answer, error)) error
}
