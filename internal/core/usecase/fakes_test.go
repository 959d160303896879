package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

// embedderFake returns the vector registered for a text, or a fixed vector.
type embedderFake struct {
	mu       sync.Mutex
	byText   map[string][]float32
	fallback []float32
	err      error
	calls    int
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.byText[t]; ok {
			out[i] = v
			continue
		}
		out[i] = f.fallback
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

type vectorSearchFake struct {
	hits []domain.ScoredID
	err  error
	k    int
}

func (f *vectorSearchFake) SearchVectors(_ context.Context, _ []float32, k int) ([]domain.ScoredID, error) {
	f.k = k
	return f.hits, f.err
}

type passageStoreFake struct {
	texts map[string]string
	err   error
}

func (f *passageStoreFake) Passages(_ context.Context, ids []string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if t, ok := f.texts[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (f *passageStoreFake) ListPassages(context.Context) ([]domain.Passage, error) {
	out := make([]domain.Passage, 0, len(f.texts))
	for id, t := range f.texts {
		out = append(out, domain.Passage{ID: id, Text: t})
	}
	return out, nil
}

type lexicalSearchFake struct {
	hits []domain.ScoredText
	err  error
	k    int
}

func (f *lexicalSearchFake) SearchLexical(_ context.Context, _ string, k int) ([]domain.ScoredText, error) {
	f.k = k
	return f.hits, f.err
}

type entitiesFake struct {
	byText map[string][]domain.Entity
	err    error
}

func (f *entitiesFake) ExtractEntities(_ context.Context, text string) ([]domain.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byText[text], nil
}

type generatorFake struct {
	text   string
	err    error
	prompt string
}

func (f *generatorFake) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

type tokenizerFake struct {
	tokens []string
	err    error
}

func (f *tokenizerFake) Tokenize(context.Context, string) ([]string, error) {
	return f.tokens, f.err
}

type stemmerFake struct {
	stems map[string]string
	err   error
}

func (f *stemmerFake) Stem(_ context.Context, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if s, ok := f.stems[token]; ok {
		return s, nil
	}
	return token, nil
}

type observerFake struct {
	mu       sync.Mutex
	sources  []domain.AnswerSource
	degraded []string
}

func (f *observerFake) ObserveAnswer(source domain.AnswerSource, _ float64, _ int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, source)
}

func (f *observerFake) ObserveDegraded(collaborator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.degraded = append(f.degraded, collaborator)
}

type passageWriterFake struct {
	saved []domain.Passage
	err   error
}

func (f *passageWriterFake) SavePassages(_ context.Context, passages []domain.Passage) error {
	f.saved = append(f.saved, passages...)
	return f.err
}

type vectorIndexFake struct {
	passages []domain.Passage
	vectors  [][]float32
}

func (f *vectorIndexFake) IndexPassages(_ context.Context, passages []domain.Passage, vectors [][]float32) error {
	f.passages = append(f.passages, passages...)
	f.vectors = append(f.vectors, vectors...)
	return nil
}

type lexicalIndexFake struct {
	passages []domain.Passage
}

func (f *lexicalIndexFake) IndexTexts(_ context.Context, passages []domain.Passage) error {
	f.passages = append(f.passages, passages...)
	return nil
}
