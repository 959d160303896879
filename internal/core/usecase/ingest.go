package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/ports"
)

const defaultEmbedBatch = 32

// passageNamespace keeps passage ids stable across re-indexing runs.
var passageNamespace = uuid.MustParse("6f1f4e7a-2d8b-4c55-9d0e-5b3a1c7e9f21")

// IndexUseCase builds the passage collection: deduplicate, embed in batches,
// persist, then feed the vector and lexical indexes.
type IndexUseCase struct {
	store     ports.PassageWriter
	embedder  ports.Embedder
	vectors   ports.VectorIndexer
	lexical   ports.LexicalIndexer
	batchSize int
	progress  func(done, total int)
	logger    *slog.Logger
}

type IndexOption func(*IndexUseCase)

func WithBatchSize(n int) IndexOption {
	return func(uc *IndexUseCase) {
		if n > 0 {
			uc.batchSize = n
		}
	}
}

func WithProgress(fn func(done, total int)) IndexOption {
	return func(uc *IndexUseCase) { uc.progress = fn }
}

func WithLexicalIndex(idx ports.LexicalIndexer) IndexOption {
	return func(uc *IndexUseCase) { uc.lexical = idx }
}

func WithIndexLogger(l *slog.Logger) IndexOption {
	return func(uc *IndexUseCase) {
		if l != nil {
			uc.logger = l
		}
	}
}

func NewIndexUseCase(
	store ports.PassageWriter,
	embedder ports.Embedder,
	vectors ports.VectorIndexer,
	opts ...IndexOption,
) *IndexUseCase {
	uc := &IndexUseCase{
		store:     store,
		embedder:  embedder,
		vectors:   vectors,
		batchSize: defaultEmbedBatch,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func PassageID(text string) string {
	return uuid.NewSHA1(passageNamespace, []byte(text)).String()
}

func (uc *IndexUseCase) Index(ctx context.Context, texts []string, source string) (*domain.IndexReport, error) {
	report := &domain.IndexReport{Source: source, Received: len(texts)}
	passages := uc.preparePassages(texts, source, report)
	if len(passages) == 0 {
		return report, domain.WrapError(domain.ErrInvalidInput, "index passages", errors.New("no usable passages"))
	}

	vectors, err := uc.embed(ctx, passages)
	if err != nil {
		return report, err
	}

	if err := uc.store.SavePassages(ctx, passages); err != nil {
		return report, fmt.Errorf("save passages: %w", err)
	}
	if err := uc.vectors.IndexPassages(ctx, passages, vectors); err != nil {
		return report, fmt.Errorf("index vectors: %w", err)
	}
	if uc.lexical != nil {
		if err := uc.lexical.IndexTexts(ctx, passages); err != nil {
			return report, fmt.Errorf("index lexical: %w", err)
		}
	}

	report.Indexed = len(passages)
	uc.logger.Info("passages_indexed",
		"source", source,
		"received", report.Received,
		"duplicates", report.Duplicates,
		"skipped", report.Skipped,
		"indexed", report.Indexed,
	)
	return report, nil
}

func (uc *IndexUseCase) preparePassages(texts []string, source string, report *domain.IndexReport) []domain.Passage {
	seen := make(map[string]struct{}, len(texts))
	out := make([]domain.Passage, 0, len(texts))
	for _, raw := range texts {
		text := strings.TrimSpace(raw)
		if text == "" {
			report.Skipped++
			continue
		}
		if _, ok := seen[text]; ok {
			report.Duplicates++
			continue
		}
		seen[text] = struct{}{}
		out = append(out, domain.Passage{
			ID:       PassageID(text),
			Text:     text,
			Source:   source,
			Position: len(out),
		})
	}
	return out
}

func (uc *IndexUseCase) embed(ctx context.Context, passages []domain.Passage) ([][]float32, error) {
	vectors := make([][]float32, 0, len(passages))
	for start := 0; start < len(passages); start += uc.batchSize {
		end := min(start+uc.batchSize, len(passages))
		batch := make([]string, 0, end-start)
		for _, p := range passages[start:end] {
			batch = append(batch, p.Text)
		}

		embedded, err := uc.embedder.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed passages: %w", err)
		}
		if len(embedded) != len(batch) {
			return nil, fmt.Errorf("embed passages: got %d vectors for %d texts", len(embedded), len(batch))
		}
		vectors = append(vectors, embedded...)
		if uc.progress != nil {
			uc.progress(end, len(passages))
		}
	}
	return vectors, nil
}
