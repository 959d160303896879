package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

func TestIndexUseCaseDeduplicatesAndBatches(t *testing.T) {
	store := &passageWriterFake{}
	vectors := &vectorIndexFake{}
	lexical := &lexicalIndexFake{}
	embedder := &embedderFake{fallback: []float32{1, 0}}
	var progress [][2]int

	uc := NewIndexUseCase(store, embedder, vectors,
		WithBatchSize(2),
		WithLexicalIndex(lexical),
		WithProgress(func(done, total int) { progress = append(progress, [2]int{done, total}) }),
	)

	report, err := uc.Index(context.Background(), []string{"alpha text", " alpha text ", "", "beta text", "gamma text"}, "train.csv")
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if report.Received != 5 || report.Duplicates != 1 || report.Skipped != 1 || report.Indexed != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if embedder.calls != 2 {
		t.Fatalf("expected 2 embedding batches, got %d", embedder.calls)
	}
	if len(store.saved) != 3 || len(vectors.vectors) != 3 || len(lexical.passages) != 3 {
		t.Fatalf("expected 3 passages everywhere, got %d/%d/%d", len(store.saved), len(vectors.vectors), len(lexical.passages))
	}
	if store.saved[2].Position != 2 || store.saved[0].Source != "train.csv" {
		t.Fatalf("unexpected passage metadata %+v", store.saved[2])
	}
	if store.saved[0].ID != PassageID("alpha text") {
		t.Fatalf("expected stable passage id")
	}
	if len(progress) != 2 || progress[1] != [2]int{3, 3} {
		t.Fatalf("unexpected progress %v", progress)
	}
}

func TestIndexUseCaseRejectsEmptyInput(t *testing.T) {
	uc := NewIndexUseCase(&passageWriterFake{}, &embedderFake{}, &vectorIndexFake{})
	_, err := uc.Index(context.Background(), []string{" ", ""}, "empty.txt")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestIndexUseCaseEmbedFailureStoresNothing(t *testing.T) {
	store := &passageWriterFake{}
	uc := NewIndexUseCase(store, &embedderFake{err: errors.New("ollama down")}, &vectorIndexFake{})
	if _, err := uc.Index(context.Background(), []string{"alpha"}, "a.txt"); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.saved) != 0 {
		t.Fatalf("expected nothing saved, got %d", len(store.saved))
	}
}

func TestPassageIDIsDeterministic(t *testing.T) {
	if PassageID("x") != PassageID("x") || PassageID("x") == PassageID("y") {
		t.Fatalf("passage ids must be stable and distinct")
	}
}
