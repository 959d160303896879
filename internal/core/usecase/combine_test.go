package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
)

func TestCombineSingleCandidateUnchanged(t *testing.T) {
	e := NewEngine(nil)
	text := "only one answer without terminator"
	if got := e.Combine([]domain.AnswerCandidate{{Text: text}}, nil); got != text {
		t.Fatalf("expected unchanged text, got %q", got)
	}
	if got := e.Combine(nil, nil); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestCombineDropsNearDuplicates(t *testing.T) {
	e := NewEngine(nil)
	c1 := "The capital of Country X is City Y and it is large"
	c2 := "The capital of Country X is City Y and it is big"
	vec := []float32{0.3, 0.3, 0.4}
	vectors := scoring.VectorSet{c1: vec, c2: vec}

	if sim := e.Scorer().Compare(c2, c1, vectors).Composite; sim <= 0.7 {
		t.Fatalf("fixture must be near-duplicate, got %v", sim)
	}

	got := e.Combine([]domain.AnswerCandidate{{Text: c1}, {Text: c2}}, vectors)
	if got != c1+"." {
		t.Fatalf("expected only first candidate, got %q", got)
	}
}

func TestCombineJoinsDistinctSentences(t *testing.T) {
	e := NewEngine(nil)
	got := e.Combine([]domain.AnswerCandidate{
		{Text: "City Y is the capital of Country X. It was founded long ago!"},
		{Text: "Bananas grow in warm places. Short. Rivers feed the valley farms."},
	}, nil)

	want := "City Y is the capital of Country X. It was founded long ago. Bananas grow in warm places."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if strings.HasSuffix(got, "..") {
		t.Fatalf("expected exactly one terminator")
	}
}

func TestCombineDropsRepeatsWithoutVectors(t *testing.T) {
	e := NewEngine(nil)
	c := "The capital of Country X is City Y and it is large"

	got := e.Combine([]domain.AnswerCandidate{{Text: c}, {Text: c}}, nil)
	if got != c+"." {
		t.Fatalf("expected a single sentence, got %q", got)
	}

	got = e.Combine([]domain.AnswerCandidate{{Text: c + "!"}, {Text: strings.ToUpper(c)}}, nil)
	if got != c+"." {
		t.Fatalf("expected case variant to be dropped, got %q", got)
	}
}
