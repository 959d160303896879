package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
)

func TestExtractCandidatesRanksAnswerSentenceFirst(t *testing.T) {
	e := NewEngine(nil)
	question := "What is the capital of Country X?"
	context := "Bananas grow well in warm and humid places. The capital of Country X is City Y. " +
		"The museum opens every morning at nine. Rivers carry fresh water to the sea."

	profile := e.AnalyzeQuestion(contextBackground(), question)
	got := e.ExtractCandidates(profile, question, context, nil)
	if len(got) == 0 {
		t.Fatalf("expected candidates")
	}
	if got[0].Text != "The capital of Country X is City Y" {
		t.Fatalf("expected capital sentence first, got %q", got[0].Text)
	}
	for _, c := range got[1:] {
		if got[0].CompositeScore-c.CompositeScore < 0.2 {
			t.Fatalf("distractor %q too close: %v vs %v", c.Text, c.CompositeScore, got[0].CompositeScore)
		}
	}
	if got[0].KeywordScore != 1 {
		t.Fatalf("expected full keyword coverage, got %v", got[0].KeywordScore)
	}
	if !hasString(got[0].SelectionReasons, reasonKeyword) || !hasString(got[0].SelectionReasons, reasonLength) {
		t.Fatalf("unexpected reasons %v", got[0].SelectionReasons)
	}
}

func TestExtractCandidatesBoundsAndThreshold(t *testing.T) {
	e := NewEngine(nil)
	question := "What is the capital of Country X?"
	sentences := []string{
		"The capital of Country X is City Y",
		"Country X has its capital in City Y",
		"The capital city of Country X is large",
		"People in Country X visit the capital often",
		"The capital of Country X hosts the parliament",
		"The capital of Country X was founded long ago",
		"Country X moved its capital once",
		"Tiny",
	}
	profile := e.AnalyzeQuestion(contextBackground(), question)
	got := e.ExtractCandidates(profile, question, strings.Join(sentences, ". "), nil)

	if len(got) > 5 {
		t.Fatalf("expected at most 5 candidates, got %d", len(got))
	}
	for i, c := range got {
		if c.CompositeScore <= 0.2 {
			t.Fatalf("candidate %q below threshold: %v", c.Text, c.CompositeScore)
		}
		if i > 0 && got[i-1].CompositeScore < c.CompositeScore {
			t.Fatalf("candidates not sorted at %d", i)
		}
	}
}

func TestExtractCandidatesSemanticReasonNeedsVectors(t *testing.T) {
	e := NewEngine(nil)
	question := "What is the capital of Country X?"
	sentence := "The capital of Country X is City Y"
	vec := []float32{0.4, 0.4, 0.2}
	profile := e.AnalyzeQuestion(contextBackground(), question)

	with := e.ExtractCandidates(profile, question, sentence, scoring.VectorSet{question: vec, sentence: vec})
	without := e.ExtractCandidates(profile, question, sentence, nil)
	if len(with) != 1 || len(without) != 1 {
		t.Fatalf("expected one candidate each, got %d and %d", len(with), len(without))
	}
	// Seven normalized tokens scale the cosine to 0.5, below the tag threshold.
	if hasString(with[0].SelectionReasons, reasonSemantic) {
		t.Fatalf("short pair should not be tagged semantic: %v", with[0].SelectionReasons)
	}
	if with[0].CompositeScore <= without[0].CompositeScore {
		t.Fatalf("semantic signal should raise the score")
	}
}

func TestExtractCandidatesEntityMatch(t *testing.T) {
	e := NewEngine(nil)
	profile := domain.QuestionProfile{
		Keywords: []string{"capital"},
		Entities: []domain.Entity{{Text: "Country X", Label: "LOC"}},
	}
	got := e.ExtractCandidates(profile, "capital of Country X", "The capital of Country X is City Y.", nil)
	if len(got) != 1 || got[0].EntityScore != 1 || !hasString(got[0].SelectionReasons, reasonEntity) {
		t.Fatalf("expected entity match, got %+v", got)
	}
}

func TestExtractCandidatesEmptyContext(t *testing.T) {
	e := NewEngine(nil)
	got := e.ExtractCandidates(domain.QuestionProfile{}, "question", "", nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestKeywordScoreUsesStems(t *testing.T) {
	if got := keywordScore([]string{"capitals"}, []string{"capital"}, "the capital city"); got != 1 {
		t.Fatalf("expected stem hit, got %v", got)
	}
	if got := keywordScore([]string{"capitals"}, nil, "the capital city"); got != 0 {
		t.Fatalf("expected no hit without stem, got %v", got)
	}
}

func TestKeywordScoreIgnoresStemsByDefault(t *testing.T) {
	profile := domain.QuestionProfile{
		Keywords:     []string{"universe", "located"},
		KeywordStems: []string{"univers", "locat"},
	}
	sentence := "she studied at the university in the north"

	if got := NewEngine(nil).keywordScore(profile, sentence); got != 0 {
		t.Fatalf("expected literal keyword matching only, got %v", got)
	}

	w := scoring.DefaultWeights()
	w.Extraction.MatchStems = true
	scorer, err := scoring.NewEngine(w)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if got := NewEngine(scorer).keywordScore(profile, sentence); got != 0.5 {
		t.Fatalf("expected stem hit when enabled, got %v", got)
	}
}

func contextBackground() context.Context {
	return context.Background()
}

func hasString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
