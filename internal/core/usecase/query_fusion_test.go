package usecase

import (
	"math"
	"reflect"
	"testing"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
)

func TestMergeRetrievalListsWeightsContributions(t *testing.T) {
	vector := []domain.ScoredText{{Text: "A", Score: 1.0}, {Text: "B", Score: 0.5}}
	lexical := []domain.ScoredText{{Text: "B", Score: 1.0}, {Text: "C", Score: 0.8}}

	got := mergeRetrievalLists(vector, lexical, scoring.DefaultWeights().Fusion)
	if len(got) != 3 {
		t.Fatalf("expected 3 merged passages, got %d", len(got))
	}
	want := map[string]float64{"A": 0.7, "B": 0.65, "C": 0.24}
	for i, p := range got {
		if math.Abs(p.FusedScore-want[p.Text]) > 1e-9 {
			t.Fatalf("%s fused = %v, want %v", p.Text, p.FusedScore, want[p.Text])
		}
		if p.FusedRank != i {
			t.Fatalf("%s rank = %d, want %d", p.Text, p.FusedRank, i)
		}
	}
	if got[0].Text != "A" || got[1].Text != "B" || got[2].Text != "C" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestMergeRetrievalListsFirstOccurrenceWins(t *testing.T) {
	vector := []domain.ScoredText{{Text: "A", Score: 0.9}, {Text: "A", Score: 0.1}, {Text: "", Score: 1}}
	got := mergeRetrievalLists(vector, nil, scoring.DefaultWeights().Fusion)
	if len(got) != 1 || got[0].VectorScore != 0.9 {
		t.Fatalf("expected first score kept, got %+v", got)
	}
}

func TestFuseIsDeterministic(t *testing.T) {
	e := NewEngine(nil)
	in := FusionInput{
		Vector: []domain.ScoredText{
			{Text: "The capital of Country X is City Y.", Score: 0.8},
			{Text: "Bananas grow in warm places.", Score: 0.8},
			{Text: "City Y lies on a river.", Score: 0.6},
		},
		Lexical: []domain.ScoredText{
			{Text: "City Y lies on a river.", Score: 1.0},
			{Text: "Country X exports coffee.", Score: 0.7},
		},
		Query: "What is the capital of Country X?",
		TopK:  3,
	}

	first := e.Fuse(in)
	for i := 0; i < 20; i++ {
		if again := e.Fuse(in); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%v\n%v", i, first, again)
		}
	}
	if len(first) != 3 {
		t.Fatalf("expected top 3, got %d", len(first))
	}
}

func TestFuseTieBreaksByFusedRankThenText(t *testing.T) {
	e := NewEngine(nil)
	got := e.Fuse(FusionInput{
		Vector: []domain.ScoredText{{Text: "???", Score: 0.5}, {Text: "!!!", Score: 0.5}},
		Query:  "anything at all",
	})
	if len(got) != 2 || got[0].Text != "!!!" || got[1].Text != "???" {
		t.Fatalf("unexpected tie order %+v", got)
	}
	if got[0].FinalScore != got[1].FinalScore {
		t.Fatalf("expected identical final scores")
	}
}

func TestFuseCountsEntityOverlap(t *testing.T) {
	e := NewEngine(nil)
	paris := "Paris is the capital of France."
	lyon := "Lyon is a large city in France."
	got := e.Fuse(FusionInput{
		Vector:        []domain.ScoredText{{Text: lyon, Score: 0.5}, {Text: paris, Score: 0.5}},
		Query:         "Where is Paris?",
		QueryEntities: []domain.Entity{{Text: "Paris", Label: "LOC"}, {Text: "PARIS", Label: "LOC"}},
		PassageEntities: map[string][]domain.Entity{
			paris: {{Text: "Paris", Label: "LOC"}, {Text: "France", Label: "LOC"}},
			lyon:  {{Text: "Lyon", Label: "LOC"}, {Text: "France", Label: "LOC"}},
		},
	})
	if got[0].Text != paris || got[0].EntityOverlap != 1 || got[1].EntityOverlap != 0 {
		t.Fatalf("unexpected overlap %+v", got)
	}
	w := scoring.DefaultWeights().Fusion
	for _, p := range got {
		want := w.Fused*p.FusedScore + w.TextSimilarity*p.TextSimilarity + w.EntityOverlap*float64(p.EntityOverlap)
		if math.Abs(p.FinalScore-want) > 1e-12 {
			t.Fatalf("final score %v, want %v", p.FinalScore, want)
		}
	}
}

func TestFuseEmptyInput(t *testing.T) {
	got := NewEngine(nil).Fuse(FusionInput{Query: "q", TopK: 5})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", got)
	}
}
