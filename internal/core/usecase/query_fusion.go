package usecase

import (
	"sort"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
)

// FusionInput is everything Fuse needs. Passage entities and vectors are
// keyed by passage text; both may be missing.
type FusionInput struct {
	Vector          []domain.ScoredText
	Lexical         []domain.ScoredText
	Query           string
	QueryEntities   []domain.Entity
	PassageEntities map[string][]domain.Entity
	Vectors         scoring.Vectors
	TopK            int
}

type fusedCandidate struct {
	passage    domain.RetrievedPassage
	hasVector  bool
	hasLexical bool
}

// Fuse merges the vector and lexical lists by passage text, re-scores every
// merged passage against the query and returns the best TopK. The output
// depends only on the input values.
func (e *Engine) Fuse(in FusionInput) []domain.RetrievedPassage {
	merged := mergeRetrievalLists(in.Vector, in.Lexical, e.weights.Fusion)
	if len(merged) == 0 {
		return []domain.RetrievedPassage{}
	}
	rescored := e.rescorePassages(in, merged)
	return trimPassages(rescored, in.TopK)
}

// mergeRetrievalLists combines both lists into fused scores. A passage seen
// twice in one list keeps its first score; absence from a list adds nothing.
func mergeRetrievalLists(vector, lexical []domain.ScoredText, w scoring.FusionWeights) []domain.RetrievedPassage {
	acc := make(map[string]*fusedCandidate, len(vector)+len(lexical))
	order := make([]string, 0, len(vector)+len(lexical))
	get := func(text string) *fusedCandidate {
		c, ok := acc[text]
		if !ok {
			c = &fusedCandidate{passage: domain.RetrievedPassage{Text: text}}
			acc[text] = c
			order = append(order, text)
		}
		return c
	}

	for _, hit := range vector {
		if hit.Text == "" {
			continue
		}
		c := get(hit.Text)
		if c.hasVector {
			continue
		}
		c.hasVector = true
		c.passage.VectorScore = hit.Score
	}
	for _, hit := range lexical {
		if hit.Text == "" {
			continue
		}
		c := get(hit.Text)
		if c.hasLexical {
			continue
		}
		c.hasLexical = true
		c.passage.LexicalScore = hit.Score
	}

	out := make([]domain.RetrievedPassage, 0, len(order))
	for _, text := range order {
		p := acc[text].passage
		p.FusedScore = w.Vector*p.VectorScore + w.Lexical*p.LexicalScore
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].Text < out[j].Text
	})
	for i := range out {
		out[i].FusedRank = i
	}
	return out
}

func trimPassages(passages []domain.RetrievedPassage, limit int) []domain.RetrievedPassage {
	if limit <= 0 || len(passages) <= limit {
		return passages
	}
	return passages[:limit]
}
