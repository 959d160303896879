package usecase

import (
	"strings"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
	"github.com/kirillkom/answer-engine/internal/core/textproc"
)

// Combine merges several candidates into one answer of at most a few distinct
// sentences in discovery order. A single candidate is returned unchanged.
// Sentence vectors come from vectors; without them the semantic signal is
// unavailable and near-duplicates are harder to detect.
func (e *Engine) Combine(candidates []domain.AnswerCandidate, vectors scoring.Vectors) string {
	switch len(candidates) {
	case 0:
		return ""
	case 1:
		return candidates[0].Text
	}

	cp := e.weights.Combine
	kept := make([]string, 0, cp.MaxSentences)
	for _, c := range candidates {
		for _, sentence := range textproc.SplitTerminal(c.Text, cp.MinSentenceRunes) {
			if len(kept) == cp.MaxSentences {
				break
			}
			if e.duplicatesAny(sentence, kept, vectors) {
				continue
			}
			kept = append(kept, sentence)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, ". ") + "."
}

// duplicatesAny reports whether sentence repeats a kept one. Without vectors
// the composite is rescaled over the signals that are present so the
// threshold keeps its meaning.
func (e *Engine) duplicatesAny(sentence string, kept []string, vectors scoring.Vectors) bool {
	norm := textproc.Normalize(sentence)
	semantic := e.scorer.Weights().Similarity.SemanticCosine
	for _, k := range kept {
		if norm != "" && norm == textproc.Normalize(k) {
			return true
		}
		r := e.scorer.Compare(sentence, k, vectors)
		score := r.Composite
		if r.SemanticState == domain.SignalUnavailable && semantic < 1 {
			score /= 1 - semantic
		}
		if score > e.weights.Combine.DuplicateSimilarity {
			return true
		}
	}
	return false
}
