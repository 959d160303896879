package usecase

import (
	"sort"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/textproc"
)

// rescorePassages sets text similarity, entity overlap and the final score on
// fused passages and orders them by final score, fused rank, then text.
func (e *Engine) rescorePassages(in FusionInput, fused []domain.RetrievedPassage) []domain.RetrievedPassage {
	w := e.weights.Fusion
	head := make([]domain.RetrievedPassage, len(fused))
	copy(head, fused)

	texts := make([]string, len(head))
	for i := range head {
		texts[i] = head[i].Text
	}
	reports := e.scorer.SimilarityBatch(in.Query, texts, in.Vectors)
	queryEntities := entitySet(in.QueryEntities)

	for i := range head {
		head[i].TextSimilarity = reports[i].Composite
		head[i].EntityOverlap = entityOverlap(queryEntities, entitySet(in.PassageEntities[head[i].Text]))
		head[i].FinalScore = w.Fused*head[i].FusedScore +
			w.TextSimilarity*head[i].TextSimilarity +
			w.EntityOverlap*float64(head[i].EntityOverlap)
	}

	sort.SliceStable(head, func(i, j int) bool {
		if head[i].FinalScore != head[j].FinalScore {
			return head[i].FinalScore > head[j].FinalScore
		}
		if head[i].FusedRank != head[j].FusedRank {
			return head[i].FusedRank < head[j].FusedRank
		}
		return head[i].Text < head[j].Text
	})
	return head
}

func entitySet(entities []domain.Entity) map[string]struct{} {
	out := make(map[string]struct{}, len(entities))
	for _, ent := range entities {
		if key := textproc.Normalize(ent.Text); key != "" {
			out[key] = struct{}{}
		}
	}
	return out
}

func entityOverlap(query, passage map[string]struct{}) int {
	if len(query) == 0 || len(passage) == 0 {
		return 0
	}
	matches := 0
	for key := range query {
		if _, ok := passage[key]; ok {
			matches++
		}
	}
	return matches
}
