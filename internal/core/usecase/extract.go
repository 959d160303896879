package usecase

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
	"github.com/kirillkom/answer-engine/internal/core/textproc"
)

const (
	reasonSemantic = "strong semantic similarity"
	reasonKeyword  = "keyword match"
	reasonEntity   = "entity match"
	reasonLength   = "suitable length"
)

// ExtractCandidates splits context into sentences and ranks those that look
// like answers to the question, best first. vectors may be nil.
func (e *Engine) ExtractCandidates(
	profile domain.QuestionProfile,
	question, context string,
	vectors scoring.Vectors,
) []domain.AnswerCandidate {
	ew := e.weights.Extraction

	type segment struct {
		text     string
		position int
	}
	var segments []segment
	for i, s := range textproc.SplitSentences(context) {
		if utf8.RuneCountInString(s) < ew.MinSentenceRunes {
			continue
		}
		segments = append(segments, segment{text: s, position: i})
	}
	if len(segments) == 0 {
		return []domain.AnswerCandidate{}
	}

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.text
	}
	reports := e.scorer.SimilarityBatch(question, texts, vectors)

	out := make([]domain.AnswerCandidate, 0, len(segments))
	for i, seg := range segments {
		sim := reports[i]
		normalized := textproc.Normalize(seg.text)
		kw := e.keywordScore(profile, normalized)
		ent := entityScore(profile.Entities, seg.text, normalized)

		score := ew.Similarity*sim.Composite + ew.Keyword*kw + ew.Entity*ent
		if score <= ew.MinScore {
			continue
		}

		out = append(out, domain.AnswerCandidate{
			Text:             seg.text,
			Position:         seg.position,
			CompositeScore:   score,
			SimilarityScore:  sim.Composite,
			SemanticScore:    sim.SemanticCosine,
			KeywordScore:     kw,
			EntityScore:      ent,
			SelectionReasons: e.selectionReasons(seg.text, sim, kw, ent),
			Tier:             e.scorer.Tier(score),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompositeScore > out[j].CompositeScore
	})
	if len(out) > ew.MaxCandidates {
		out = out[:ew.MaxCandidates]
	}
	return out
}

func (e *Engine) selectionReasons(text string, sim domain.SimilarityReport, kw, ent float64) []string {
	ew := e.weights.Extraction
	reasons := make([]string, 0, 4)
	if sim.SemanticState == domain.SignalPresent && sim.SemanticCosine > ew.StrongSemantic {
		reasons = append(reasons, reasonSemantic)
	}
	if kw > ew.KeywordMatch {
		reasons = append(reasons, reasonKeyword)
	}
	if ent > 0 {
		reasons = append(reasons, reasonEntity)
	}
	if words := len(strings.Fields(text)); words >= ew.MinWords && words <= ew.MaxWords {
		reasons = append(reasons, reasonLength)
	}
	return reasons
}

// keywordScore is the fraction of question keywords present as substrings of
// the normalized sentence. Stems are consulted only when the extraction
// weights enable MatchStems.
func (e *Engine) keywordScore(profile domain.QuestionProfile, normalized string) float64 {
	var stems []string
	if e.weights.Extraction.MatchStems {
		stems = profile.KeywordStems
	}
	return keywordScore(profile.Keywords, stems, normalized)
}

func keywordScore(keywords, stems []string, normalized string) float64 {
	if len(keywords) == 0 || normalized == "" {
		return 0
	}
	hits := 0
	for i, kw := range keywords {
		if strings.Contains(normalized, kw) {
			hits++
			continue
		}
		if i < len(stems) && stems[i] != kw && utf8.RuneCountInString(stems[i]) >= minStemRunes &&
			strings.Contains(normalized, stems[i]) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// entityScore is the fraction of entities present in the raw or normalized
// text.
func entityScore(entities []domain.Entity, raw, normalized string) float64 {
	if len(entities) == 0 {
		return 0
	}
	hits := 0
	for _, ent := range entities {
		if containsEntity(ent, raw, normalized) {
			hits++
		}
	}
	return float64(hits) / float64(len(entities))
}

func containsEntity(ent domain.Entity, raw, normalized string) bool {
	text := strings.TrimSpace(ent.Text)
	if text == "" {
		return false
	}
	if strings.Contains(raw, text) {
		return true
	}
	n := textproc.Normalize(text)
	return n != "" && strings.Contains(normalized, n)
}
