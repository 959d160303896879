package usecase

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
	"github.com/kirillkom/answer-engine/internal/core/textproc"
)

const (
	issueTooShort       = "answer too short"
	issueTooLong        = "answer too long"
	issueNoSupport      = "no context support"
	issueDuplicates     = "duplicates question"
	issueUnrelated      = "unrelated to question"
	issueRepeats        = "repeats question"
	strengthLength      = "suitable answer length"
	strengthSupport     = "strong context support"
	strengthRelated     = "related to question"
	strengthNewInfo     = "adds new information"
	strengthEntityCover = "covers question entities"
)

const (
	metricMaxContext  = "max_context_similarity"
	metricAvgContext  = "avg_context_similarity"
	metricQuestion    = "question_similarity"
	metricNewInfo     = "new_information_ratio"
	metricEntityCover = "entity_coverage"
)

// Validate scores an answer against the question and its supporting
// contexts. A rejected answer always has zero confidence.
func (e *Engine) Validate(
	profile domain.QuestionProfile,
	question, answer string,
	contexts []string,
	vectors scoring.Vectors,
) domain.ValidationReport {
	vw := e.weights.Validation
	report := domain.ValidationReport{
		IsValid:        true,
		Issues:         []string{},
		Strengths:      []string{},
		QualityMetrics: make(map[string]float64, 5),
	}

	switch length := utf8.RuneCountInString(strings.TrimSpace(answer)); {
	case length < vw.MinAnswerRunes:
		report.IsValid = false
		report.Issues = append(report.Issues, issueTooShort)
	case length > vw.MaxAnswerRunes:
		report.Issues = append(report.Issues, issueTooLong)
	default:
		report.Strengths = append(report.Strengths, strengthLength)
	}

	maxContext, avgContext := 0.0, 0.0
	if len(contexts) > 0 {
		sum := 0.0
		for _, r := range e.scorer.SimilarityBatch(answer, contexts, vectors) {
			sum += r.Composite
			if r.Composite > maxContext {
				maxContext = r.Composite
			}
		}
		avgContext = sum / float64(len(contexts))
	}
	report.QualityMetrics[metricMaxContext] = maxContext
	report.QualityMetrics[metricAvgContext] = avgContext
	switch {
	case maxContext < vw.NoContextSupport:
		report.Issues = append(report.Issues, issueNoSupport)
	case maxContext > vw.StrongContextSupport:
		report.Strengths = append(report.Strengths, strengthSupport)
	}

	questionSim := e.scorer.Compare(answer, question, vectors).Composite
	report.QualityMetrics[metricQuestion] = questionSim
	switch {
	case questionSim > vw.DuplicatesQuestion:
		report.Issues = append(report.Issues, issueDuplicates)
	case questionSim < vw.UnrelatedToQuestion:
		report.Issues = append(report.Issues, issueUnrelated)
	default:
		report.Strengths = append(report.Strengths, strengthRelated)
	}

	newInfo := newInformationRatio(answer, question)
	report.QualityMetrics[metricNewInfo] = newInfo
	switch {
	case newInfo > vw.NewInformationHigh:
		report.Strengths = append(report.Strengths, strengthNewInfo)
	case newInfo < vw.NewInformationLow:
		report.Issues = append(report.Issues, issueRepeats)
	}

	entityTerm := vw.NoEntitiesCredit
	if len(profile.Entities) > 0 {
		coverage := entityScore(profile.Entities, answer, textproc.Normalize(answer))
		report.QualityMetrics[metricEntityCover] = coverage
		if coverage > vw.EntityCoverageStrong {
			report.Strengths = append(report.Strengths, strengthEntityCover)
		}
		entityTerm = vw.EntityCoverage * coverage
	}

	confidence := vw.Context*maxContext +
		vw.Question*min(questionSim, vw.QuestionCap) +
		vw.NewInformation*newInfo +
		entityTerm
	confidence *= 1 - vw.IssuePenalty*float64(len(report.Issues))
	confidence *= 1 + vw.StrengthBonus*float64(len(report.Strengths))
	report.ConfidenceScore = clampUnit(confidence)
	if !report.IsValid {
		report.ConfidenceScore = 0
	}
	return report
}

// newInformationRatio is the share of distinct answer tokens that do not
// appear in the question.
func newInformationRatio(answer, question string) float64 {
	answerTokens := tokenSet(textproc.NormalizedTokens(answer))
	if len(answerTokens) == 0 {
		return 0
	}
	questionTokens := tokenSet(textproc.NormalizedTokens(question))
	fresh := 0
	for tok := range answerTokens {
		if _, ok := questionTokens[tok]; !ok {
			fresh++
		}
	}
	return float64(fresh) / float64(len(answerTokens))
}

func tokenSet(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		out[tok] = struct{}{}
	}
	return out
}

func clampUnit(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
