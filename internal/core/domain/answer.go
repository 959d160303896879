package domain

// NoAnswerText is returned when nothing in the collection supports an answer.
const NoAnswerText = "no answer found"

type AnswerSource string

const (
	SourceGenerated AnswerSource = "generated"
	SourceExtracted AnswerSource = "extracted"
	SourceCombined  AnswerSource = "combined"
	SourceFallback  AnswerSource = "fallback"
)

const (
	MethodNeuralGeneration = "neural_generation"
	MethodRuleExtraction   = "rule_based_extraction"
	MethodCombination      = "intelligent_combination"
	MethodFallback         = "fallback"
)

// QuestionProfile is derived once per question and never shared between calls.
type QuestionProfile struct {
	Type           string      `json:"type"`
	ExpectedAnswer string      `json:"expected_answer"`
	Interrogative  string      `json:"interrogative,omitempty"`
	Keywords       []string    `json:"keywords"`
	KeywordStems   []string    `json:"keyword_stems"`
	Entities       []Entity    `json:"entities"`
	EntitiesState  SignalState `json:"entities_state"`
}

// AnswerCandidate is a sentence proposed as an answer. Values are never
// mutated after creation.
type AnswerCandidate struct {
	Text             string         `json:"text"`
	Position         int            `json:"position"`
	CompositeScore   float64        `json:"composite_score"`
	SimilarityScore  float64        `json:"similarity_score"`
	SemanticScore    float64        `json:"semantic_score"`
	KeywordScore     float64        `json:"keyword_score"`
	EntityScore      float64        `json:"entity_score"`
	SelectionReasons []string       `json:"selection_reasons"`
	Tier             ConfidenceTier `json:"confidence_tier"`
}

type ValidationReport struct {
	IsValid         bool               `json:"is_valid"`
	ConfidenceScore float64            `json:"confidence_score"`
	Issues          []string           `json:"issues"`
	Strengths       []string           `json:"strengths"`
	QualityMetrics  map[string]float64 `json:"quality_metrics"`
}

// ScoredAnswer is an answer option after validation.
type ScoredAnswer struct {
	Text       string           `json:"text"`
	Source     AnswerSource     `json:"source"`
	Method     string           `json:"method"`
	Validation ValidationReport `json:"validation"`
}

func (a ScoredAnswer) Confidence() float64 {
	return a.Validation.ConfidenceScore
}

type Answer struct {
	Text                string             `json:"answer"`
	Confidence          float64            `json:"confidence"`
	Source              AnswerSource       `json:"source"`
	Method              string             `json:"method"`
	Validation          ValidationReport   `json:"validation"`
	ContextScores       []float64          `json:"context_scores"`
	UsedContexts        int                `json:"used_contexts"`
	EvaluatedCandidates int                `json:"all_candidates"`
	Question            QuestionProfile    `json:"question_analysis"`
	Passages            []RetrievedPassage `json:"passages"`
}
