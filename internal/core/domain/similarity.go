package domain

// ConfidenceTier is an ordinal label bucketed from a composite score.
type ConfidenceTier string

const (
	TierVeryLow  ConfidenceTier = "very_low"
	TierLow      ConfidenceTier = "low"
	TierMedium   ConfidenceTier = "medium"
	TierHigh     ConfidenceTier = "high"
	TierVeryHigh ConfidenceTier = "very_high"
)

// SimilarityReport carries every pairwise signal between two texts and their
// weighted composite. All values lie in [0,1].
type SimilarityReport struct {
	JaccardUnigram     float64        `json:"jaccard_unigram"`
	JaccardBigram      float64        `json:"jaccard_bigram"`
	JaccardTrigram     float64        `json:"jaccard_trigram"`
	Jaccard            float64        `json:"jaccard"`
	LexicalCosine      float64        `json:"lexical_cosine"`
	SemanticCosine     float64        `json:"semantic_cosine"`
	SemanticState      SignalState    `json:"semantic_state"`
	SequenceRatio      float64        `json:"sequence_ratio"`
	InformationDensity float64        `json:"information_density_delta"`
	AnswerQuality      float64        `json:"answer_quality"`
	Composite          float64        `json:"composite"`
	Tier               ConfidenceTier `json:"confidence_tier"`
}
