package scoring

import (
	"fmt"
	"math"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

// Weights is the single table of every weight and threshold used by the
// engine. It is copied into engines at construction and never mutated.
type Weights struct {
	Similarity SimilarityWeights `yaml:"similarity" json:"similarity"`
	Ngram      NgramWeights      `yaml:"ngram" json:"ngram"`
	Tiers      TierThresholds    `yaml:"tiers" json:"tiers"`
	Semantic   SemanticParams    `yaml:"semantic" json:"semantic"`
	Quality    QualityParams     `yaml:"quality" json:"quality"`
	Extraction ExtractionWeights `yaml:"extraction" json:"extraction"`
	Fusion     FusionWeights     `yaml:"fusion" json:"fusion"`
	Validation ValidationWeights `yaml:"validation" json:"validation"`
	Combine    CombineParams     `yaml:"combine" json:"combine"`
}

// SimilarityWeights combine the pairwise signals into the composite.
type SimilarityWeights struct {
	Jaccard            float64 `yaml:"jaccard" json:"jaccard"`
	LexicalCosine      float64 `yaml:"lexical_cosine" json:"lexical_cosine"`
	SemanticCosine     float64 `yaml:"semantic_cosine" json:"semantic_cosine"`
	SequenceRatio      float64 `yaml:"sequence_ratio" json:"sequence_ratio"`
	InformationDensity float64 `yaml:"information_density" json:"information_density"`
	AnswerQuality      float64 `yaml:"answer_quality" json:"answer_quality"`
}

type NgramWeights struct {
	Unigram float64 `yaml:"unigram" json:"unigram"`
	Bigram  float64 `yaml:"bigram" json:"bigram"`
	Trigram float64 `yaml:"trigram" json:"trigram"`
}

// TierThresholds are exclusive lower bounds of each confidence tier.
type TierThresholds struct {
	VeryHigh float64 `yaml:"very_high" json:"very_high"`
	High     float64 `yaml:"high" json:"high"`
	Medium   float64 `yaml:"medium" json:"medium"`
	Low      float64 `yaml:"low" json:"low"`
}

type SemanticParams struct {
	LengthNorm    float64 `yaml:"length_norm" json:"length_norm"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
	MaxConfidence float64 `yaml:"max_confidence" json:"max_confidence"`
}

type QualityParams struct {
	IdealWords   float64 `yaml:"ideal_words" json:"ideal_words"`
	LengthWeight float64 `yaml:"length_weight" json:"length_weight"`
	FormatWeight float64 `yaml:"format_weight" json:"format_weight"`
	FormatBase   float64 `yaml:"format_base" json:"format_base"`
	DigitBonus   float64 `yaml:"digit_bonus" json:"digit_bonus"`
	SymbolBonus  float64 `yaml:"symbol_bonus" json:"symbol_bonus"`
	Symbols      string  `yaml:"symbols" json:"symbols"`
}

type ExtractionWeights struct {
	Similarity       float64 `yaml:"similarity" json:"similarity"`
	Keyword          float64 `yaml:"keyword" json:"keyword"`
	Entity           float64 `yaml:"entity" json:"entity"`
	MinScore         float64 `yaml:"min_score" json:"min_score"`
	MinSentenceRunes int     `yaml:"min_sentence_runes" json:"min_sentence_runes"`
	MaxCandidates    int     `yaml:"max_candidates" json:"max_candidates"`
	StrongSemantic   float64 `yaml:"strong_semantic" json:"strong_semantic"`
	KeywordMatch     float64 `yaml:"keyword_match" json:"keyword_match"`
	MinWords         int     `yaml:"min_words" json:"min_words"`
	MaxWords         int     `yaml:"max_words" json:"max_words"`
	// MatchStems also counts a keyword whose stem appears in the sentence.
	MatchStems bool `yaml:"match_stems" json:"match_stems"`
}

type FusionWeights struct {
	Vector         float64 `yaml:"vector" json:"vector"`
	Lexical        float64 `yaml:"lexical" json:"lexical"`
	Fused          float64 `yaml:"fused" json:"fused"`
	TextSimilarity float64 `yaml:"text_similarity" json:"text_similarity"`
	EntityOverlap  float64 `yaml:"entity_overlap" json:"entity_overlap"`
}

type ValidationWeights struct {
	MinAnswerRunes       int     `yaml:"min_answer_runes" json:"min_answer_runes"`
	MaxAnswerRunes       int     `yaml:"max_answer_runes" json:"max_answer_runes"`
	NoContextSupport     float64 `yaml:"no_context_support" json:"no_context_support"`
	StrongContextSupport float64 `yaml:"strong_context_support" json:"strong_context_support"`
	DuplicatesQuestion   float64 `yaml:"duplicates_question" json:"duplicates_question"`
	UnrelatedToQuestion  float64 `yaml:"unrelated_to_question" json:"unrelated_to_question"`
	NewInformationHigh   float64 `yaml:"new_information_high" json:"new_information_high"`
	NewInformationLow    float64 `yaml:"new_information_low" json:"new_information_low"`
	EntityCoverageStrong float64 `yaml:"entity_coverage_strong" json:"entity_coverage_strong"`

	Context          float64 `yaml:"context" json:"context"`
	Question         float64 `yaml:"question" json:"question"`
	QuestionCap      float64 `yaml:"question_cap" json:"question_cap"`
	NewInformation   float64 `yaml:"new_information" json:"new_information"`
	EntityCoverage   float64 `yaml:"entity_coverage" json:"entity_coverage"`
	NoEntitiesCredit float64 `yaml:"no_entities_credit" json:"no_entities_credit"`
	IssuePenalty     float64 `yaml:"issue_penalty" json:"issue_penalty"`
	StrengthBonus    float64 `yaml:"strength_bonus" json:"strength_bonus"`
}

type CombineParams struct {
	DuplicateSimilarity float64 `yaml:"duplicate_similarity" json:"duplicate_similarity"`
	MaxSentences        int     `yaml:"max_sentences" json:"max_sentences"`
	MinSentenceRunes    int     `yaml:"min_sentence_runes" json:"min_sentence_runes"`
	TriggerBelow        float64 `yaml:"trigger_below" json:"trigger_below"`
	CandidateFloor      float64 `yaml:"candidate_floor" json:"candidate_floor"`
	MaxParts            int     `yaml:"max_parts" json:"max_parts"`
}

func DefaultWeights() Weights {
	return Weights{
		Similarity: SimilarityWeights{
			Jaccard:            0.25,
			LexicalCosine:      0.20,
			SemanticCosine:     0.30,
			SequenceRatio:      0.10,
			InformationDensity: 0.05,
			AnswerQuality:      0.10,
		},
		Ngram: NgramWeights{Unigram: 0.5, Bigram: 0.3, Trigram: 0.2},
		Tiers: TierThresholds{VeryHigh: 0.8, High: 0.6, Medium: 0.4, Low: 0.2},
		Semantic: SemanticParams{
			LengthNorm:    20,
			MinConfidence: 0.5,
			MaxConfidence: 1.0,
		},
		Quality: QualityParams{
			IdealWords:   20,
			LengthWeight: 0.7,
			FormatWeight: 0.3,
			FormatBase:   0.7,
			DigitBonus:   0.15,
			SymbolBonus:  0.15,
			Symbols:      "%٪$@#€£",
		},
		Extraction: ExtractionWeights{
			Similarity:       0.5,
			Keyword:          0.3,
			Entity:           0.2,
			MinScore:         0.2,
			MinSentenceRunes: 10,
			MaxCandidates:    5,
			StrongSemantic:   0.7,
			KeywordMatch:     0.5,
			MinWords:         5,
			MaxWords:         30,
		},
		Fusion: FusionWeights{
			Vector:         0.7,
			Lexical:        0.3,
			Fused:          0.6,
			TextSimilarity: 0.3,
			EntityOverlap:  0.1,
		},
		Validation: ValidationWeights{
			MinAnswerRunes:       5,
			MaxAnswerRunes:       500,
			NoContextSupport:     0.1,
			StrongContextSupport: 0.5,
			DuplicatesQuestion:   0.8,
			UnrelatedToQuestion:  0.1,
			NewInformationHigh:   0.7,
			NewInformationLow:    0.3,
			EntityCoverageStrong: 0.5,
			Context:              0.4,
			Question:             0.2,
			QuestionCap:          0.5,
			NewInformation:       0.3,
			EntityCoverage:       0.1,
			NoEntitiesCredit:     0.1,
			IssuePenalty:         0.1,
			StrengthBonus:        0.05,
		},
		Combine: CombineParams{
			DuplicateSimilarity: 0.7,
			MaxSentences:        3,
			MinSentenceRunes:    10,
			TriggerBelow:        0.3,
			CandidateFloor:      0.1,
			MaxParts:            2,
		},
	}
}

const sumTolerance = 1e-9

// Validate checks that convex combinations sum to one and thresholds are
// ordered.
func (w Weights) Validate() error {
	s := w.Similarity
	if err := checkConvex("similarity", s.Jaccard, s.LexicalCosine, s.SemanticCosine, s.SequenceRatio, s.InformationDensity, s.AnswerQuality); err != nil {
		return err
	}
	if err := checkConvex("ngram", w.Ngram.Unigram, w.Ngram.Bigram, w.Ngram.Trigram); err != nil {
		return err
	}
	if err := checkConvex("extraction", w.Extraction.Similarity, w.Extraction.Keyword, w.Extraction.Entity); err != nil {
		return err
	}
	if err := checkConvex("fusion merge", w.Fusion.Vector, w.Fusion.Lexical); err != nil {
		return err
	}

	t := w.Tiers
	if !(t.VeryHigh >= t.High && t.High >= t.Medium && t.Medium >= t.Low && t.Low >= 0) {
		return domain.WrapError(domain.ErrInvalidInput, "validate weights", fmt.Errorf("tier thresholds must be descending"))
	}
	if w.Semantic.LengthNorm <= 0 || w.Semantic.MinConfidence > w.Semantic.MaxConfidence {
		return domain.WrapError(domain.ErrInvalidInput, "validate weights", fmt.Errorf("semantic length confidence is inconsistent"))
	}
	if w.Quality.IdealWords <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate weights", fmt.Errorf("quality ideal words must be positive"))
	}
	if w.Extraction.MaxCandidates <= 0 || w.Combine.MaxSentences <= 0 || w.Combine.MaxParts < 2 {
		return domain.WrapError(domain.ErrInvalidInput, "validate weights", fmt.Errorf("limits must be positive"))
	}
	return nil
}

func checkConvex(name string, values ...float64) error {
	sum := 0.0
	for _, v := range values {
		if v < 0 {
			return domain.WrapError(domain.ErrInvalidInput, "validate weights", fmt.Errorf("%s weight %v is negative", name, v))
		}
		sum += v
	}
	if math.Abs(sum-1) > sumTolerance {
		return domain.WrapError(domain.ErrInvalidInput, "validate weights", fmt.Errorf("%s weights sum to %v, want 1", name, sum))
	}
	return nil
}
