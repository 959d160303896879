package scoring

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/textproc"
)

// Vectors resolves a precomputed embedding for a raw text.
type Vectors interface {
	Vector(text string) ([]float32, bool)
}

// VectorSet is an in-memory Vectors keyed by raw text.
type VectorSet map[string][]float32

func (s VectorSet) Vector(text string) ([]float32, bool) {
	v, ok := s[text]
	if !ok || len(v) == 0 {
		return nil, false
	}
	return v, true
}

// Engine computes pairwise similarity reports. It is stateless apart from its
// weights and safe for concurrent use.
type Engine struct {
	w Weights
}

func NewEngine(w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Engine{w: w}, nil
}

func DefaultEngine() *Engine {
	return &Engine{w: DefaultWeights()}
}

func (e *Engine) Weights() Weights {
	return e.w
}

// Similarity compares a and b. A nil or empty vector on either side makes the
// semantic signal unavailable; it then contributes zero to the composite.
func (e *Engine) Similarity(a, b string, va, vb []float32) domain.SimilarityReport {
	ta := textproc.NormalizedTokens(a)
	tb := textproc.NormalizedTokens(b)

	r := domain.SimilarityReport{
		JaccardUnigram: jaccard(ngramSet(ta, 1), ngramSet(tb, 1)),
		JaccardBigram:  jaccard(ngramSet(ta, 2), ngramSet(tb, 2)),
		JaccardTrigram: jaccard(ngramSet(ta, 3), ngramSet(tb, 3)),
		LexicalCosine:  tfidfCosine(ta, tb),
		SemanticState:  domain.SignalUnavailable,
	}
	ng := e.w.Ngram
	r.Jaccard = clamp01(ng.Unigram*r.JaccardUnigram + ng.Bigram*r.JaccardBigram + ng.Trigram*r.JaccardTrigram)

	if cos, ok := cosine(va, vb); ok {
		r.SemanticCosine = clamp01(clamp01(cos) * e.lengthConfidence(len(ta), len(tb)))
		r.SemanticState = domain.SignalPresent
	}

	r.SequenceRatio = sequenceRatio(ta, tb)
	r.InformationDensity = clamp01(1 - abs(informationDensity(ta)-informationDensity(tb)))
	r.AnswerQuality = e.answerQuality(b, len(tb))

	s := e.w.Similarity
	r.Composite = clamp01(s.Jaccard*r.Jaccard +
		s.LexicalCosine*r.LexicalCosine +
		s.SemanticCosine*r.SemanticCosine +
		s.SequenceRatio*r.SequenceRatio +
		s.InformationDensity*r.InformationDensity +
		s.AnswerQuality*r.AnswerQuality)
	r.Tier = e.Tier(r.Composite)
	return r
}

// Compare looks both texts up in vectors before scoring. vectors may be nil.
func (e *Engine) Compare(a, b string, vectors Vectors) domain.SimilarityReport {
	var va, vb []float32
	if vectors != nil {
		va, _ = vectors.Vector(a)
		vb, _ = vectors.Vector(b)
	}
	return e.Similarity(a, b, va, vb)
}

// SimilarityBatch scores a against every text in others using a bounded worker
// group. The result order matches others.
func (e *Engine) SimilarityBatch(a string, others []string, vectors Vectors) []domain.SimilarityReport {
	out := make([]domain.SimilarityReport, len(others))
	if len(others) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, other := range others {
		g.Go(func() error {
			out[i] = e.Compare(a, other, vectors)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Tier buckets a composite score using exclusive lower bounds.
func (e *Engine) Tier(score float64) domain.ConfidenceTier {
	t := e.w.Tiers
	switch {
	case score > t.VeryHigh:
		return domain.TierVeryHigh
	case score > t.High:
		return domain.TierHigh
	case score > t.Medium:
		return domain.TierMedium
	case score > t.Low:
		return domain.TierLow
	default:
		return domain.TierVeryLow
	}
}

func (e *Engine) lengthConfidence(na, nb int) float64 {
	p := e.w.Semantic
	n := na
	if nb < n {
		n = nb
	}
	c := float64(n) / p.LengthNorm
	if c < p.MinConfidence {
		return p.MinConfidence
	}
	if c > p.MaxConfidence {
		return p.MaxConfidence
	}
	return c
}

// answerQuality scores the second text only. Word count comes from the
// normalized form; digits and symbols are detected on the raw text.
func (e *Engine) answerQuality(raw string, words int) float64 {
	q := e.w.Quality
	length := float64(words) / q.IdealWords
	if length > 1 {
		length = 1
	}

	format := q.FormatBase
	if containsDigit(raw) {
		format += q.DigitBonus
	}
	if containsAny(raw, q.Symbols) {
		format += q.SymbolBonus
	}
	return clamp01(q.LengthWeight*length + q.FormatWeight*clamp01(format))
}
