package qdrant

import (
	"hash/fnv"
	"math"
	"sort"

	"github.com/kirillkom/answer-engine/internal/core/textproc"
)

type sparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

const (
	docBM25K1      = 1.2
	queryBM25K     = 1.2
	sourceBoost    = 0.5
	maxSparseTerms = 256
)

// Term weights saturate BM25-style; the collection applies idf on its side.
func encodeSparseDocument(text string, source string) sparseVector {
	termFreq := make(map[uint32]float64, 64)
	appendTermFreq(termFreq, sparseTerms(text), 1.0)
	appendTermFreq(termFreq, sparseTerms(source), sourceBoost)
	return termFreqToSparse(termFreq, docBM25K1)
}

func encodeSparseQuery(query string) sparseVector {
	termFreq := make(map[uint32]float64, 32)
	appendTermFreq(termFreq, sparseTerms(query), 1.0)
	return termFreqToSparse(termFreq, queryBM25K)
}

// sparseTerms folds Arabic and Latin text the same way the scorer does and
// drops function words.
func sparseTerms(s string) []string {
	tokens := textproc.NormalizedTokens(s)
	out := tokens[:0]
	for _, tok := range tokens {
		if !textproc.IsStopWord(tok) {
			out = append(out, tok)
		}
	}
	return out
}

func appendTermFreq(dst map[uint32]float64, tokens []string, tokenWeight float64) {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		dst[hashToken(token)] += tokenWeight
	}
}

func termFreqToSparse(tf map[uint32]float64, k float64) sparseVector {
	if len(tf) == 0 {
		return sparseVector{}
	}
	indices := make([]uint32, 0, len(tf))
	for idx := range tf {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	if len(indices) > maxSparseTerms {
		indices = indices[:maxSparseTerms]
	}

	values := make([]float32, 0, len(indices))
	for _, idx := range indices {
		tfValue := tf[idx]
		weight := (tfValue * (k + 1.0)) / (tfValue + k)
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			weight = 0
		}
		values = append(values, float32(weight))
	}

	return sparseVector{Indices: indices, Values: values}
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum32()
	if sum == 0 {
		return 1
	}
	return sum
}
