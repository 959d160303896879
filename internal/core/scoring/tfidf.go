package scoring

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// tfidfCosine fits a two-document TF-IDF model over unigrams and bigrams of
// tokens at least two runes long and returns the cosine of the L2-normalized
// vectors. Terms are visited in sorted order so the sum is reproducible.
func tfidfCosine(a, b []string) float64 {
	ca := termCounts(a)
	cb := termCounts(b)
	if len(ca) == 0 || len(cb) == 0 {
		return 0
	}

	vocab := make([]string, 0, len(ca)+len(cb))
	for t := range ca {
		vocab = append(vocab, t)
	}
	for t := range cb {
		if _, ok := ca[t]; !ok {
			vocab = append(vocab, t)
		}
	}
	sort.Strings(vocab)

	const docs = 2.0
	var dot, na, nb float64
	for _, t := range vocab {
		df := 0.0
		if ca[t] > 0 {
			df++
		}
		if cb[t] > 0 {
			df++
		}
		idf := math.Log((1+docs)/(1+df)) + 1
		wa := float64(ca[t]) * idf
		wb := float64(cb[t]) * idf
		dot += wa * wb
		na += wa * wa
		nb += wb * wb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func termCounts(tokens []string) map[string]int {
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) >= 2 {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	counts := make(map[string]int, len(kept)*2)
	for i, tok := range kept {
		counts[tok]++
		if i+1 < len(kept) {
			counts[strings.Join(kept[i:i+2], " ")]++
		}
	}
	return counts
}
