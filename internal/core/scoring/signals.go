package scoring

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

func ngramSet(tokens []string, n int) map[string]struct{} {
	if len(tokens) < n {
		return nil
	}
	set := make(map[string]struct{}, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// cosine reports false when either vector is missing, lengths differ, or a
// norm is zero.
func cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

// informationDensity is the number of distinct tokens per rune of distinct
// token text.
func informationDensity(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(tokens))
	runes := 0
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		runes += utf8.RuneCountInString(tok)
	}
	if runes == 0 {
		return 0
	}
	return float64(len(seen)) / float64(runes)
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func containsAny(s, chars string) bool {
	return chars != "" && strings.ContainsAny(s, chars)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
