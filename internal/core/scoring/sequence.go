package scoring

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// sequenceRatio is the character-level matching ratio of the normalized
// texts. The matcher is direction sensitive, so the larger of both
// directions is reported. Identical texts return 1 directly since the
// popular-element heuristic can split matches on long inputs.
func sequenceRatio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ja, jb := strings.Join(a, " "), strings.Join(b, " ")
	if ja == jb {
		return 1
	}
	ra, rb := runeStrings(ja), runeStrings(jb)

	forward := difflib.NewMatcher(ra, rb).Ratio()
	backward := difflib.NewMatcher(rb, ra).Ratio()
	if backward > forward {
		forward = backward
	}
	return clamp01(forward)
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
