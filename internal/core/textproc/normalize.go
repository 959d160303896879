// Package textproc holds the deterministic text cleanup shared by every
// scoring signal.
package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	urlPattern   = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)
	digitPattern = regexp.MustCompile(`\p{Nd}+`)
	punctPattern = regexp.MustCompile(`[\p{P}\p{S}]+`)
	spacePattern = regexp.MustCompile(`[\s\p{Z}\p{Cc}]+`)
)

// letterFolder maps orthographic variants of the same letter to one form.
var letterFolder = strings.NewReplacer(
	"إ", "ا",
	"أ", "ا",
	"آ", "ا",
	"ٱ", "ا",
	"ة", "ه",
	"ى", "ي",
	"ی", "ي",
	"ؤ", "و",
	"ئ", "ي",
	"ک", "ك",
	"ـ", "",
)

// Normalize returns the canonical form of text: markup, URLs, digits and
// punctuation removed, letter variants folded, diacritics stripped and
// whitespace collapsed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	text = tagPattern.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "")
	text = digitPattern.ReplaceAllString(text, " ")
	text = punctPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")

	text = cases.Fold().String(text)
	text = letterFolder.Replace(text)
	text = stripMarks(text)

	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// stripMarks removes non-spacing marks and invisible format characters after
// canonical decomposition.
func stripMarks(text string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.In(unicode.Cf)),
		norm.NFC,
	)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// Tokens splits normalized text on whitespace.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// NormalizedTokens is Tokens(Normalize(text)).
func NormalizedTokens(text string) []string {
	return Tokens(Normalize(text))
}
