package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/textproc"
)

const (
	questionTypeGeneral  = "general"
	questionTypeGeneric  = "question"
	expectedGeneral      = "general information"
	expectedSpecificInfo = "specific information"
	minKeywordRunes      = 3
	minStemRunes         = 3
)

type interrogative struct {
	words    []string
	kind     string
	expected string
}

// Multi-word forms come first so "how many" wins over "how".
var interrogatives = []interrogative{
	{words: []string{"how", "many"}, kind: "how_many", expected: "quantity"},
	{words: []string{"how", "much"}, kind: "how_many", expected: "quantity"},
	{words: []string{"كم"}, kind: "how_many", expected: "quantity"},
	{words: []string{"من"}, kind: "who", expected: "person"},
	{words: []string{"who"}, kind: "who", expected: "person"},
	{words: []string{"ماذا"}, kind: "what", expected: "definition"},
	{words: []string{"ما"}, kind: "what", expected: "definition"},
	{words: []string{"what"}, kind: "what", expected: "definition"},
	{words: []string{"متي"}, kind: "when", expected: "time"},
	{words: []string{"when"}, kind: "when", expected: "time"},
	{words: []string{"اين"}, kind: "where", expected: "place"},
	{words: []string{"where"}, kind: "where", expected: "place"},
	{words: []string{"كيف"}, kind: "how", expected: "method"},
	{words: []string{"how"}, kind: "how", expected: "method"},
	{words: []string{"لماذا"}, kind: "why", expected: "reason"},
	{words: []string{"why"}, kind: "why", expected: "reason"},
}

var genericInterrogatives = map[string]struct{}{
	"هل": {}, "اي": {}, "which": {}, "whom": {}, "whose": {},
}

// AnalyzeQuestion derives the question profile. Tokenizer, stemmer and entity
// failures degrade to the built-in fallbacks and are logged.
func (e *Engine) AnalyzeQuestion(ctx context.Context, question string) domain.QuestionProfile {
	tokens := e.questionTokens(ctx, question)

	profile := domain.QuestionProfile{
		Type:           questionTypeGeneral,
		ExpectedAnswer: expectedGeneral,
		Keywords:       keywords(tokens),
		Entities:       []domain.Entity{},
		EntitiesState:  domain.SignalUnavailable,
	}
	profile.KeywordStems = e.stems(ctx, profile.Keywords)

	if it, ok := detectInterrogative(tokens); ok {
		profile.Type = it.kind
		profile.ExpectedAnswer = it.expected
		profile.Interrogative = strings.Join(it.words, " ")
	} else if isGenericQuestion(question, tokens) {
		profile.Type = questionTypeGeneric
		profile.ExpectedAnswer = expectedSpecificInfo
	}

	entities := e.extractEntities(ctx, question)
	if ents, ok := entities.Get(); ok {
		profile.Entities = ents
	}
	profile.EntitiesState = entities.State()
	return profile
}

func (e *Engine) questionTokens(ctx context.Context, question string) []string {
	if e.tokenizer != nil {
		raw, err := e.tokenizer.Tokenize(ctx, question)
		if err != nil {
			e.logger.Warn("collaborator_degraded", "collaborator", "tokenizer", "error", err)
		} else {
			tokens := make([]string, 0, len(raw))
			for _, tok := range raw {
				tokens = append(tokens, textproc.NormalizedTokens(tok)...)
			}
			if len(tokens) > 0 {
				return tokens
			}
		}
	}
	return textproc.NormalizedTokens(question)
}

func (e *Engine) stems(ctx context.Context, words []string) []string {
	out := make([]string, len(words))
	copy(out, words)
	if e.stemmer == nil {
		return out
	}
	for i, w := range words {
		stem, err := e.stemmer.Stem(ctx, w)
		if err != nil {
			e.logger.Warn("collaborator_degraded", "collaborator", "stemmer", "error", err)
			return out
		}
		if s := textproc.Normalize(stem); s != "" {
			out[i] = s
		}
	}
	return out
}

func (e *Engine) extractEntities(ctx context.Context, text string) domain.Signal[[]domain.Entity] {
	if e.entities == nil {
		return domain.Unavailable[[]domain.Entity]()
	}
	ents, err := e.entities.ExtractEntities(ctx, text)
	if err != nil {
		e.logger.Warn("collaborator_degraded", "collaborator", "entities", "error", err)
		return domain.Unavailable[[]domain.Entity]()
	}
	if ents == nil {
		ents = []domain.Entity{}
	}
	return domain.Present(ents)
}

func keywords(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < minKeywordRunes || textproc.IsStopWord(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func detectInterrogative(tokens []string) (interrogative, bool) {
	for _, it := range interrogatives {
		if containsSequence(tokens, it.words) {
			return it, true
		}
	}
	return interrogative{}, false
}

func containsSequence(tokens, seq []string) bool {
	for i := 0; i+len(seq) <= len(tokens); i++ {
		match := true
		for j, w := range seq {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func isGenericQuestion(raw string, tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := genericInterrogatives[tok]; ok {
			return true
		}
	}
	trimmed := strings.TrimSpace(raw)
	return strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "؟")
}
