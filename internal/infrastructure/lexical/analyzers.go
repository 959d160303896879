package lexical

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/ar"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

const (
	// passageAnalyzer indexes and queries passage text: Arabic letter
	// normalization, both stop lists, then Arabic light stemming and Porter.
	passageAnalyzer = "passage"
	tokenAnalyzer   = "passage_tokens"
	stemAnalyzer    = "passage_stem"
)

func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	analyzers := map[string][]string{
		passageAnalyzer: {lowercase.Name, ar.NormalizeName, ar.StopName, en.StopName, ar.StemmerName, porter.Name},
		tokenAnalyzer:   {lowercase.Name},
		stemAnalyzer:    {lowercase.Name, ar.NormalizeName, ar.StemmerName, porter.Name},
	}
	for _, name := range []string{passageAnalyzer, tokenAnalyzer, stemAnalyzer} {
		err := im.AddCustomAnalyzer(name, map[string]any{
			"type":          custom.Name,
			"tokenizer":     unicode.Name,
			"token_filters": analyzers[name],
		})
		if err != nil {
			return nil, fmt.Errorf("register analyzer %s: %w", name, err)
		}
	}

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = passageAnalyzer
	textField.Store = true

	sourceField := bleve.NewKeywordFieldMapping()
	sourceField.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("text", textField)
	doc.AddFieldMappingsAt("source", sourceField)

	im.DefaultMapping = doc
	im.DefaultAnalyzer = passageAnalyzer
	return im, nil
}

// Analyzer exposes the index's analysis chain as the tokenizer and stemmer
// collaborators of question analysis.
type Analyzer struct {
	tokens analysis.Analyzer
	stems  analysis.Analyzer
}

func NewAnalyzer() (*Analyzer, error) {
	im, err := newIndexMapping()
	if err != nil {
		return nil, err
	}
	return analyzerFrom(im)
}

func analyzerFrom(im *mapping.IndexMappingImpl) (*Analyzer, error) {
	tokens := im.AnalyzerNamed(tokenAnalyzer)
	stems := im.AnalyzerNamed(stemAnalyzer)
	if tokens == nil || stems == nil {
		return nil, fmt.Errorf("lexical analyzers not registered")
	}
	return &Analyzer{tokens: tokens, stems: stems}, nil
}

func (a *Analyzer) Tokenize(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return terms(a.tokens.Analyze([]byte(text))), nil
}

// Stem returns the stem of a single token. A token the chain drops comes
// back unchanged.
func (a *Analyzer) Stem(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out := terms(a.stems.Analyze([]byte(token)))
	if len(out) == 0 {
		return token, nil
	}
	return out[0], nil
}

func terms(stream analysis.TokenStream) []string {
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) > 0 {
			out = append(out, string(tok.Term))
		}
	}
	return out
}
