package nlp

import (
	"context"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot/pipelines"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

type tokenClassifier interface {
	RunPipeline(inputs []string) (*pipelines.TokenClassificationOutput, error)
}

// EntityExtractor tags named entities with a token-classification model.
type EntityExtractor struct {
	pipeline tokenClassifier
	minScore float64
}

func NewEntityExtractor(p tokenClassifier, minScore float64) *EntityExtractor {
	return &EntityExtractor{pipeline: p, minScore: minScore}
}

func (x *EntityExtractor) ExtractEntities(ctx context.Context, text string) ([]domain.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []domain.Entity{}, nil
	}
	result, err := x.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("run ner: %w", err)
	}

	out := []domain.Entity{}
	if result == nil || len(result.Entities) == 0 {
		return out, nil
	}
	seen := make(map[string]struct{})
	for _, ent := range result.Entities[0] {
		if float64(ent.Score) < x.minScore {
			continue
		}
		word := strings.TrimSpace(strings.ReplaceAll(ent.Word, " ##", ""))
		word = strings.TrimPrefix(word, "##")
		if word == "" {
			continue
		}
		label := normalizeLabel(ent.Entity)
		key := label + "\x00" + word
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, domain.Entity{Text: word, Label: label})
	}
	return out, nil
}

// normalizeLabel drops BIO prefixes and spells out the CoNLL tags.
func normalizeLabel(label string) string {
	label = strings.TrimPrefix(strings.TrimPrefix(label, "B-"), "I-")
	switch label {
	case "PER":
		return "person"
	case "ORG":
		return "organization"
	case "LOC":
		return "location"
	case "MISC":
		return "misc"
	default:
		return strings.ToLower(label)
	}
}
