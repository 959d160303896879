package nlp

import (
	"context"
	"errors"
	"testing"

	"github.com/knights-analytics/hugot/pipelines"
)

type classifierFake struct {
	out *pipelines.TokenClassificationOutput
	err error
}

func (f classifierFake) RunPipeline([]string) (*pipelines.TokenClassificationOutput, error) {
	return f.out, f.err
}

type extractorFake struct {
	calls [][]string
	err   error
}

func (f *extractorFake) RunPipeline(inputs []string) (*pipelines.FeatureExtractionOutput, error) {
	f.calls = append(f.calls, inputs)
	if f.err != nil {
		return nil, f.err
	}
	out := &pipelines.FeatureExtractionOutput{}
	for i := range inputs {
		out.Embeddings = append(out.Embeddings, []float32{float32(i), 1})
	}
	return out, nil
}

func TestExtractEntitiesNormalizesLabelsAndFiltersScore(t *testing.T) {
	x := NewEntityExtractor(classifierFake{out: &pipelines.TokenClassificationOutput{
		Entities: [][]pipelines.Entity{{
			{Entity: "B-LOC", Word: "Paris", Score: 0.98},
			{Entity: "I-LOC", Word: "Paris", Score: 0.97},
			{Entity: "B-PER", Word: "##on", Score: 0.2},
			{Entity: "B-ORG", Word: "UN ##ESCO", Score: 0.9},
		}},
	}}, 0.5)

	got, err := x.ExtractEntities(context.Background(), "Paris hosts UNESCO")
	if err != nil {
		t.Fatalf("ExtractEntities() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two entities, got %+v", got)
	}
	if got[0].Text != "Paris" || got[0].Label != "location" {
		t.Fatalf("unexpected first entity: %+v", got[0])
	}
	if got[1].Text != "UNESCO" || got[1].Label != "organization" {
		t.Fatalf("unexpected second entity: %+v", got[1])
	}
}

func TestExtractEntitiesEmptyTextSkipsModel(t *testing.T) {
	x := NewEntityExtractor(classifierFake{err: errors.New("must not run")}, 0)
	got, err := x.ExtractEntities(context.Background(), "   ")
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", got, err)
	}
}

func TestExtractEntitiesPropagatesFailure(t *testing.T) {
	x := NewEntityExtractor(classifierFake{err: errors.New("onnx")}, 0)
	if _, err := x.ExtractEntities(context.Background(), "text"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEmbedderBatchesTexts(t *testing.T) {
	fake := &extractorFake{}
	e := NewEmbedder(fake)
	vectors, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(fake.calls) != 1 || len(vectors) != 3 || vectors[2][0] != 2 {
		t.Fatalf("expected one batched call, got %d calls and %v", len(fake.calls), vectors)
	}

	q, err := e.EmbedQuery(context.Background(), "q")
	if err != nil || len(q) != 2 {
		t.Fatalf("unexpected query vector %v %v", q, err)
	}
}

func TestEmbedderHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := &extractorFake{}
	if _, err := NewEmbedder(fake).Embed(ctx, []string{"a"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("pipeline must not run")
	}
}

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{"B-PER": "person", "I-MISC": "misc", "DATE": "date", "LOC": "location"}
	for in, want := range cases {
		if got := normalizeLabel(in); got != want {
			t.Fatalf("normalizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
