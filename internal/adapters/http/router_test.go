package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/answer-engine/internal/config"
	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/observability/metrics"
)

type answererFake struct {
	err       error
	question  string
	topK      int
	callCount int
}

func (f *answererFake) Answer(_ context.Context, question string, topK int) (*domain.Answer, error) {
	f.callCount++
	f.question = question
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Answer{Text: "Paris", Confidence: 0.8, Source: domain.SourceExtracted}, nil
}

type scorerFake struct {
	err      error
	contexts []string
}

func (f *scorerFake) Similarity(_ context.Context, a, b string) (domain.SimilarityReport, error) {
	if f.err != nil {
		return domain.SimilarityReport{}, f.err
	}
	if a == b {
		return domain.SimilarityReport{Composite: 1, Tier: domain.TierVeryHigh}, nil
	}
	return domain.SimilarityReport{Composite: 0.1, Tier: domain.TierVeryLow}, nil
}

func (f *scorerFake) Validate(_ context.Context, _, _ string, contexts []string) (domain.ValidationReport, error) {
	f.contexts = contexts
	if f.err != nil {
		return domain.ValidationReport{}, f.err
	}
	return domain.ValidationReport{IsValid: true, ConfidenceScore: 0.7}, nil
}

type indexerFake struct {
	source string
}

func (f *indexerFake) Index(_ context.Context, texts []string, source string) (*domain.IndexReport, error) {
	f.source = source
	return &domain.IndexReport{Source: source, Received: len(texts), Indexed: len(texts)}, nil
}

func newTestHandler(cfg config.Config, answers *answererFake, scorer *scorerFake, opts ...RouterOption) http.Handler {
	opts = append([]RouterOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewRouter(cfg, answers, scorer, opts...).Handler()
}

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestAnswerUsesDefaultTopK(t *testing.T) {
	answers := &answererFake{}
	handler := newTestHandler(config.Config{RAGTopK: 3}, answers, &scorerFake{})

	res := postJSON(handler, "/v1/answers", `{"question":"What is the capital of France?"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if answers.topK != 3 {
		t.Fatalf("expected default top_k 3, got %d", answers.topK)
	}

	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if body["answer"] != "Paris" || body["source"] != "extracted" {
		t.Fatalf("unexpected answer body %v", body)
	}
}

func TestAnswerHonorsExplicitTopK(t *testing.T) {
	answers := &answererFake{}
	handler := newTestHandler(config.Config{RAGTopK: 3}, answers, &scorerFake{})

	res := postJSON(handler, "/v1/answers", `{"question":"q?","top_k":7}`)
	if res.Code != http.StatusOK || answers.topK != 7 {
		t.Fatalf("expected top_k 7 and 200, got %d / %d", answers.topK, res.Code)
	}
}

func TestAnswerRejectsBadRequests(t *testing.T) {
	cases := map[string]string{
		"invalid json":   `{"question":`,
		"empty question": `{"question":"   "}`,
		"zero top_k":     `{"question":"q?","top_k":0}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			answers := &answererFake{}
			handler := newTestHandler(config.Config{RAGTopK: 3}, answers, &scorerFake{})
			res := postJSON(handler, "/v1/answers", body)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.Code)
			}
			if answers.callCount != 0 {
				t.Fatalf("answerer must not be called for a bad request")
			}
		})
	}
}

func TestAnswerMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "answer question", errors.New("bad")), http.StatusBadRequest},
		{"passage not found", domain.WrapError(domain.ErrPassageNotFound, "passage", errors.New("id=9")), http.StatusNotFound},
		{"temporary", domain.WrapError(domain.ErrTemporary, "ollama.generate", errors.New("502")), http.StatusServiceUnavailable},
		{"unavailable", domain.WrapError(domain.ErrUnavailable, "embed", errors.New("down")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(config.Config{RAGTopK: 3}, &answererFake{err: tc.err}, &scorerFake{})
			res := postJSON(handler, "/v1/answers", `{"question":"q?"}`)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestAnswerRejectsWrongMethod(t *testing.T) {
	handler := newTestHandler(config.Config{}, &answererFake{}, &scorerFake{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/answers", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestSimilarityReturnsReport(t *testing.T) {
	handler := newTestHandler(config.Config{}, &answererFake{}, &scorerFake{})
	res := postJSON(handler, "/v1/similarity", `{"text_a":"same","text_b":"same"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var report domain.SimilarityReport
	if err := json.Unmarshal(res.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Composite != 1 || report.Tier != domain.TierVeryHigh {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestValidationPassesContexts(t *testing.T) {
	scorer := &scorerFake{}
	handler := newTestHandler(config.Config{}, &answererFake{}, scorer)
	res := postJSON(handler, "/v1/validations", `{"question":"q?","answer":"a","contexts":["one","two"]}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(scorer.contexts) != 2 || scorer.contexts[1] != "two" {
		t.Fatalf("expected contexts forwarded, got %v", scorer.contexts)
	}
}

func TestPassagesRouteRequiresIndexer(t *testing.T) {
	handler := newTestHandler(config.Config{}, &answererFake{}, &scorerFake{})
	res := postJSON(handler, "/v1/passages", `{"texts":["a"]}`)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without indexer, got %d", res.Code)
	}

	indexer := &indexerFake{}
	handler = newTestHandler(config.Config{}, &answererFake{}, &scorerFake{}, WithIndexer(indexer))
	res = postJSON(handler, "/v1/passages", `{"texts":["Paris is the capital of France."]}`)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Code)
	}
	if indexer.source != "api" {
		t.Fatalf("expected default source api, got %q", indexer.source)
	}
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	m := metrics.NewHTTPServerMetrics(serviceName)
	handler := newTestHandler(config.Config{RAGTopK: 3}, &answererFake{}, &scorerFake{}, WithMetrics(m))

	postJSON(handler, "/v1/answers", `{"question":"q?"}`)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `path="/v1/answers"`) {
		t.Fatalf("expected answers request in metrics output")
	}
}
