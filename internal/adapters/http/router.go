package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/kirillkom/answer-engine/internal/config"
	"github.com/kirillkom/answer-engine/internal/core/ports"
	"github.com/kirillkom/answer-engine/internal/observability/metrics"
)

const (
	serviceName  = "api"
	maxBodyBytes = 4 << 20
)

type Router struct {
	cfg     config.Config
	answers ports.QuestionAnswerer
	scorer  ports.Scorer
	indexer ports.PassageIndexer
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
}

type RouterOption func(*Router)

// WithIndexer enables POST /v1/passages.
func WithIndexer(indexer ports.PassageIndexer) RouterOption {
	return func(rt *Router) { rt.indexer = indexer }
}

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) { rt.metrics = m }
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func NewRouter(cfg config.Config, answers ports.QuestionAnswerer, scorer ports.Scorer, opts ...RouterOption) *Router {
	rt := &Router{
		cfg:     cfg,
		answers: answers,
		scorer:  scorer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/answers", rt.answer)
	api.HandleFunc("POST /v1/similarity", rt.similarity)
	api.HandleFunc("POST /v1/validations", rt.validate)
	if rt.indexer != nil {
		api.HandleFunc("POST /v1/passages", rt.indexPassages)
	}

	var guarded http.Handler = api
	guarded = backpressureMiddleware(guarded, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait, rt.onReject)
	if rt.cfg.APIRateLimitRPS > 0 {
		burst := max(rt.cfg.APIRateLimitBurst, 1)
		guarded = rateLimitMiddleware(guarded, rate.NewLimiter(rate.Limit(rt.cfg.APIRateLimitRPS), burst), rt.onReject)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", guarded)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		TopK     *int   `json:"top_k"`
	}
	if !rt.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	topK := rt.cfg.RAGTopK
	if req.TopK != nil {
		if *req.TopK <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "top_k must be positive"})
			return
		}
		topK = *req.TopK
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	answer, err := rt.answers.Answer(ctx, req.Question, topK)
	if err != nil {
		rt.writeError(w, r, "answer", err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) similarity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TextA string `json:"text_a"`
		TextB string `json:"text_b"`
	}
	if !rt.decode(w, r, &req) {
		return
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	report, err := rt.scorer.Similarity(ctx, req.TextA, req.TextB)
	if err != nil {
		rt.writeError(w, r, "similarity", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string   `json:"question"`
		Answer   string   `json:"answer"`
		Contexts []string `json:"contexts"`
	}
	if !rt.decode(w, r, &req) {
		return
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	report, err := rt.scorer.Validate(ctx, req.Question, req.Answer, req.Contexts)
	if err != nil {
		rt.writeError(w, r, "validate", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) indexPassages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Texts  []string `json:"texts"`
		Source string   `json:"source"`
	}
	if !rt.decode(w, r, &req) {
		return
	}
	if len(req.Texts) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "texts are required"})
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "api"
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	report, err := rt.indexer.Index(ctx, req.Texts, source)
	if err != nil {
		rt.writeError(w, r, "index", err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (rt *Router) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func (rt *Router) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if rt.cfg.APIRequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), rt.cfg.APIRequestTimeout)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"operation", op,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s: %v", op, err)})
}

func (rt *Router) onReject(reason string) {
	if rt.metrics != nil {
		rt.metrics.ObserveRejected(reason)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
