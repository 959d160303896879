package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

// AnswerMetrics records the outcome of every answered question and the
// health of the collaborators behind it.
type AnswerMetrics struct {
	service string

	answersTotal     *prometheus.CounterVec
	confidence       *prometheus.HistogramVec
	passages         *prometheus.HistogramVec
	answerDuration   *prometheus.HistogramVec
	noAnswerTotal    *prometheus.CounterVec
	degradedTotal    *prometheus.CounterVec
	breakerOpenGauge *prometheus.GaugeVec
}

func newAnswerMetrics(service string, reg prometheus.Registerer) *AnswerMetrics {
	m := &AnswerMetrics{
		service: service,
		answersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "answer_engine",
				Subsystem: "answers",
				Name:      "total",
				Help:      "Answered questions by winning source.",
			},
			[]string{"service", "source"},
		),
		confidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "answer_engine",
				Subsystem: "answers",
				Name:      "confidence",
				Help:      "Validation confidence of returned answers.",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"service", "source"},
		),
		passages: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "answer_engine",
				Subsystem: "retrieval",
				Name:      "passages",
				Help:      "Fused passages available per question.",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"service"},
		),
		answerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "answer_engine",
				Subsystem: "answers",
				Name:      "duration_seconds",
				Help:      "End-to-end answer latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		noAnswerTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "answer_engine",
				Subsystem: "answers",
				Name:      "fallback_total",
				Help:      "Questions answered with the no-answer fallback.",
			},
			[]string{"service"},
		),
		degradedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "answer_engine",
				Subsystem: "collaborators",
				Name:      "degraded_total",
				Help:      "Collaborator failures absorbed by the engine.",
			},
			[]string{"service", "collaborator"},
		),
		breakerOpenGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "answer_engine",
				Subsystem: "collaborators",
				Name:      "circuit_open",
				Help:      "1 while the circuit breaker of an operation is open.",
			},
			[]string{"service", "operation"},
		),
	}
	reg.MustRegister(
		m.answersTotal,
		m.confidence,
		m.passages,
		m.answerDuration,
		m.noAnswerTotal,
		m.degradedTotal,
		m.breakerOpenGauge,
	)
	return m
}

func (m *AnswerMetrics) ObserveAnswer(source domain.AnswerSource, confidence float64, passages int, elapsed time.Duration) {
	src := string(source)
	if src == "" {
		src = "unknown"
	}
	m.answersTotal.WithLabelValues(m.service, src).Inc()
	m.confidence.WithLabelValues(m.service, src).Observe(confidence)
	m.passages.WithLabelValues(m.service).Observe(float64(passages))
	m.answerDuration.WithLabelValues(m.service).Observe(elapsed.Seconds())
	if source == domain.SourceFallback {
		m.noAnswerTotal.WithLabelValues(m.service).Inc()
	}
}

func (m *AnswerMetrics) ObserveDegraded(collaborator string) {
	m.degradedTotal.WithLabelValues(m.service, collaborator).Inc()
}

// ObserveBreakerState matches resilience.StateListener.
func (m *AnswerMetrics) ObserveBreakerState(operation string, _, to gobreaker.State) {
	open := 0.0
	if to == gobreaker.StateOpen {
		open = 1
	}
	m.breakerOpenGauge.WithLabelValues(m.service, operation).Set(open)
}
