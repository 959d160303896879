package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	*AnswerMetrics
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answer_engine",
			Subsystem: "worker",
			Name:      "question_process_total",
			Help:      "Total processed questions by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "answer_engine",
			Subsystem: "worker",
			Name:      "question_process_duration_seconds",
			Help:      "Question processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "answer_engine",
			Subsystem: "worker",
			Name:      "question_process_in_flight",
			Help:      "Number of in-flight question tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answer_engine",
			Subsystem: "worker",
			Name:      "question_rejected_total",
			Help:      "Questions rejected because the worker pool was saturated.",
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, rejectedTotal)

	return &WorkerMetrics{
		AnswerMetrics:   newAnswerMetrics(service, registry),
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		rejectedTotal:   rejectedTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartQuestion() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishQuestion(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveRejected() {
	m.rejectedTotal.WithLabelValues(m.service).Inc()
}
