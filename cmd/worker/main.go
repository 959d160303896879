package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/answer-engine/internal/bootstrap"
	"github.com/kirillkom/answer-engine/internal/config"
	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/observability/logging"
	"github.com/kirillkom/answer-engine/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("worker_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg,
		bootstrap.WithLogger(logger),
		bootstrap.WithTelemetry(workerMetrics),
	)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	pool, err := ants.NewPool(max(cfg.WorkerConcurrency, 1), ants.WithNonblocking(true))
	if err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}
	defer pool.Release()

	queue, err := app.Queue(func(task func()) error {
		if err := pool.Submit(task); err != nil {
			workerMetrics.ObserveRejected()
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed",
		"subject", cfg.NATSSubject,
		"queue_group", cfg.NATSQueueGroup,
		"concurrency", cfg.WorkerConcurrency,
	)
	err = queue.ServeQuestions(ctx, func(handlerCtx context.Context, req domain.QuestionRequest) (*domain.Answer, error) {
		answerCtx, cancel := context.WithTimeout(handlerCtx, cfg.NATSRequestTimeout)
		defer cancel()

		topK := req.TopK
		if topK <= 0 {
			topK = cfg.RAGTopK
		}

		started := time.Now()
		workerMetrics.StartQuestion()
		answer, err := app.QueryUC.Answer(answerCtx, req.Question, topK)
		workerMetrics.FinishQuestion(time.Since(started), err)
		return answer, err
	})
	if err != nil {
		return fmt.Errorf("serve questions: %w", err)
	}
	return nil
}
