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

	httpadapter "github.com/kirillkom/answer-engine/internal/adapters/http"
	"github.com/kirillkom/answer-engine/internal/bootstrap"
	"github.com/kirillkom/answer-engine/internal/config"
	"github.com/kirillkom/answer-engine/internal/core/ports"
	"github.com/kirillkom/answer-engine/internal/observability/logging"
	"github.com/kirillkom/answer-engine/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, stop, cfg, logger)
	stop()
	if err != nil {
		logger.Error("api_failed", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is done. stop cancels ctx when the listener fails.
func run(ctx context.Context, stop context.CancelFunc, cfg config.Config, logger *slog.Logger) error {
	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg,
		bootstrap.WithLogger(logger),
		bootstrap.WithTelemetry(httpMetrics),
	)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	var answers ports.QuestionAnswerer = app.QueryUC
	if cfg.AnswerViaQueue {
		queue, err := app.Queue(nil)
		if err != nil {
			return err
		}
		answers = queue
		logger.Info("answers_via_queue", "subject", cfg.NATSSubject)
	}

	router := httpadapter.NewRouter(cfg, answers, app.ScoreSvc,
		httpadapter.WithIndexer(app.IndexUC),
		httpadapter.WithMetrics(httpMetrics),
		httpadapter.WithLogger(logger),
	).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.APIRequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
	select {
	case err := <-serveErr:
		return fmt.Errorf("api server: %w", err)
	default:
		return nil
	}
}
