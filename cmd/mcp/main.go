package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/answer-engine/internal/adapters/mcp"
	"github.com/kirillkom/answer-engine/internal/bootstrap"
	"github.com/kirillkom/answer-engine/internal/config"
	"github.com/kirillkom/answer-engine/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// stdout carries the MCP protocol.
	logger := logging.New(os.Stderr, "mcp", cfg.LogLevel, "json")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, logger, os.Stdin, os.Stdout)
	stop()
	if err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, in io.Reader, out io.Writer) error {
	app, err := bootstrap.New(ctx, cfg, bootstrap.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	tools := mcpadapter.NewTools(app.QueryUC, app.ScoreSvc, cfg.RAGTopK, logger)
	stdio := server.NewStdioServer(mcpadapter.NewServer(tools))
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
