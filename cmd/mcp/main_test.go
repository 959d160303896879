package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/kirillkom/answer-engine/internal/config"
)

func TestRunReturnsBootstrapError(t *testing.T) {
	cfg := config.Config{
		VectorBackend:  config.BackendPostgres,
		PassageBackend: config.BackendQdrant,
		LexicalBackend: config.BackendNone,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, logger, strings.NewReader(""), io.Discard); err == nil {
		t.Fatalf("expected bootstrap error")
	}
}
