package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/kirillkom/answer-engine/internal/bootstrap"
	"github.com/kirillkom/answer-engine/internal/config"
	"github.com/kirillkom/answer-engine/internal/infrastructure/chunking"
	"github.com/kirillkom/answer-engine/internal/infrastructure/loader"
	"github.com/kirillkom/answer-engine/internal/observability/logging"
)

func loadEnv(c *cli.Context) error {
	path := c.String("env-file")
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func openApp(c *cli.Context, opts ...bootstrap.Option) (*bootstrap.App, config.Config, error) {
	cfg := config.Load()
	if n := c.Int("batch-size"); n > 0 {
		cfg.IndexBatch = n
	}
	logger := logging.New(c.App.ErrWriter, "answerctl", c.String("log-level"), "text")
	opts = append([]bootstrap.Option{bootstrap.WithLogger(logger)}, opts...)
	app, err := bootstrap.New(c.Context, cfg, opts...)
	if err != nil {
		return nil, cfg, err
	}
	return app, cfg, nil
}

func indexCommand(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return cli.Exit("index needs at least one file", 2)
	}

	progress := newProgressReporter(c.App.ErrWriter)
	app, cfg, err := openApp(c, bootstrap.WithIndexProgress(progress.update))
	if err != nil {
		return err
	}
	defer app.Close()

	src := loader.New(
		loader.WithColumn(c.String("column")),
		loader.WithChunker(chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)),
	)

	out := c.App.Writer
	for _, file := range files {
		texts, err := src.Load(c.Context, file)
		if err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
		source := c.String("source")
		if source == "" {
			source = filepath.Base(file)
		}

		progress.start(source)
		report, err := app.IndexUC.Index(c.Context, texts, source)
		progress.finish()
		if err != nil {
			return fmt.Errorf("index %s: %w", file, err)
		}
		printIndexReport(out, report)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return cli.Exit("ask needs a question", 2)
	}

	app, cfg, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	topK := c.Int("top-k")
	if topK <= 0 {
		topK = cfg.RAGTopK
	}
	answer, err := app.QueryUC.Answer(c.Context, question, topK)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c.App.Writer, answer)
	}
	printAnswer(c.App.Writer, answer, c.Bool("passages"))
	return nil
}

func similarityCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("similarity needs exactly two texts", 2)
	}

	app, _, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.ScoreSvc.Similarity(c.Context, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c.App.Writer, report)
	}
	printSimilarity(c.App.Writer, report)
	return nil
}

func validateCommand(c *cli.Context) error {
	app, _, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.ScoreSvc.Validate(c.Context, c.String("question"), c.String("answer"), c.StringSlice("context"))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c.App.Writer, report)
	}
	printValidation(c.App.Writer, report)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
