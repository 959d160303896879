package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/answer-engine/internal/config"
	"github.com/kirillkom/answer-engine/internal/core/ports"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
	"github.com/kirillkom/answer-engine/internal/core/usecase"
	"github.com/kirillkom/answer-engine/internal/infrastructure/cache"
	"github.com/kirillkom/answer-engine/internal/infrastructure/lexical"
	"github.com/kirillkom/answer-engine/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/answer-engine/internal/infrastructure/nlp"
	"github.com/kirillkom/answer-engine/internal/infrastructure/queue/nats"
	"github.com/kirillkom/answer-engine/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/answer-engine/internal/infrastructure/resilience"
	"github.com/kirillkom/answer-engine/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/answer-engine/internal/infrastructure/vector/qdrant"
)

// Telemetry receives answer outcomes and circuit breaker transitions.
type Telemetry interface {
	usecase.AnswerObserver
	ObserveBreakerState(operation string, from, to gobreaker.State)
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	QueryUC  *usecase.QueryUseCase
	IndexUC  *usecase.IndexUseCase
	ScoreSvc *usecase.ScoringService
	Executor *resilience.Executor

	closers []func() error
}

type options struct {
	logger    *slog.Logger
	telemetry Telemetry
	progress  func(done, total int)
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithTelemetry(t Telemetry) Option {
	return func(o *options) { o.telemetry = t }
}

// WithIndexProgress reports embedding progress during indexing.
func WithIndexProgress(fn func(done, total int)) Option {
	return func(o *options) { o.progress = fn }
}

// backends groups the adapters selected by configuration.
type backends struct {
	embedder ports.Embedder
	vectors  interface {
		ports.VectorSearcher
		ports.VectorIndexer
	}
	passages interface {
		ports.PassageStore
		ports.PassageWriter
	}
	lexicalSearch ports.LexicalSearcher
	lexicalIndex  ports.LexicalIndexer
	analyzer      *lexical.Analyzer
	entities      ports.EntityExtractor
	generator     ports.AnswerGenerator
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: o.logger}
	app.Executor = newExecutor(cfg, o)

	weights := scoring.DefaultWeights()
	if cfg.ScoringWeightsFile != "" {
		w, err := scoring.LoadWeights(cfg.ScoringWeightsFile)
		if err != nil {
			return nil, fmt.Errorf("load scoring weights: %w", err)
		}
		weights = w
	}
	scorer, err := scoring.NewEngine(weights)
	if err != nil {
		return nil, fmt.Errorf("init scoring engine: %w", err)
	}

	b, err := app.wireBackends(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	engineOpts := []usecase.EngineOption{
		usecase.WithTokenizer(b.analyzer),
		usecase.WithStemmer(b.analyzer),
		usecase.WithEngineLogger(o.logger),
	}
	queryOpts := []usecase.QueryOption{
		usecase.WithVectorSearch(b.vectors, b.passages),
		usecase.WithGenerator(b.generator, ollama.PromptByName(cfg.PromptStyle)),
		usecase.WithLogger(o.logger),
	}
	if b.entities != nil {
		engineOpts = append(engineOpts, usecase.WithEntityExtractor(b.entities))
		queryOpts = append(queryOpts, usecase.WithPassageEntities(b.entities))
	}
	if b.lexicalSearch != nil {
		queryOpts = append(queryOpts, usecase.WithLexicalSearch(b.lexicalSearch))
	}
	if o.telemetry != nil {
		queryOpts = append(queryOpts, usecase.WithObserver(o.telemetry))
	}
	engine := usecase.NewEngine(scorer, engineOpts...)

	indexOpts := []usecase.IndexOption{
		usecase.WithBatchSize(cfg.IndexBatch),
		usecase.WithIndexLogger(o.logger),
	}
	if b.lexicalIndex != nil {
		indexOpts = append(indexOpts, usecase.WithLexicalIndex(b.lexicalIndex))
	}
	if o.progress != nil {
		indexOpts = append(indexOpts, usecase.WithProgress(o.progress))
	}

	app.QueryUC = usecase.NewQueryUseCase(engine, b.embedder, queryOpts...)
	app.IndexUC = usecase.NewIndexUseCase(b.passages, b.embedder, b.vectors, indexOpts...)
	app.ScoreSvc = usecase.NewScoringService(engine, b.embedder)

	o.logger.Info("app_ready",
		"embedding_backend", cfg.EmbeddingBackend,
		"vector_backend", cfg.VectorBackend,
		"passage_backend", cfg.PassageBackend,
		"lexical_backend", cfg.LexicalBackend,
		"embedding_cache", cfg.CacheBackend,
		"ner_enabled", cfg.NEREnabled,
	)
	return app, nil
}

// Queue connects to NATS. dispatcher may be nil on the requesting side.
func (a *App) Queue(dispatcher nats.Dispatcher) (*nats.Queue, error) {
	queue, err := nats.NewWithOptions(a.Config.NATSURL, a.Config.NATSSubject, nats.Options{
		QueueGroup:         a.Config.NATSQueueGroup,
		ResilienceExecutor: a.Executor,
		Dispatcher:         dispatcher,
		Logger:             a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	a.closers = append(a.closers, func() error {
		queue.Close()
		return nil
	})
	return queue, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close_failed", "error", err)
		}
	}
	a.closers = nil
}

func validate(cfg config.Config) error {
	if cfg.PassageBackend == config.BackendQdrant && cfg.VectorBackend != config.BackendQdrant {
		return errors.New("passage backend qdrant requires vector backend qdrant")
	}
	if cfg.LexicalBackend == config.BackendQdrant && cfg.VectorBackend != config.BackendQdrant {
		return errors.New("lexical backend qdrant requires vector backend qdrant")
	}
	return nil
}

func newExecutor(cfg config.Config, o options) *resilience.Executor {
	rc := resilience.DefaultConfig()
	rc.AttemptTimeout = cfg.ResilienceAttemptTimeout
	rc.RetryMaxAttempts = cfg.ResilienceRetryAttempts
	rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
	rc.BreakerOpenTimeout = cfg.ResilienceBreakerOpenAfter

	execOpts := []resilience.Option{resilience.WithLogger(o.logger)}
	if o.telemetry != nil {
		execOpts = append(execOpts, resilience.WithStateListener(o.telemetry.ObserveBreakerState))
	}
	return resilience.NewExecutor(rc, execOpts...)
}

func (a *App) wireBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel,
		ollama.WithExecutor(a.Executor),
		ollama.WithTemperature(cfg.OllamaTemperature),
	)
	b.generator = ollama.NewGenerator(ollamaClient)

	var runtime *nlp.Runtime
	nlpRuntime := func() (*nlp.Runtime, error) {
		if runtime != nil {
			return runtime, nil
		}
		r, err := nlp.NewRuntime(cfg.HugotModelDir)
		if err != nil {
			return nil, fmt.Errorf("init hugot runtime: %w", err)
		}
		runtime = r
		a.closers = append(a.closers, r.Close)
		return r, nil
	}

	embedModel := cfg.OllamaEmbedModel
	switch cfg.EmbeddingBackend {
	case config.BackendHugot:
		r, err := nlpRuntime()
		if err != nil {
			return nil, err
		}
		embedder, err := r.NewEmbedder(cfg.HugotEmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("init hugot embedder: %w", err)
		}
		b.embedder = embedder
		embedModel = cfg.HugotEmbeddingModel
	default:
		b.embedder = ollama.NewEmbedder(ollamaClient)
	}

	embeddingCache, err := a.openCache(cfg)
	if err != nil {
		return nil, err
	}
	if embeddingCache != nil {
		b.embedder = cache.NewEmbedder(b.embedder, embeddingCache, embedModel, a.Logger)
	}

	if cfg.NEREnabled {
		r, err := nlpRuntime()
		if err != nil {
			return nil, err
		}
		extractor, err := r.NewEntityExtractor(cfg.NERModel, cfg.NERMinScore)
		if err != nil {
			return nil, fmt.Errorf("init entity extractor: %w", err)
		}
		b.entities = extractor
	}

	var qdrantClient *qdrant.Client
	if cfg.VectorBackend == config.BackendQdrant {
		qdrantClient = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection,
			qdrant.WithExecutor(a.Executor),
			qdrant.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
		b.vectors = qdrantClient
	}

	var repo *postgres.PassageRepository
	if cfg.VectorBackend == config.BackendPostgres || cfg.PassageBackend == config.BackendPostgres {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		repo, err = openRepository(ctx, db)
		if err != nil {
			return nil, err
		}
		if cfg.VectorBackend == config.BackendPostgres {
			b.vectors = repo
		}
	}

	switch cfg.PassageBackend {
	case config.BackendPostgres:
		b.passages = repo
	case config.BackendLocalFS:
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init passage storage: %w", err)
		}
		b.passages = storage
	default:
		b.passages = qdrantClient
	}

	switch cfg.LexicalBackend {
	case config.BackendBleve:
		idx, err := lexical.Open(cfg.LexicalIndexPath)
		if err != nil {
			return nil, fmt.Errorf("open lexical index: %w", err)
		}
		a.closers = append(a.closers, idx.Close)
		b.lexicalSearch = idx
		b.lexicalIndex = idx
		b.analyzer = idx.Analyzer
	case config.BackendMemory:
		idx, err := loadMemIndex(ctx, b.passages)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, idx.Close)
		b.lexicalSearch = idx
		b.lexicalIndex = idx
		b.analyzer = idx.Analyzer
	case config.BackendQdrant:
		b.lexicalSearch = qdrantClient
	}
	if b.analyzer == nil {
		analyzer, err := lexical.NewAnalyzer()
		if err != nil {
			return nil, fmt.Errorf("init analyzer: %w", err)
		}
		b.analyzer = analyzer
	}

	return b, nil
}

// loadMemIndex builds an in-memory keyword index over every stored passage.
func loadMemIndex(ctx context.Context, store ports.PassageStore) (*lexical.Index, error) {
	idx, err := lexical.NewMemIndex()
	if err != nil {
		return nil, fmt.Errorf("init lexical index: %w", err)
	}
	passages, err := store.ListPassages(ctx)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("list passages for lexical index: %w", err)
	}
	if err := idx.IndexTexts(ctx, passages); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("fill lexical index: %w", err)
	}
	return idx, nil
}

func (a *App) openCache(cfg config.Config) (ports.EmbeddingCache, error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		c, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis cache: %w", err)
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	case config.BackendBadger:
		c, err := cache.OpenBadgerCache(cfg.BadgerDir, cfg.CacheTTL, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("init badger cache: %w", err)
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	default:
		return nil, nil
	}
}

func openRepository(ctx context.Context, db *sql.DB) (*postgres.PassageRepository, error) {
	repo := postgres.NewPassageRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}
