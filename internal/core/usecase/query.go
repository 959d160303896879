package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/ports"
	"github.com/kirillkom/answer-engine/internal/core/scoring"
	"github.com/kirillkom/answer-engine/internal/core/textproc"
)

const (
	defaultTopK         = 5
	maxContexts         = 3
	maxAnswerCandidates = 3
	entityWorkers       = 4
	validationWorkers   = 4

	issueNoSuitableAnswer = "no suitable answer"
)

// AnswerObserver receives one observation per answered question.
type AnswerObserver interface {
	ObserveAnswer(source domain.AnswerSource, confidence float64, passages int, elapsed time.Duration)
	ObserveDegraded(collaborator string)
}

type QueryUseCase struct {
	engine    *Engine
	embedder  ports.Embedder
	vectors   ports.VectorSearcher
	passages  ports.PassageStore
	lexical   ports.LexicalSearcher
	entities  ports.EntityExtractor
	generator ports.AnswerGenerator
	formatter ports.PromptFormatter
	observer  AnswerObserver
	logger    *slog.Logger
}

type QueryOption func(*QueryUseCase)

// WithVectorSearch enables vector retrieval; hits are resolved to text
// through store.
func WithVectorSearch(searcher ports.VectorSearcher, store ports.PassageStore) QueryOption {
	return func(uc *QueryUseCase) {
		uc.vectors = searcher
		uc.passages = store
	}
}

func WithLexicalSearch(searcher ports.LexicalSearcher) QueryOption {
	return func(uc *QueryUseCase) { uc.lexical = searcher }
}

func WithPassageEntities(x ports.EntityExtractor) QueryOption {
	return func(uc *QueryUseCase) { uc.entities = x }
}

func WithGenerator(g ports.AnswerGenerator, formatter ports.PromptFormatter) QueryOption {
	return func(uc *QueryUseCase) {
		uc.generator = g
		if formatter != nil {
			uc.formatter = formatter
		}
	}
}

func WithObserver(o AnswerObserver) QueryOption {
	return func(uc *QueryUseCase) { uc.observer = o }
}

func WithLogger(l *slog.Logger) QueryOption {
	return func(uc *QueryUseCase) {
		if l != nil {
			uc.logger = l
		}
	}
}

func NewQueryUseCase(engine *Engine, embedder ports.Embedder, opts ...QueryOption) *QueryUseCase {
	if engine == nil {
		engine = NewEngine(nil)
	}
	uc := &QueryUseCase{
		engine:    engine,
		embedder:  embedder,
		formatter: QuestionContextPrompt,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// QuestionContextPrompt is the plain "question: ... context: ..." layout used
// by sequence-to-sequence models.
func QuestionContextPrompt(question string, contexts []string) string {
	return "question: " + question + " context: " + strings.Join(contexts, "\n")
}

func (uc *QueryUseCase) Answer(ctx context.Context, question string, topK int) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer question", errors.New("question is empty"))
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	started := time.Now()

	profile := uc.engine.AnalyzeQuestion(ctx, question)
	vectors := scoring.VectorSet{}

	queryVector := uc.embedQuery(ctx, question)
	if queryVector != nil {
		vectors[question] = queryVector
	}
	vectorHits := uc.searchVectors(ctx, queryVector, 2*topK)
	lexicalHits := uc.searchLexical(ctx, question, 2*topK)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := mergedTexts(vectorHits, lexicalHits)
	uc.embedTexts(ctx, vectors, texts)
	passages := uc.engine.Fuse(FusionInput{
		Vector:          vectorHits,
		Lexical:         lexicalHits,
		Query:           question,
		QueryEntities:   profile.Entities,
		PassageEntities: uc.passageEntities(ctx, texts),
		Vectors:         vectors,
		TopK:            topK,
	})
	if len(passages) == 0 {
		answer := noAnswer(profile)
		uc.observe(answer, started)
		return answer, nil
	}

	contexts, contextScores := topContexts(passages)
	uc.embedTexts(ctx, vectors, contextSentences(contexts, uc.engine.weights.Extraction.MinSentenceRunes))
	candidates := uc.collectCandidates(profile, question, contexts, vectors)

	options := make([]domain.ScoredAnswer, 0, len(candidates)+1)
	if text := uc.generate(ctx, question, contexts); text != "" {
		options = append(options, domain.ScoredAnswer{Text: text, Source: domain.SourceGenerated, Method: domain.MethodNeuralGeneration})
	}
	for _, c := range candidates {
		options = append(options, domain.ScoredAnswer{Text: c.Text, Source: domain.SourceExtracted, Method: domain.MethodRuleExtraction})
	}
	if len(options) == 0 {
		answer := noAnswer(profile)
		answer.ContextScores = contextScores
		answer.UsedContexts = len(contexts)
		answer.Passages = passages
		uc.observe(answer, started)
		return answer, nil
	}

	optionTexts := make([]string, len(options))
	for i, o := range options {
		optionTexts[i] = o.Text
	}
	uc.embedTexts(ctx, vectors, optionTexts)
	uc.validateAll(profile, question, contexts, vectors, options)

	best := bestAnswer(options)
	best = uc.maybeCombine(ctx, profile, question, contexts, vectors, options, best)

	answer := &domain.Answer{
		Text:                best.Text,
		Confidence:          best.Confidence(),
		Source:              best.Source,
		Method:              best.Method,
		Validation:          best.Validation,
		ContextScores:       contextScores,
		UsedContexts:        len(contexts),
		EvaluatedCandidates: len(options),
		Question:            profile,
		Passages:            passages,
	}
	uc.observe(answer, started)
	return answer, nil
}

func (uc *QueryUseCase) embedQuery(ctx context.Context, question string) []float32 {
	if uc.embedder == nil {
		return nil
	}
	vec, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		uc.degraded("embedder", err)
		return nil
	}
	return vec
}

func (uc *QueryUseCase) searchVectors(ctx context.Context, queryVector []float32, k int) []domain.ScoredText {
	if uc.vectors == nil || uc.passages == nil || len(queryVector) == 0 {
		return nil
	}
	hits, err := uc.vectors.SearchVectors(ctx, queryVector, k)
	if err != nil {
		uc.degraded("vector_search", err)
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	texts, err := uc.passages.Passages(ctx, ids)
	if err != nil {
		uc.degraded("passage_store", err)
		return nil
	}

	out := make([]domain.ScoredText, 0, len(hits))
	for _, h := range hits {
		text, ok := texts[h.ID]
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, domain.ScoredText{Text: text, Score: h.Score})
	}
	return out
}

func (uc *QueryUseCase) searchLexical(ctx context.Context, question string, k int) []domain.ScoredText {
	if uc.lexical == nil {
		return nil
	}
	hits, err := uc.lexical.SearchLexical(ctx, question, k)
	if err != nil {
		uc.degraded("lexical_search", err)
		return nil
	}
	return hits
}

// embedTexts adds vectors for texts not yet in the set. Failures leave the
// semantic signal unavailable for those texts.
func (uc *QueryUseCase) embedTexts(ctx context.Context, vectors scoring.VectorSet, texts []string) {
	if uc.embedder == nil || len(texts) == 0 {
		return
	}
	missing := make([]string, 0, len(texts))
	seen := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		if _, ok := vectors[t]; ok {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		missing = append(missing, t)
	}
	if len(missing) == 0 {
		return
	}

	embedded, err := uc.embedder.Embed(ctx, missing)
	if err != nil {
		uc.degraded("embedder", err)
		return
	}
	if len(embedded) != len(missing) {
		uc.degraded("embedder", errors.New("embedding count mismatch"))
		return
	}
	for i, t := range missing {
		if len(embedded[i]) > 0 {
			vectors[t] = embedded[i]
		}
	}
}

func (uc *QueryUseCase) passageEntities(ctx context.Context, texts []string) map[string][]domain.Entity {
	if uc.entities == nil || len(texts) == 0 {
		return nil
	}
	results := make([][]domain.Entity, len(texts))
	failures := make([]error, len(texts))

	var g errgroup.Group
	g.SetLimit(entityWorkers)
	for i, text := range texts {
		g.Go(func() error {
			results[i], failures[i] = uc.entities.ExtractEntities(ctx, text)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]domain.Entity, len(texts))
	for i, text := range texts {
		if failures[i] != nil {
			uc.degraded("entities", failures[i])
			continue
		}
		out[text] = results[i]
	}
	return out
}

func (uc *QueryUseCase) collectCandidates(
	profile domain.QuestionProfile,
	question string,
	contexts []string,
	vectors scoring.Vectors,
) []domain.AnswerCandidate {
	var all []domain.AnswerCandidate
	for _, c := range contexts {
		all = append(all, uc.engine.ExtractCandidates(profile, question, c, vectors)...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CompositeScore > all[j].CompositeScore
	})
	if len(all) > maxAnswerCandidates {
		all = all[:maxAnswerCandidates]
	}
	return all
}

func (uc *QueryUseCase) generate(ctx context.Context, question string, contexts []string) string {
	if uc.generator == nil {
		return ""
	}
	text, err := uc.generator.Generate(ctx, uc.formatter(question, contexts))
	if err != nil {
		uc.degraded("generator", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (uc *QueryUseCase) validateAll(
	profile domain.QuestionProfile,
	question string,
	contexts []string,
	vectors scoring.Vectors,
	options []domain.ScoredAnswer,
) {
	var g errgroup.Group
	g.SetLimit(validationWorkers)
	for i := range options {
		g.Go(func() error {
			options[i].Validation = uc.engine.Validate(profile, question, options[i].Text, contexts, vectors)
			return nil
		})
	}
	_ = g.Wait()
}

// maybeCombine merges the strongest options when the best one is weak and
// keeps the merge only if it validates strictly better.
func (uc *QueryUseCase) maybeCombine(
	ctx context.Context,
	profile domain.QuestionProfile,
	question string,
	contexts []string,
	vectors scoring.VectorSet,
	options []domain.ScoredAnswer,
	best domain.ScoredAnswer,
) domain.ScoredAnswer {
	cp := uc.engine.weights.Combine
	if best.Confidence() >= cp.TriggerBelow {
		return best
	}

	pool := make([]domain.ScoredAnswer, 0, len(options))
	for _, o := range options {
		if o.Confidence() > cp.CandidateFloor {
			pool = append(pool, o)
		}
	}
	if len(pool) < 2 {
		return best
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Confidence() > pool[j].Confidence()
	})
	if len(pool) > cp.MaxParts {
		pool = pool[:cp.MaxParts]
	}

	parts := make([]domain.AnswerCandidate, len(pool))
	for i, o := range pool {
		parts[i] = domain.AnswerCandidate{Text: o.Text, Position: i, CompositeScore: o.Confidence()}
	}
	var sentences []string
	for _, p := range parts {
		sentences = append(sentences, textproc.SplitTerminal(p.Text, cp.MinSentenceRunes)...)
	}
	uc.embedTexts(ctx, vectors, sentences)
	combined := uc.engine.Combine(parts, vectors)
	if combined == "" {
		return best
	}

	uc.embedTexts(ctx, vectors, []string{combined})
	report := uc.engine.Validate(profile, question, combined, contexts, vectors)
	if report.ConfidenceScore <= best.Confidence() {
		return best
	}
	return domain.ScoredAnswer{
		Text:       combined,
		Source:     domain.SourceCombined,
		Method:     domain.MethodCombination,
		Validation: report,
	}
}

func (uc *QueryUseCase) degraded(collaborator string, err error) {
	uc.logger.Warn("collaborator_degraded", "collaborator", collaborator, "error", err)
	if uc.observer != nil {
		uc.observer.ObserveDegraded(collaborator)
	}
}

func (uc *QueryUseCase) observe(answer *domain.Answer, started time.Time) {
	elapsed := time.Since(started)
	uc.logger.Info("answer_completed",
		"source", answer.Source,
		"confidence", answer.Confidence,
		"passages", len(answer.Passages),
		"candidates", answer.EvaluatedCandidates,
		"duration_ms", elapsed.Milliseconds(),
	)
	if uc.observer != nil {
		uc.observer.ObserveAnswer(answer.Source, answer.Confidence, len(answer.Passages), elapsed)
	}
}

// bestAnswer returns the highest confidence option; the earliest wins ties.
func bestAnswer(options []domain.ScoredAnswer) domain.ScoredAnswer {
	best := options[0]
	for _, o := range options[1:] {
		if o.Confidence() > best.Confidence() {
			best = o
		}
	}
	return best
}

func noAnswer(profile domain.QuestionProfile) *domain.Answer {
	return &domain.Answer{
		Text:   domain.NoAnswerText,
		Source: domain.SourceFallback,
		Method: domain.MethodFallback,
		Validation: domain.ValidationReport{
			Issues:         []string{issueNoSuitableAnswer},
			Strengths:      []string{},
			QualityMetrics: map[string]float64{},
		},
		ContextScores: []float64{},
		Question:      profile,
		Passages:      []domain.RetrievedPassage{},
	}
}

func topContexts(passages []domain.RetrievedPassage) ([]string, []float64) {
	n := min(len(passages), maxContexts)
	contexts := make([]string, n)
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		contexts[i] = passages[i].Text
		scores[i] = passages[i].FinalScore
	}
	return contexts, scores
}

func mergedTexts(lists ...[]domain.ScoredText) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, hit := range list {
			if hit.Text == "" {
				continue
			}
			if _, ok := seen[hit.Text]; ok {
				continue
			}
			seen[hit.Text] = struct{}{}
			out = append(out, hit.Text)
		}
	}
	return out
}

func contextSentences(contexts []string, minRunes int) []string {
	var out []string
	for _, c := range contexts {
		for _, s := range textproc.SplitSentences(c) {
			if utf8.RuneCountInString(s) >= minRunes {
				out = append(out, s)
			}
		}
	}
	return out
}
