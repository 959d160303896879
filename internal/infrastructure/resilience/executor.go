package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Config controls retries and circuit breaking around collaborator calls.
// Zero or out-of-range fields take the DefaultConfig value.
type Config struct {
	AttemptTimeout time.Duration

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// DefaultConfig suits HTTP model and vector backends: three quick attempts and
// a breaker that opens once half of ten calls fail.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:        3,
		RetryInitialBackoff:     100 * time.Millisecond,
		RetryMaxBackoff:         400 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func positiveOr[T int | uint32 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	c.AttemptTimeout = max(c.AttemptTimeout, 0)
	c.RetryMaxAttempts = positiveOr(c.RetryMaxAttempts, def.RetryMaxAttempts)
	c.RetryInitialBackoff = positiveOr(c.RetryInitialBackoff, def.RetryInitialBackoff)
	c.RetryMaxBackoff = max(positiveOr(c.RetryMaxBackoff, def.RetryMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = def.RetryMultiplier
	}
	c.BreakerMinRequests = positiveOr(c.BreakerMinRequests, def.BreakerMinRequests)
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	c.BreakerOpenTimeout = positiveOr(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	c.BreakerHalfOpenMaxCalls = positiveOr(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	return c
}

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// StateListener is told about every breaker transition, e.g. to export it as
// a metric.
type StateListener func(operation string, from, to gobreaker.State)

// Executor wraps collaborator calls with bounded retries and one circuit
// breaker per operation name.
type Executor struct {
	cfg      Config
	logger   *slog.Logger
	listener StateListener

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

type Option func(*Executor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithStateListener(fn StateListener) Option {
	return func(e *Executor) { e.listener = fn }
}

func NewExecutor(cfg Config, opts ...Option) *Executor {
	e := &Executor{
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classifier == nil {
		classifier = defaultClassifier
	}

	if !e.cfg.BreakerEnabled {
		return e.executeWithRetry(ctx, op, fn, classifier)
	}

	breaker := e.circuitBreaker(op, classifier)
	_, err := breaker.Execute(func() (any, error) {
		return nil, e.executeWithRetry(ctx, op, fn, classifier)
	})
	return err
}

// Do runs fn through the executor and returns its value. A nil executor
// calls fn directly.
func Do[T any](
	ctx context.Context,
	e *Executor,
	operation string,
	fn func(context.Context) (T, error),
	classifier ErrorClassifier,
) (T, error) {
	if e == nil {
		return fn(ctx)
	}
	var out T
	err := e.Execute(ctx, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, classifier)
	return out, err
}

// State reports the breaker state for operation; closed when none exists yet.
func (e *Executor) State(operation string) gobreaker.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.breakers[operation]; ok {
		return b.State()
	}
	return gobreaker.StateClosed
}

func (e *Executor) executeWithRetry(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	maxAttempts := e.cfg.RetryMaxAttempts
	backoff := e.cfg.RetryInitialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := e.attempt(ctx, fn)
		if err == nil {
			return nil
		}

		class := classifier(err)
		if !class.Retryable || attempt == maxAttempts {
			return err
		}

		wait := min(backoff, e.cfg.RetryMaxBackoff)
		e.logger.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"backoff_ms", float64(wait.Microseconds())/1000.0,
			"error", err,
		)

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}

		backoff = min(time.Duration(float64(backoff)*e.cfg.RetryMultiplier), e.cfg.RetryMaxBackoff)
	}

	return nil
}

func (e *Executor) attempt(ctx context.Context, fn func(context.Context) error) error {
	if e.cfg.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

func (e *Executor) circuitBreaker(operation string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			e.logger.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
			if e.listener != nil {
				e.listener(name, from, to)
			}
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = breaker
	return breaker
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func defaultClassifier(error) ErrorClassification {
	return ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}
