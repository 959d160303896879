package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/infrastructure/resilience"
)

// Handler answers one question request.
type Handler func(context.Context, domain.QuestionRequest) (*domain.Answer, error)

// Dispatcher runs a task, possibly on another goroutine. It returns an error
// when the task cannot be accepted.
type Dispatcher func(task func()) error

// Queue carries questions over NATS request/reply. Workers share one queue
// group so each request is answered once.
type Queue struct {
	conn       *nats.Conn
	subject    string
	group      string
	executor   *resilience.Executor
	dispatcher Dispatcher
	logger     *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	QueueGroup           string
	ResilienceExecutor   *resilience.Executor
	Dispatcher           Dispatcher
	Logger               *slog.Logger
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("answer-engine"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newQueue(conn, subject, options, logger), nil
}

func newQueue(conn *nats.Conn, subject string, options Options, logger *slog.Logger) *Queue {
	group := options.QueueGroup
	if group == "" {
		group = "answer-workers"
	}
	dispatcher := options.Dispatcher
	if dispatcher == nil {
		dispatcher = func(task func()) error {
			task()
			return nil
		}
	}
	return &Queue{
		conn:       conn,
		subject:    subject,
		group:      group,
		executor:   options.ResilienceExecutor,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Ask sends req and waits for the worker's reply until ctx expires.
func (q *Queue) Ask(ctx context.Context, req domain.QuestionRequest) (*domain.Answer, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal question request: %w", err)
	}

	msg, err := resilience.Do(ctx, q.executor, "nats.request", func(ctx context.Context) (*nats.Msg, error) {
		msg, err := q.conn.RequestWithContext(ctx, q.subject, data)
		if err != nil {
			return nil, fmt.Errorf("nats request: %w", err)
		}
		return msg, nil
	}, classifyRequestError)
	if err != nil {
		return nil, requestError(err)
	}
	return decodeReply(msg.Data)
}

// Answer lets the queue stand in for the local pipeline.
func (q *Queue) Answer(ctx context.Context, question string, topK int) (*domain.Answer, error) {
	return q.Ask(ctx, domain.QuestionRequest{Question: question, TopK: topK})
}

// ServeQuestions answers requests until ctx is canceled, then drains the
// subscription.
func (q *Queue) ServeQuestions(ctx context.Context, handler func(context.Context, domain.QuestionRequest) (*domain.Answer, error)) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		err := q.dispatcher(func() {
			q.respond(msg, q.handle(ctx, handler, msg.Data))
		})
		if err != nil {
			q.logger.Warn("question_rejected", "error", err)
			q.respond(msg, encodeReply(nil, domain.WrapError(domain.ErrTemporary, "dispatch question", err)))
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handle(ctx context.Context, handler Handler, data []byte) []byte {
	var req domain.QuestionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return encodeReply(nil, domain.WrapError(domain.ErrInvalidInput, "decode question request", err))
	}
	answer, err := handler(ctx, req)
	if err != nil {
		q.logger.Error("question_failed", "error", err)
	}
	return encodeReply(answer, err)
}

func (q *Queue) respond(msg *nats.Msg, payload []byte) {
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(payload); err != nil {
		q.logger.Warn("nats_respond_failed", "error", err)
	}
}
