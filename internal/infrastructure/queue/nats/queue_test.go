package nats

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

func TestReplyRoundTripKeepsErrorKind(t *testing.T) {
	_, err := decodeReply(encodeReply(nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("empty question"))))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}

	_, err = decodeReply(encodeReply(nil, errors.New("boom")))
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected plain internal error, got %v", err)
	}
}

func TestReplyCarriesAnswer(t *testing.T) {
	got, err := decodeReply(encodeReply(&domain.Answer{Text: "Paris", Confidence: 0.8}, nil))
	if err != nil {
		t.Fatalf("decodeReply() error = %v", err)
	}
	if got.Text != "Paris" || got.Confidence != 0.8 {
		t.Fatalf("unexpected answer %+v", got)
	}
	if _, err := decodeReply([]byte(`{}`)); err == nil {
		t.Fatalf("expected error for empty reply")
	}
}

func TestHandleDecodesRequestAndCallsHandler(t *testing.T) {
	q := newQueue(nil, "questions.ask", Options{}, slog.Default())

	var seen domain.QuestionRequest
	payload := q.handle(context.Background(), func(_ context.Context, req domain.QuestionRequest) (*domain.Answer, error) {
		seen = req
		return &domain.Answer{Text: "ok"}, nil
	}, []byte(`{"question":"capital?","top_k":3}`))

	if seen.Question != "capital?" || seen.TopK != 3 {
		t.Fatalf("unexpected request %+v", seen)
	}
	got, err := decodeReply(payload)
	if err != nil || got.Text != "ok" {
		t.Fatalf("unexpected reply %v %v", got, err)
	}
}

func TestHandleRejectsMalformedRequest(t *testing.T) {
	q := newQueue(nil, "questions.ask", Options{}, slog.Default())
	payload := q.handle(context.Background(), func(context.Context, domain.QuestionRequest) (*domain.Answer, error) {
		t.Fatalf("handler must not run")
		return nil, nil
	}, []byte(`not json`))
	if _, err := decodeReply(payload); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRequestErrorKinds(t *testing.T) {
	if !domain.IsKind(requestError(nats.ErrNoResponders), domain.ErrUnavailable) {
		t.Fatalf("no responders should be unavailable")
	}
	if classifyRequestError(nats.ErrNoResponders).Retryable {
		t.Fatalf("no responders must not be retried")
	}
	if classifyRequestError(context.Canceled).RecordFailure {
		t.Fatalf("cancellation must not count as failure")
	}
	if !domain.IsKind(requestError(nats.ErrTimeout), domain.ErrTemporary) {
		t.Fatalf("timeouts should be temporary")
	}
}
