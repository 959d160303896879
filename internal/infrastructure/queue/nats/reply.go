package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/infrastructure/resilience"
)

var transientErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
}

func classifyRequestError(err error) resilience.ErrorClassification {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case errors.Is(err, nats.ErrNoResponders):
		return resilience.ErrorClassification{RecordFailure: true}
	}
	for _, transient := range transientErrors {
		if errors.Is(err, transient) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// requestError tags a failed request. No responders means no worker is
// subscribed, which is reported as unavailable rather than temporary.
func requestError(err error) error {
	switch {
	case err == nil, domain.IsKind(err, domain.ErrTemporary):
		return err
	case errors.Is(err, nats.ErrNoResponders):
		return domain.WrapError(domain.ErrUnavailable, "nats request", err)
	case classifyRequestError(err).Retryable:
		return domain.WrapError(domain.ErrTemporary, "nats request", err)
	}
	return err
}

type replyError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type reply struct {
	Answer *domain.Answer `json:"answer,omitempty"`
	Error  *replyError    `json:"error,omitempty"`
}

var errorKinds = []struct {
	name string
	kind error
}{
	{"invalid_input", domain.ErrInvalidInput},
	{"passage_not_found", domain.ErrPassageNotFound},
	{"unavailable", domain.ErrUnavailable},
	{"temporary", domain.ErrTemporary},
}

func encodeReply(answer *domain.Answer, err error) []byte {
	r := reply{Answer: answer}
	if err != nil {
		r = reply{Error: &replyError{Kind: "internal", Message: err.Error()}}
		for _, k := range errorKinds {
			if errors.Is(err, k.kind) {
				r.Error.Kind = k.name
				break
			}
		}
	}
	data, mErr := json.Marshal(r)
	if mErr != nil {
		data, _ = json.Marshal(reply{Error: &replyError{Kind: "internal", Message: mErr.Error()}})
	}
	return data
}

// decodeReply restores the worker's error kind so callers can branch with
// domain.IsKind on either side of the broker.
func decodeReply(data []byte) (*domain.Answer, error) {
	var r reply
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode question reply: %w", err)
	}
	if r.Error != nil {
		cause := errors.New(r.Error.Message)
		for _, k := range errorKinds {
			if k.name == r.Error.Kind {
				return nil, domain.WrapError(k.kind, "remote worker", cause)
			}
		}
		return nil, fmt.Errorf("remote worker: %w", cause)
	}
	if r.Answer == nil {
		return nil, fmt.Errorf("decode question reply: empty answer")
	}
	return r.Answer, nil
}
