package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/infrastructure/resilience"
)

type StatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func isStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func classifyQdrantError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		case http.StatusInternalServerError:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
		default:
			return resilience.ErrorClassification{}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyQdrantError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
