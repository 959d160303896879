package ollama

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

// StatusError carries a non-2xx ollama response.
type StatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, body)
}

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func classifyError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		retry := retryableStatus[statusErr.StatusCode]
		return resilience.ErrorClassification{Retryable: retry, RecordFailure: retry}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// toDomainError tags err with a domain kind. A missing model reports
// unavailable so callers can degrade instead of retrying.
func toDomainError(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrUnavailable) {
		return err
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return domain.WrapError(domain.ErrUnavailable, operation, err)
	}
	if classifyError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
