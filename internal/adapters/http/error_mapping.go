package httpadapter

import (
	"net/http"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrPassageNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
