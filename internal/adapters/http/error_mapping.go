package httpadapter

import (
	"net/http"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// statusByKind is checked in order; the first matching kind wins.
var statusByKind = []struct {
	kind   error
	status int
}{
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrTemporary, http.StatusServiceUnavailable},
	{domain.ErrUnparseableResponse, http.StatusBadGateway},
}

func mapErrorToHTTPStatus(err error) int {
	for _, m := range statusByKind {
		if domain.IsKind(err, m.kind) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
