package gemini

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "gemini status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("gemini %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("gemini %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func statusCode(err error) (int, bool) {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}

// A 4xx means a bad request or key, not an unhealthy upstream.
var callPolicy = resilience.Policy{
	Transient: func(err error) bool {
		code, ok := statusCode(err)
		return ok && resilience.RetryableHTTPStatus(code)
	},
	Rejected: func(err error) bool {
		_, ok := statusCode(err)
		return ok
	},
}
