package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// Policy describes how an adapter's failures feed retries and the breaker.
// Cancellation is never retried nor recorded. Open circuits and network
// errors are always retryable.
type Policy struct {
	// Transient matches adapter-specific failures worth another attempt.
	Transient func(error) bool
	// Rejected matches answers the upstream gave on purpose, such as a 4xx.
	// They are neither retried nor counted against the breaker.
	Rejected func(error) bool
}

func (p Policy) Classify(err error) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{}
	case IsCircuitOpen(err):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	case p.Transient != nil && p.Transient(err):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	case p.Rejected != nil && p.Rejected(err):
		return ErrorClassification{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{RecordFailure: true}
}

// WrapTemporary tags err as domain.ErrTemporary when the policy would retry it.
func (p Policy) WrapTemporary(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if p.Classify(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

// RetryableHTTPStatus reports whether an upstream status is worth retrying.
func RetryableHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
