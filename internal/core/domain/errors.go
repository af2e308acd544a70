package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrTemporary           = errors.New("temporary failure")
	ErrUnparseableResponse = errors.New("unparseable model response")
	ErrDeliveryFailed      = errors.New("notification delivery failed")
	ErrMisconfigured       = errors.New("misconfigured")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
