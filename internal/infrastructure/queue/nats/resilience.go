package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/resilience"
)

var publishPolicy = resilience.Policy{
	Transient: func(err error) bool {
		return errors.Is(err, nats.ErrNoServers) ||
			errors.Is(err, nats.ErrTimeout) ||
			errors.Is(err, nats.ErrConnectionClosed) ||
			errors.Is(err, nats.ErrDisconnected)
	},
}
