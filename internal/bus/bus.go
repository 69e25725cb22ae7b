// Package bus provides event bus implementations for Heron.
package bus

import (
	"errors"
	"fmt"

	"github.com/opensource-health/heron/internal/domain"
)

var (
	// ErrScopeRequired is returned when a publish or subscribe has no scope.
	ErrScopeRequired = errors.New("bus scope is required")

	// ErrClosed is returned by a bus that has been closed.
	ErrClosed = errors.New("bus is closed")
)

// New creates an event bus from configuration.
// "channel" returns an in-process ChannelBus; "nats" returns a NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "", "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
