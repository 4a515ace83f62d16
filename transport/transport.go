// Package transport defines the broker abstraction shared by the simulator and
// the processor. Each broker implementation (kafka, nats, rabbitmq, channel)
// lives in its own sub-package and registers itself with the registry.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Role selects which half of a transport a process needs. The simulator only
// publishes and the processor only subscribes, so neither opens connections
// it never uses.
type Role uint8

const (
	RolePublisher Role = 1 << iota
	RoleSubscriber

	RoleBoth = RolePublisher | RoleSubscriber
)

// Has reports whether r includes other.
func (r Role) Has(other Role) bool { return r&other != 0 }

func (r Role) String() string {
	switch r {
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	case RoleBoth:
		return "publisher+subscriber"
	default:
		return "none"
	}
}

// Transport combines a publisher and subscriber pair produced by a builder.
// Either side is nil when the requested Role did not include it.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close releases whichever halves were built.
func (t Transport) Close() error {
	var firstErr error
	if t.Publisher != nil {
		firstErr = t.Publisher.Close()
	}
	if t.Subscriber != nil && any(t.Subscriber) != any(t.Publisher) {
		if err := t.Subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Builder is the function signature for creating a transport from config.
type Builder func(ctx context.Context, cfg Config, role Role, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by transports.
type Config interface {
	// GetPubSubSystem returns the transport type name.
	GetPubSubSystem() string

	// Kafka
	GetKafkaBrokers() []string
	GetKafkaClientID() string
	GetKafkaConsumerGroup() string

	// RabbitMQ
	GetRabbitMQURL() string

	// NATS
	GetNATSURL() string
}

// CapabilitiesProvider is implemented by transports that can report their capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}
