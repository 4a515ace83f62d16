package transport

// Capabilities describes the delivery guarantees a broker offers the
// processor. The processor consults them when choosing an ack mode.
type Capabilities struct {
	// Name is the registry key of the transport.
	Name string

	// SupportsAck indicates consumed messages are acknowledged explicitly
	// (offset commit, basic.ack, ...).
	SupportsAck bool

	// SupportsNack indicates a negative acknowledgment triggers redelivery.
	SupportsNack bool

	// SupportsOrdering indicates messages sharing a partition key arrive in
	// publish order.
	SupportsOrdering bool

	// SupportsPartitioning indicates the partition_key metadata is honoured.
	SupportsPartitioning bool

	// Durable indicates messages survive a broker restart.
	Durable bool
}

// SupportsReliableDelivery returns true if the transport supports at-least-once
// delivery semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// Predefined capability sets for the bundled transports.
var (
	// ChannelCapabilities for the in-memory Go channel transport.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsAck:      true,
		SupportsNack:     true,
		SupportsOrdering: true,
	}

	// KafkaCapabilities for Apache Kafka.
	KafkaCapabilities = Capabilities{
		Name:                 "kafka",
		SupportsAck:          true,
		SupportsNack:         true,
		SupportsOrdering:     true,
		SupportsPartitioning: true,
		Durable:              true,
	}

	// NATSCapabilities for core NATS. Core NATS does not redeliver.
	NATSCapabilities = Capabilities{
		Name:             "nats",
		SupportsAck:      false,
		SupportsNack:     false,
		SupportsOrdering: true,
	}

	// RabbitMQCapabilities for RabbitMQ/AMQP durable queues.
	RabbitMQCapabilities = Capabilities{
		Name:         "rabbitmq",
		SupportsAck:  true,
		SupportsNack: true,
		Durable:      true,
	}
)
