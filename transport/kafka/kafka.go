// Package kafka provides the Kafka transport. Messages are keyed by their
// partition_key metadata so that all readings of one pavilion, gate or the
// wheel land on the same partition.
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/expostream/internal/runtime/metadata"
	"github.com/drblury/expostream/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// PublishRetries is the number of times the producer retries a failed send.
const PublishRetries = 3

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

// Register registers the Kafka transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.KafkaCapabilities)
}

// PartitionKey reads the partition key a message was stamped with.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(metadata.KeyPartitionKey), nil
}

// Marshaler returns the keyed marshaler shared by publisher and subscriber.
func Marshaler() kafka.MarshalerUnmarshaler {
	return kafka.NewWithPartitioningMarshaler(PartitionKey)
}

// PublisherSaramaConfig waits for all in-sync replicas and retries failed sends.
func PublisherSaramaConfig(clientID string) *sarama.Config {
	cfg := kafka.DefaultSaramaSyncPublisherConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = PublishRetries
	if clientID != "" {
		cfg.ClientID = clientID
	}
	return cfg
}

// SubscriberSaramaConfig starts new consumer groups at the latest offset and
// leaves offset auto-commit enabled.
func SubscriberSaramaConfig(clientID string) *sarama.Config {
	cfg := kafka.DefaultSaramaSubscriberConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Offsets.AutoCommit.Enable = true
	if clientID != "" {
		cfg.ClientID = clientID
	}
	return cfg
}

// Build creates a new Kafka transport.
func Build(ctx context.Context, cfg transport.Config, role transport.Role, logger watermill.LoggerAdapter) (transport.Transport, error) {
	brokers := cfg.GetKafkaBrokers()
	if len(brokers) == 0 {
		return transport.Transport{}, fmt.Errorf("kafka: at least one broker is required")
	}
	marshaler := Marshaler()

	var tr transport.Transport
	if role.Has(transport.RolePublisher) {
		publisher, err := PublisherFactory(
			kafka.PublisherConfig{
				Brokers:               brokers,
				Marshaler:             marshaler,
				OverwriteSaramaConfig: PublisherSaramaConfig(cfg.GetKafkaClientID()),
			},
			logger,
		)
		if err != nil {
			return transport.Transport{}, fmt.Errorf("kafka publisher: %w", err)
		}
		tr.Publisher = publisher
	}

	if role.Has(transport.RoleSubscriber) {
		subscriber, err := SubscriberFactory(
			kafka.SubscriberConfig{
				Brokers:               brokers,
				Unmarshaler:           marshaler,
				ConsumerGroup:         cfg.GetKafkaConsumerGroup(),
				OverwriteSaramaConfig: SubscriberSaramaConfig(cfg.GetKafkaClientID()),
			},
			logger,
		)
		if err != nil {
			if tr.Publisher != nil {
				_ = tr.Publisher.Close()
			}
			return transport.Transport{}, fmt.Errorf("kafka subscriber: %w", err)
		}
		tr.Subscriber = subscriber
	}

	return tr, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.KafkaCapabilities
}
