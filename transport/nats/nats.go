// Package nats provides a NATS Core transport.
package nats

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/drblury/expostream/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return nats.NewSubscriber(cfg, logger)
}

// Register registers the NATS transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// ConnectionOptions names the connection after the client id and keeps
// reconnecting while the server is away.
func ConnectionOptions(clientID string) []nc.Option {
	opts := []nc.Option{nc.MaxReconnects(-1)}
	if clientID != "" {
		opts = append(opts, nc.Name(clientID))
	}
	return opts
}

// Build creates a new NATS transport. The consumer group becomes the queue
// group so several processors split the stream instead of duplicating it.
func Build(ctx context.Context, cfg transport.Config, role transport.Role, logger watermill.LoggerAdapter) (transport.Transport, error) {
	url := cfg.GetNATSURL()
	if url == "" {
		return transport.Transport{}, fmt.Errorf("nats: url is required")
	}
	marshaler := &nats.NATSMarshaler{}
	opts := ConnectionOptions(cfg.GetKafkaClientID())

	var tr transport.Transport
	if role.Has(transport.RolePublisher) {
		publisher, err := PublisherFactory(
			nats.PublisherConfig{
				URL:         url,
				NatsOptions: opts,
				Marshaler:   marshaler,
				JetStream:   nats.JetStreamConfig{Disabled: true},
			},
			logger,
		)
		if err != nil {
			return transport.Transport{}, fmt.Errorf("nats publisher: %w", err)
		}
		tr.Publisher = publisher
	}

	if role.Has(transport.RoleSubscriber) {
		subscriber, err := SubscriberFactory(
			nats.SubscriberConfig{
				URL:              url,
				NatsOptions:      opts,
				QueueGroupPrefix: cfg.GetKafkaConsumerGroup(),
				Unmarshaler:      marshaler,
				JetStream:        nats.JetStreamConfig{Disabled: true},
			},
			logger,
		)
		if err != nil {
			if tr.Publisher != nil {
				_ = tr.Publisher.Close()
			}
			return transport.Transport{}, fmt.Errorf("nats subscriber: %w", err)
		}
		tr.Subscriber = subscriber
	}

	return tr, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}
