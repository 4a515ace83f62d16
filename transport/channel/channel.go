// Package channel provides an in-memory Go channel transport. It backs the
// standalone mode, where simulator and processor share one process, and the
// end-to-end tests.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/expostream/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// Alias is accepted as a second registry key.
const Alias = "gochannel"

// OutputBuffer bounds each subscriber's output channel.
const OutputBuffer = 256

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

// Register registers the channel transport under both of its names.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
	transport.RegisterWithCapabilities(Alias, Build, transport.ChannelCapabilities)
}

// Build creates a new Go channel transport. Publish returns only after every
// subscriber acked the message, so messages on one topic arrive in publish
// order. Nothing is retained: a message published while no one subscribes
// is dropped, so subscribers must attach before the first publish.
// Both halves are always the same object regardless of role.
func Build(ctx context.Context, cfg transport.Config, role transport.Role, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pub, sub := Factory(gochannel.Config{
		OutputChannelBuffer:            OutputBuffer,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}
