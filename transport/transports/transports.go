// Package transports registers every bundled broker with the default
// transport registry.
package transports

import (
	"sync"

	"github.com/drblury/expostream/transport/channel"
	"github.com/drblury/expostream/transport/kafka"
	"github.com/drblury/expostream/transport/nats"
	"github.com/drblury/expostream/transport/rabbitmq"
)

var once sync.Once

// RegisterAll registers the channel, kafka, nats and rabbitmq transports.
// Calling it more than once is a no-op.
func RegisterAll() {
	once.Do(func() {
		channel.Register()
		kafka.Register()
		nats.Register()
		rabbitmq.Register()
	})
}
