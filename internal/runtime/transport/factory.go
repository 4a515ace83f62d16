// Package transport bridges the runtime configuration to the broker registry.
// Importing it registers every bundled broker.
package transport

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/expostream/internal/runtime/config"
	"github.com/drblury/expostream/internal/runtime/errors"
	brokers "github.com/drblury/expostream/transport"
	"github.com/drblury/expostream/transport/transports"
)

// Transport is the publisher/subscriber pair handed to the simulator and the
// processor.
type Transport = brokers.Transport

// Factory abstracts how the processes initialise message transports.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, role brokers.Role, logger watermill.LoggerAdapter) (Transport, error)
	Capabilities(conf *config.Config) brokers.Capabilities
}

// DefaultFactory returns the factory backed by the default broker registry.
func DefaultFactory() Factory {
	transports.RegisterAll()
	return registryFactory{registry: brokers.DefaultRegistry}
}

// NewFactory returns a factory backed by the given registry.
func NewFactory(registry *brokers.Registry) Factory {
	return registryFactory{registry: registry}
}

type registryFactory struct {
	registry *brokers.Registry
}

func (f registryFactory) Build(ctx context.Context, conf *config.Config, role brokers.Role, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, errors.ErrConfigRequired
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	t, err := f.registry.Build(ctx, conf, role, logger)
	if err != nil {
		return Transport{}, fmt.Errorf("build %s transport: %w", conf.GetPubSubSystem(), err)
	}
	logger.Info("Transport ready", watermill.LogFields{
		"system": conf.GetPubSubSystem(),
		"role":   role.String(),
	})
	return t, nil
}

func (f registryFactory) Capabilities(conf *config.Config) brokers.Capabilities {
	if conf == nil {
		return brokers.Capabilities{}
	}
	return f.registry.GetCapabilities(conf.GetPubSubSystem())
}
