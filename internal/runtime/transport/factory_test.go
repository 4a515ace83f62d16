package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/expostream/internal/runtime/config"
	runtimeerrors "github.com/drblury/expostream/internal/runtime/errors"
	"github.com/drblury/expostream/internal/runtime/logging"
	brokers "github.com/drblury/expostream/transport"
)

func testLogger() watermill.LoggerAdapter {
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logging.NewWatermillAdapter(logging.NewSlogServiceLogger(slogger))
}

func TestDefaultFactory_Build_Channel(t *testing.T) {
	factory := DefaultFactory()
	cfg := &config.Config{PubSubSystem: "channel"}

	tr, err := factory.Build(context.Background(), cfg, brokers.RoleBoth, testLogger())
	require.NoError(t, err)
	defer func() { _ = tr.Close() }()

	assert.NotNil(t, tr.Publisher)
	assert.NotNil(t, tr.Subscriber)
	assert.Equal(t, brokers.ChannelCapabilities, factory.Capabilities(cfg))
}

func TestDefaultFactory_RegistersBundledBrokers(t *testing.T) {
	DefaultFactory()
	for _, name := range []string{"channel", "gochannel", "kafka", "nats", "rabbitmq"} {
		assert.True(t, brokers.DefaultRegistry.Has(name), name)
	}
}

func TestFactory_Build_NilConfig(t *testing.T) {
	_, err := DefaultFactory().Build(context.Background(), nil, brokers.RoleBoth, testLogger())
	assert.ErrorIs(t, err, runtimeerrors.ErrConfigRequired)
	assert.Equal(t, brokers.Capabilities{}, DefaultFactory().Capabilities(nil))
}

func TestFactory_Build_WrapsRegistryError(t *testing.T) {
	registry := brokers.NewRegistry()
	boom := errors.New("dial failed")
	registry.Register("broken", func(context.Context, brokers.Config, brokers.Role, watermill.LoggerAdapter) (brokers.Transport, error) {
		return brokers.Transport{}, boom
	})

	_, err := NewFactory(registry).Build(context.Background(), &config.Config{PubSubSystem: "broken"}, brokers.RoleSubscriber, nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "build broken transport")
}

func TestFactory_Build_PassesRole(t *testing.T) {
	registry := brokers.NewRegistry()
	var got brokers.Role
	registry.Register("stub", func(_ context.Context, _ brokers.Config, role brokers.Role, _ watermill.LoggerAdapter) (brokers.Transport, error) {
		got = role
		return brokers.Transport{Publisher: nopPublisher{}}, nil
	})

	tr, err := NewFactory(registry).Build(context.Background(), &config.Config{PubSubSystem: "stub"}, brokers.RolePublisher, testLogger())
	require.NoError(t, err)
	assert.Equal(t, brokers.RolePublisher, got)
	assert.NotNil(t, tr.Publisher)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, ...*message.Message) error { return nil }
func (nopPublisher) Close() error                              { return nil }
