package transport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConfig struct {
	pubSubSystem string
}

func (m *mockConfig) GetPubSubSystem() string       { return m.pubSubSystem }
func (m *mockConfig) GetKafkaBrokers() []string     { return nil }
func (m *mockConfig) GetKafkaClientID() string      { return "" }
func (m *mockConfig) GetKafkaConsumerGroup() string { return "" }
func (m *mockConfig) GetRabbitMQURL() string        { return "" }
func (m *mockConfig) GetNATSURL() string            { return "" }

type mockPublisher struct {
	closed bool
}

func (m *mockPublisher) Publish(string, ...*message.Message) error { return nil }

func (m *mockPublisher) Close() error {
	m.closed = true
	return nil
}

type mockSubscriber struct {
	closed   bool
	closeErr error
}

func (m *mockSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (m *mockSubscriber) Close() error {
	m.closed = true
	return m.closeErr
}

func roleBuilder(ctx context.Context, cfg Config, role Role, logger watermill.LoggerAdapter) (Transport, error) {
	var tr Transport
	if role.Has(RolePublisher) {
		tr.Publisher = &mockPublisher{}
	}
	if role.Has(RoleSubscriber) {
		tr.Subscriber = &mockSubscriber{}
	}
	return tr, nil
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.NotNil(t, reg)
	assert.Empty(t, reg.Names())
}

func TestRegistry_RegisterWithCapabilities(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterWithCapabilities("test-transport", roleBuilder, Capabilities{Name: "test-transport", SupportsAck: true})

	assert.True(t, reg.Has("test-transport"))
	caps := reg.GetCapabilities("test-transport")
	assert.Equal(t, "test-transport", caps.Name)
	assert.True(t, caps.SupportsAck)
}

func TestRegistry_GetCapabilities_Unknown(t *testing.T) {
	caps := NewRegistry().GetCapabilities("unknown")
	assert.Equal(t, "unknown", caps.Name)
	assert.False(t, caps.SupportsReliableDelivery())
}

func TestRegistry_Build_Roles(t *testing.T) {
	reg := NewRegistry()
	reg.Register("test-transport", roleBuilder)
	cfg := &mockConfig{pubSubSystem: "test-transport"}

	pub, err := reg.Build(context.Background(), cfg, RolePublisher, nil)
	require.NoError(t, err)
	assert.NotNil(t, pub.Publisher)
	assert.Nil(t, pub.Subscriber)

	sub, err := reg.Build(context.Background(), cfg, RoleSubscriber, nil)
	require.NoError(t, err)
	assert.Nil(t, sub.Publisher)
	assert.NotNil(t, sub.Subscriber)

	both, err := reg.Build(context.Background(), cfg, RoleBoth, nil)
	require.NoError(t, err)
	assert.NotNil(t, both.Publisher)
	assert.NotNil(t, both.Subscriber)
}

func TestRegistry_Build_Errors(t *testing.T) {
	reg := NewRegistry()
	expectedErr := errors.New("builder error")
	reg.Register("failing-transport", func(context.Context, Config, Role, watermill.LoggerAdapter) (Transport, error) {
		return Transport{}, expectedErr
	})

	_, err := reg.Build(context.Background(), nil, RoleBoth, nil)
	assert.ErrorContains(t, err, "config is required")

	_, err = reg.Build(context.Background(), &mockConfig{pubSubSystem: "failing-transport"}, 0, nil)
	assert.ErrorContains(t, err, "role is required")

	_, err = reg.Build(context.Background(), &mockConfig{pubSubSystem: "unknown-transport"}, RoleBoth, nil)
	assert.ErrorContains(t, err, "unknown transport")

	_, err = reg.Build(context.Background(), &mockConfig{pubSubSystem: "failing-transport"}, RoleBoth, nil)
	assert.Equal(t, expectedErr, err)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	reg.Register("transport2", roleBuilder)
	reg.Register("transport1", roleBuilder)

	assert.Equal(t, []string{"transport1", "transport2"}, reg.Names())
	assert.False(t, reg.Has("transport3"))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.Register("transport", roleBuilder)
				reg.Has("transport")
				reg.Names()
				reg.GetCapabilities("transport")
			}
		}()
	}
	wg.Wait()

	assert.True(t, reg.Has("transport"))
}

func TestPackageLevelRegistry(t *testing.T) {
	RegisterWithCapabilities("test-pkg-transport", roleBuilder, Capabilities{Name: "test-pkg-transport"})
	assert.True(t, DefaultRegistry.Has("test-pkg-transport"))

	tr, err := Build(context.Background(), &mockConfig{pubSubSystem: "test-pkg-transport"}, RolePublisher, nil)
	require.NoError(t, err)
	assert.NotNil(t, tr.Publisher)

	_, err = Build(context.Background(), &mockConfig{pubSubSystem: "nonexistent"}, RoleBoth, nil)
	assert.Error(t, err)
}
