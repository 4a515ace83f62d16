package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/expostream/internal/runtime/metadata"
	"github.com/drblury/expostream/transport"
)

func TestRegister(t *testing.T) {
	transport.DefaultRegistry = transport.NewRegistry()
	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "kafka", caps.Name)
	assert.True(t, caps.SupportsPartitioning)
	assert.True(t, caps.SupportsReliableDelivery())
	assert.Equal(t, transport.KafkaCapabilities, Capabilities())
}

func TestMarshalerKeysByPartitionKey(t *testing.T) {
	msg := message.NewMessage(watermill.NewULID(), []byte(`{"pavilion_id":"electricity_building"}`))
	msg.Metadata.Set(metadata.KeyPartitionKey, "electricity_building")

	produced, err := Marshaler().Marshal("pavilion-sensors", msg)
	require.NoError(t, err)
	assert.Equal(t, "pavilion-sensors", produced.Topic)

	key, err := produced.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "electricity_building", string(key))
}

func TestSaramaConfigs(t *testing.T) {
	pub := PublisherSaramaConfig("chicago-fair-generator")
	assert.Equal(t, sarama.WaitForAll, pub.Producer.RequiredAcks)
	assert.Equal(t, PublishRetries, pub.Producer.Retry.Max)
	assert.True(t, pub.Producer.Return.Successes)
	assert.Equal(t, "chicago-fair-generator", pub.ClientID)

	sub := SubscriberSaramaConfig("")
	assert.Equal(t, sarama.OffsetNewest, sub.Consumer.Offsets.Initial)
	assert.True(t, sub.Consumer.Offsets.AutoCommit.Enable)
	assert.NotEmpty(t, sub.ClientID)
}

func TestBuild(t *testing.T) {
	t.Run("subscriber role only builds the consumer", func(t *testing.T) {
		restore := stubFactories(t)
		defer restore()

		PublisherFactory = func(kafka.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
			t.Fatal("publisher must not be built for the subscriber role")
			return nil, nil
		}
		mockSub := &mockSubscriber{}
		SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
			assert.Equal(t, "chicago-fair-processor", cfg.ConsumerGroup)
			assert.Equal(t, sarama.OffsetNewest, cfg.OverwriteSaramaConfig.Consumer.Offsets.Initial)
			return mockSub, nil
		}

		cfg := &mockConfig{brokers: []string{"localhost:9092"}, consumerGroup: "chicago-fair-processor"}
		tr, err := Build(context.Background(), cfg, transport.RoleSubscriber, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Nil(t, tr.Publisher)
		assert.Equal(t, mockSub, tr.Subscriber)
	})

	t.Run("publisher role uses acks=all", func(t *testing.T) {
		restore := stubFactories(t)
		defer restore()

		mockPub := &mockPublisher{}
		PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			assert.Equal(t, sarama.WaitForAll, cfg.OverwriteSaramaConfig.Producer.RequiredAcks)
			assert.NotNil(t, cfg.Marshaler)
			return mockPub, nil
		}

		cfg := &mockConfig{brokers: []string{"localhost:9092"}}
		tr, err := Build(context.Background(), cfg, transport.RolePublisher, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Equal(t, mockPub, tr.Publisher)
		assert.Nil(t, tr.Subscriber)
	})

	t.Run("requires brokers", func(t *testing.T) {
		_, err := Build(context.Background(), &mockConfig{}, transport.RoleBoth, watermill.NopLogger{})
		assert.ErrorContains(t, err, "broker is required")
	})

	t.Run("returns error when publisher factory fails", func(t *testing.T) {
		restore := stubFactories(t)
		defer restore()

		PublisherFactory = func(kafka.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("publisher error")
		}

		_, err := Build(context.Background(), &mockConfig{brokers: []string{"localhost:9092"}}, transport.RoleBoth, watermill.NopLogger{})
		assert.ErrorContains(t, err, "publisher error")
	})

	t.Run("closes publisher when subscriber factory fails", func(t *testing.T) {
		restore := stubFactories(t)
		defer restore()

		mockPub := &mockPublisher{}
		PublisherFactory = func(kafka.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
			return mockPub, nil
		}
		SubscriberFactory = func(kafka.SubscriberConfig, watermill.LoggerAdapter) (message.Subscriber, error) {
			return nil, errors.New("subscriber error")
		}

		_, err := Build(context.Background(), &mockConfig{brokers: []string{"localhost:9092"}}, transport.RoleBoth, watermill.NopLogger{})
		assert.ErrorContains(t, err, "subscriber error")
		assert.True(t, mockPub.closed)
	})
}

func stubFactories(t *testing.T) func() {
	t.Helper()
	originalPub := PublisherFactory
	originalSub := SubscriberFactory
	return func() {
		PublisherFactory = originalPub
		SubscriberFactory = originalSub
	}
}

type mockConfig struct {
	brokers       []string
	consumerGroup string
}

func (m *mockConfig) GetPubSubSystem() string       { return "kafka" }
func (m *mockConfig) GetKafkaBrokers() []string     { return m.brokers }
func (m *mockConfig) GetKafkaClientID() string      { return "" }
func (m *mockConfig) GetKafkaConsumerGroup() string { return m.consumerGroup }
func (m *mockConfig) GetRabbitMQURL() string        { return "" }
func (m *mockConfig) GetNATSURL() string            { return "" }

type mockPublisher struct{ closed bool }

func (m *mockPublisher) Publish(string, ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                              { m.closed = true; return nil }

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (m *mockSubscriber) Close() error { return nil }
