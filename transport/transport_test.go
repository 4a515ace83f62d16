package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole(t *testing.T) {
	assert.True(t, RoleBoth.Has(RolePublisher))
	assert.True(t, RoleBoth.Has(RoleSubscriber))
	assert.False(t, RolePublisher.Has(RoleSubscriber))

	assert.Equal(t, "publisher", RolePublisher.String())
	assert.Equal(t, "subscriber", RoleSubscriber.String())
	assert.Equal(t, "publisher+subscriber", RoleBoth.String())
	assert.Equal(t, "none", Role(0).String())
}

func TestTransport_Close(t *testing.T) {
	pub := &mockPublisher{}
	sub := &mockSubscriber{}

	assert.NoError(t, Transport{Publisher: pub, Subscriber: sub}.Close())
	assert.True(t, pub.closed)
	assert.True(t, sub.closed)

	assert.NoError(t, Transport{}.Close())
}

func TestTransport_CloseReturnsSubscriberError(t *testing.T) {
	closeErr := errors.New("boom")
	err := Transport{Subscriber: &mockSubscriber{closeErr: closeErr}}.Close()
	assert.ErrorIs(t, err, closeErr)
}

func TestConfig_Interface(t *testing.T) {
	var _ Config = (*mockConfig)(nil)
	assert.Equal(t, "test", (&mockConfig{pubSubSystem: "test"}).GetPubSubSystem())
}
