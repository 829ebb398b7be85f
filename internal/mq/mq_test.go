package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notesapp/apiserver/config"
)

func TestOpenDisabledBackend(t *testing.T) {
	backend, err := Open(context.Background(), config.EventsConfig{Backend: config.BackendNone})
	require.NoError(t, err)
	assert.Nil(t, backend)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.EventsConfig{Backend: "kafka"})
	assert.Error(t, err)
}

func TestBackendConstructorsRequireSettings(t *testing.T) {
	_, err := NewRabbitMQClient(config.RabbitMQConfig{})
	assert.Error(t, err)

	_, err = NewPubSubClient(context.Background(), config.PubSubConfig{})
	assert.Error(t, err)
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))

	attrs := headersToAttributes(amqp.Table{
		"event":   "note.created",
		"raw":     []byte("bytes"),
		"version": int32(2),
	})
	assert.Equal(t, map[string]string{
		"event":   "note.created",
		"raw":     "bytes",
		"version": "2",
	}, attrs)
}
