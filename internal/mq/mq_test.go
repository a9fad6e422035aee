package mq

import (
	"context"
	"testing"

	"github.com/mockly/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	published []Message
	closed    bool
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.published = append(b.published, Message{ID: channel, Data: data, Attributes: attrs})
	return "id-1", nil
}

func (b *recordingBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	for _, msg := range b.published {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestMQDelegatesToBackend(t *testing.T) {
	backend := &recordingBackend{}
	broker := New(backend)

	id, err := broker.Publish(context.Background(), "interview-events", []byte(`{}`), map[string]string{"kind": "interview.scheduled"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	var seen []string
	err = broker.Subscribe(context.Background(), "interview-events", func(_ context.Context, msg Message) error {
		seen = append(seen, msg.Attributes["kind"])
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"interview.scheduled"}, seen)

	require.NoError(t, broker.Close())
	assert.True(t, backend.closed)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType(nil))
	assert.Equal(t, "text/plain", contentType(map[string]string{AttrContentType: "text/plain"}))
}

func TestFromConfig(t *testing.T) {
	broker, err := FromConfig(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	assert.Nil(t, broker)

	_, err = FromConfig(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.ErrorContains(t, err, "unknown mq backend")
}
