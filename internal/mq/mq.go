package mq

import "context"

// Attribute keys understood by every backend.
const (
	// AttrContentType sets the payload media type. Defaults to application/json.
	AttrContentType = "content-type"
	// AttrOrderingKey groups messages that must be delivered in publish order.
	AttrOrderingKey = "interview_id"
	// AttrKind names the event kind. RabbitMQ also carries it as the message type.
	AttrKind = "kind"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
	// Redelivered is set when the broker has delivered the message before.
	Redelivered bool
}

// Handler processes a message. A non-nil error asks the broker to redeliver.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each broker.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ carries interview lifecycle events over the configured broker.
type MQ struct {
	backend Backend
}

func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Publish sends data to the named channel and returns the broker message id.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe blocks, feeding messages from channel to handler until ctx ends.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

func (m *MQ) Close() error {
	return m.backend.Close()
}

func contentType(attrs map[string]string) string {
	if value := attrs[AttrContentType]; value != "" {
		return value
	}
	return "application/json"
}
