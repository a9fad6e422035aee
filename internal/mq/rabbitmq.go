package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mockly/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeKind       = "topic"
	defaultRoutingKey  = "interview.event"
	defaultConsumerGrp = "worker"
)

// RabbitMQClient publishes each channel to a topic exchange of the same name,
// routed by event kind. The queue <channel>.<group> is bound to every key on
// that exchange before the first publish, so events wait for the worker.
// Publishes block until the broker confirms them.
type RabbitMQClient struct {
	conn    *amqp.Connection
	pub     *amqp.Channel
	sub     *amqp.Channel
	durable bool
	autoDel bool
	group   string

	mu       sync.Mutex
	topology map[string]string
}

func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	client := &RabbitMQClient{
		conn:     conn,
		durable:  cfg.QueueDurable,
		autoDel:  cfg.QueueAutoDelete,
		group:    strings.TrimSpace(cfg.ConsumerGroup),
		topology: make(map[string]string),
	}
	if client.group == "" {
		client.group = defaultConsumerGrp
	}

	if client.pub, err = conn.Channel(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if err := client.pub.Confirm(false); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	if client.sub, err = conn.Channel(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open consume channel: %w", err)
	}
	if cfg.PrefetchCount > 0 {
		if err := client.sub.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set prefetch: %w", err)
		}
	}
	return client, nil
}

// Publish routes data by its kind attribute and blocks until the broker confirms it.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.ensureTopology(r.pub, channel); err != nil {
		return "", err
	}

	routingKey := attrs[AttrKind]
	if routingKey == "" {
		routingKey = defaultRoutingKey
	}
	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := uuid.NewString()
	confirm, err := r.pub.PublishWithDeferredConfirmWithContext(ctx, channel, routingKey, false, false, amqp.Publishing{
		ContentType:  contentType(attrs),
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Type:         attrs[AttrKind],
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", fmt.Errorf("publish %s to %s: %w", routingKey, channel, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", err
	}
	if !acked {
		return "", fmt.Errorf("broker rejected %s on %s", messageID, channel)
	}
	return messageID, nil
}

// Subscribe consumes the group queue of channel. A message whose handler
// fails is requeued once and dropped on the second failure.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	queue, err := r.ensureTopology(r.sub, channel)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	tag := r.group + "-" + uuid.NewString()
	deliveries, err := r.sub.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}
	defer func() {
		_ = r.sub.Cancel(tag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq deliveries for %s closed", queue)
			}
			msg := Message{
				ID:          delivery.MessageId,
				Data:        delivery.Body,
				Attributes:  tableToAttrs(delivery.Headers),
				Redelivered: delivery.Redelivered,
			}
			if handler(ctx, msg) != nil {
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (r *RabbitMQClient) Close() error {
	for _, ch := range []*amqp.Channel{r.sub, r.pub} {
		if ch != nil {
			_ = ch.Close()
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// ensureTopology declares the exchange for channel and binds its group queue.
// It must be called with r.mu held.
func (r *RabbitMQClient) ensureTopology(ch *amqp.Channel, channel string) (string, error) {
	if queue, ok := r.topology[channel]; ok {
		return queue, nil
	}
	if err := ch.ExchangeDeclare(channel, exchangeKind, r.durable, r.autoDel, false, false, nil); err != nil {
		return "", fmt.Errorf("declare exchange %s: %w", channel, err)
	}
	queue := channel + "." + r.group
	if _, err := ch.QueueDeclare(queue, r.durable, r.autoDel, false, false, nil); err != nil {
		return "", fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, "#", channel, false, nil); err != nil {
		return "", fmt.Errorf("bind %s to %s: %w", queue, channel, err)
	}
	r.topology[channel] = queue
	return queue, nil
}

func tableToAttrs(table amqp.Table) map[string]string {
	if len(table) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(table))
	for key, value := range table {
		switch v := value.(type) {
		case string:
			attrs[key] = v
		case []byte:
			attrs[key] = string(v)
		default:
			attrs[key] = fmt.Sprint(v)
		}
	}
	return attrs
}
