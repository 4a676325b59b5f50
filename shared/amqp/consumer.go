// Package amqp consumes render requests from a RabbitMQ queue.
package amqp

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"storyreel/logging"
	"storyreel/shared/kafka"
)

// Consumer reads one durable queue with manual acks and a prefetch of one,
// so a worker never holds more than the render it is running.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	handler kafka.MessageHandler
	log     logging.Logger
}

// NewConsumer dials url and declares queue.
func NewConsumer(url, queue string, handler kafka.MessageHandler, log logging.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{conn: conn, channel: ch, queue: queue, handler: handler, log: logging.OrNop(log)}, nil
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	c.log.Infow("rabbitmq consumer started", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq channel closed")
			}
			handleDelivery(ctx, d, c.handler, c.log)
		}
	}
}

// handleDelivery acks handled messages. A failed message is requeued once;
// a second failure drops it.
func handleDelivery(ctx context.Context, d amqp.Delivery, h kafka.MessageHandler, log logging.Logger) {
	mark, err := h.HandleMessage(ctx, d.Body)
	if err != nil {
		log.Errorw("rabbitmq message failed", "tag", d.DeliveryTag, "redelivered", d.Redelivered, "error", err)
	}

	switch {
	case mark:
		err = d.Ack(false)
	case d.Redelivered:
		log.Warnw("dropping message after redelivery", "tag", d.DeliveryTag)
		err = d.Nack(false, false)
	default:
		err = d.Nack(false, true)
	}
	if err != nil {
		log.Errorw("rabbitmq settle failed", "tag", d.DeliveryTag, "error", err)
	}
}

// Close closes the channel and connection.
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return err
		}
	}
	c.log.Infow("rabbitmq closed")
	return nil
}

// Publisher enqueues render requests.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher dials url.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &Publisher{conn: conn, channel: ch}, nil
}

// Publish declares queue and sends body as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, queue string, body []byte) error {
	if _, err := p.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	err := p.channel.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	return p.conn.Close()
}
