// Package rabbitmq publishes and consumes project events over AMQP.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"showcase/internal/logger"
	"showcase/internal/models"

	amqp "github.com/streadway/amqp"
)

// DefaultQueue is the queue project events are published to.
const DefaultQueue = "project_events"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *logger.Logger
	// mu serialises publishes on the shared channel
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient connects to RabbitMQ, opens a channel and declares the event
// queue.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Infow("rabbitmq_connected", "queue", cfg.Queue)
	return &Client{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		log:     log,
	}, nil
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare %s: %w", name, err)
	}
	return q, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishProjectEvent publishes a persistent JSON message to the event queue.
func (c *Client) PublishProjectEvent(ctx context.Context, event models.ProjectEvent) error {
	if c == nil || c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.channel.Publish(
		"",      // default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		msg,
	); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	c.log.Debugw("project_event_published", "type", event.Type, "project_id", event.ProjectID)
	return nil
}

// ConsumeProjectEvents delivers queued events to handler in a background
// goroutine. Messages are acked when handler succeeds and requeued when it
// fails; undecodable messages are dropped.
func (c *Client) ConsumeProjectEvents(handler func(models.ProjectEvent) error) error {
	if c == nil || c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			c.handleDelivery(msg, handler)
		}
		c.log.Infow("rabbitmq_consumer_stopped", "queue", c.queue)
	}()
	return nil
}

func (c *Client) handleDelivery(msg amqp.Delivery, handler func(models.ProjectEvent) error) {
	event, err := decodeEvent(msg.Body)
	if err != nil {
		c.log.Warnw("project_event_dropped", "delivery_tag", msg.DeliveryTag, "err", err)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.log.Errorw("nack_failed", "delivery_tag", msg.DeliveryTag, "err", nackErr)
		}
		return
	}
	if err := handler(event); err != nil {
		// One retry; a message that fails again is dropped so it cannot loop forever.
		requeue := !msg.Redelivered
		if requeue {
			c.log.Warnw("project_event_failed", "delivery_tag", msg.DeliveryTag, "type", event.Type, "err", err)
		} else {
			c.log.Errorw("project_event_dropped", "delivery_tag", msg.DeliveryTag, "type", event.Type, "err", err)
		}
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			c.log.Errorw("nack_failed", "delivery_tag", msg.DeliveryTag, "err", nackErr)
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		c.log.Errorw("ack_failed", "delivery_tag", msg.DeliveryTag, "err", ackErr)
	}
}

func encodeEvent(event models.ProjectEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal project event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
	}, nil
}

func decodeEvent(body []byte) (models.ProjectEvent, error) {
	var event models.ProjectEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return models.ProjectEvent{}, fmt.Errorf("failed to decode project event: %w", err)
	}
	if event.Type == "" || event.ProjectID == "" {
		return models.ProjectEvent{}, errors.New("project event without type or project id")
	}
	return event, nil
}
