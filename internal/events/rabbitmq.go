package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 3 * time.Second

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes JSON events to a durable topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       channel
	exchange string
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRabbitPublisher dials url, opens a channel and declares the exchange.
func NewRabbitPublisher(url, exchange string, logger zerolog.Logger) (*RabbitPublisher, error) {
	logger = logger.With().Str("component", "rabbitmq-publisher").Logger()

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	logger.Info().Str("exchange", exchange).Msg("rabbitmq publisher ready")

	p := newRabbitPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

func newRabbitPublisher(ch channel, exchange string, logger zerolog.Logger) *RabbitPublisher {
	return &RabbitPublisher{
		ch:       ch,
		exchange: exchange,
		now:      time.Now,
		logger:   logger,
	}
}

// Publish wraps event in an Envelope and sends it persistently.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	env := Envelope{
		EventID:    uuid.NewString(),
		EventName:  eventName(routingKey),
		OccurredAt: p.now().UTC(),
		Payload:    event,
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", routingKey, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(pubCtx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.EventID,
		Timestamp:    env.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.logger.Debug().Str("routing_key", routingKey).Str("event_id", env.EventID).Msg("event published")
	return nil
}

// Close closes the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// eventName strips the version suffix: "order.created.v1" -> "order.created".
func eventName(routingKey string) string {
	if i := strings.LastIndex(routingKey, ".v"); i > 0 {
		return routingKey[:i]
	}
	return routingKey
}
