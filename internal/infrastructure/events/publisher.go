package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitebudget/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultExchange is the topic exchange reconciliation events are published to
	DefaultExchange = "bitebudget.events"
	// DefaultRoutingKey is used when no routing key is configured
	DefaultRoutingKey = "reconciliation.completed"

	publishTimeout = 5 * time.Second
)

// channel is the subset of *amqp.Channel used for publishing
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes reconciliation events to a RabbitMQ topic exchange
type AMQPPublisher struct {
	conn       *amqp.Connection
	channel    channel
	exchange   string
	routingKey string
	logger     *zap.Logger
	now        func() time.Time
}

// NewAMQPPublisher dials the broker and declares the exchange
func NewAMQPPublisher(url, exchange, routingKey string, logger *zap.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Info("Connected to event broker",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey))

	p := newPublisher(ch, exchange, routingKey, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange, routingKey string, logger *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger.Named("events"),
		now:        time.Now,
	}
}

// PublishReconciliation sends the event as a persistent JSON message
func (p *AMQPPublisher) PublishReconciliation(ctx context.Context, event domain.ReconciliationEvent) error {
	msg, err := encodeEvent(event, p.now())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPublishFailure, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,   // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPublishFailure, err)
	}

	p.logger.Debug("Published reconciliation event",
		zap.Int64("list_id", event.ListID),
		zap.Int64s("receipt_ids", event.ReceiptIDs))

	return nil
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func encodeEvent(event domain.ReconciliationEvent, now time.Time) (amqp.Publishing, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = now.UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Type:         DefaultRoutingKey,
		Body:         body,
	}, nil
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

// PublishReconciliation implements domain.EventPublisher
func (NopPublisher) PublishReconciliation(context.Context, domain.ReconciliationEvent) error {
	return nil
}
