// Package mq publishes ride events to RabbitMQ for the Telegram bot.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"dispatch/internal/domain"
)

const (
	heartbeat      = 10 * time.Second
	publishRetries = 3
	retryBackoff   = 500 * time.Millisecond
)

// ErrClosed is returned when publishing on a closed publisher.
var ErrClosed = errors.New("publisher closed")

// Publisher publishes ride notifications on a topic exchange, one routing
// key per notification type.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	url      string
	exchange string
	closed   bool

	log *zap.Logger
}

// NewPublisher connects to RabbitMQ and declares the exchange.
func NewPublisher(ctx context.Context, url, exchange string, log *zap.Logger) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange, log: log}
	if err := p.connect(); err != nil {
		return nil, err
	}
	log.Info("connected to rabbitmq", zap.String("exchange", exchange))
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{Heartbeat: heartbeat})
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	p.conn = conn
	p.channel = ch
	return nil
}

// ensureConnection reconnects when the connection or channel has dropped.
// Callers hold p.mu.
func (p *Publisher) ensureConnection() error {
	if p.closed {
		return ErrClosed
	}
	if p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed() {
		return nil
	}
	p.log.Warn("rabbitmq connection closed, reconnecting")
	return p.connect()
}

// Notify publishes the notification with its type as routing key.
func (p *Publisher) Notify(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(newEvent(n))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 1; ; attempt++ {
		err = p.publish(ctx, n, body)
		if err == nil || errors.Is(err, ErrClosed) || attempt == publishRetries {
			return err
		}
		p.log.Debug("publish failed, retrying", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
}

func (p *Publisher) publish(ctx context.Context, n domain.Notification, body []byte) error {
	if err := p.ensureConnection(); err != nil {
		return err
	}
	return p.channel.PublishWithContext(
		ctx,
		p.exchange,     // exchange
		string(n.Type), // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    n.ID,
			Timestamp:    n.CreatedAt,
			Type:         string(n.Type),
			Body:         body,
		},
	)
}

// Name identifies the notifier in logs.
func (p *Publisher) Name() string { return "rabbitmq" }

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}
