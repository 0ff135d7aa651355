package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TicketExchange     = "orders_topic"
	DefaultStatusQueue = "kitchen_status"
	statusRoutingKey   = "kitchen.status"
)

// Broker owns one AMQP connection and channel with the kitchen topology
// declared on it.
type Broker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url, statusQueue string, prefetch int) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	b := &Broker{conn: conn, ch: ch}
	if err := b.declare(statusQueue, prefetch); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Broker) declare(statusQueue string, prefetch int) error {
	if err := b.ch.ExchangeDeclare(TicketExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := b.ch.QueueDeclare(statusQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := b.ch.QueueBind(statusQueue, statusRoutingKey, TicketExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return b.ch.Qos(prefetch, 0, false)
}

func (b *Broker) Channel() *amqp.Channel { return b.ch }

func (b *Broker) Close() error {
	if b.ch != nil && !b.ch.IsClosed() {
		if err := b.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if b.conn != nil && !b.conn.IsClosed() {
		if err := b.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
