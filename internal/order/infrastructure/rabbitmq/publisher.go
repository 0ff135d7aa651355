package rabbitmq

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
)

// Channel is the slice of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type TicketPublisher struct {
	log *slog.Logger
	ch  Channel
}

func NewTicketPublisher(log *slog.Logger, ch Channel) *TicketPublisher {
	return &TicketPublisher{log: log, ch: ch}
}

// RoutingKey lets the kitchen bind per order type, e.g. kitchen.delivery.
func RoutingKey(t domain.OrderType) string {
	return "kitchen." + string(t)
}

func (p *TicketPublisher) PublishTicket(ctx context.Context, t domain.KitchenTicket) error {
	body, err := json.Marshal(t)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, TicketExchange, RoutingKey(t.Type), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    t.OrderID,
		Timestamp:    t.SentAt,
		Body:         body,
	})
	if err != nil {
		return err
	}
	p.log.Debug("kitchen ticket published", "order_id", t.OrderID, "order_number", t.OrderNumber, "lines", len(t.Lines))
	return nil
}
