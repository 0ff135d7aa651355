package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	auditdomain "github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// KitchenActor is recorded as the actor of status changes the kitchen reports.
const KitchenActor = "kitchen"

type StatusUpdater interface {
	UpdateKitchenStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
}

type StatusConsumer struct {
	log     *slog.Logger
	ch      *amqp.Channel
	queue   string
	updater StatusUpdater
}

func NewStatusConsumer(log *slog.Logger, ch *amqp.Channel, queue string, updater StatusUpdater) *StatusConsumer {
	return &StatusConsumer{log: log, ch: ch, queue: queue, updater: updater}
}

func (c *StatusConsumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "pos-service", false, false, false, false, nil)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("kitchen status channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle acks updates that succeeded or can never succeed, and requeues the rest.
func (c *StatusConsumer) handle(ctx context.Context, d amqp.Delivery) {
	var upd domain.KitchenStatusUpdate
	if err := json.Unmarshal(d.Body, &upd); err != nil {
		c.log.Error("bad kitchen status message", "err", err)
		_ = d.Reject(false)
		return
	}

	ctx = auditdomain.WithActor(ctx, KitchenActor)
	_, err := c.updater.UpdateKitchenStatus(ctx, upd.OrderID, upd.Status)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrInvalidState):
		c.log.Warn("kitchen status dropped", "order_id", upd.OrderID, "status", upd.Status, "err", err)
		_ = d.Ack(false)
	default:
		c.log.Error("kitchen status failed", "order_id", upd.OrderID, "err", err)
		_ = d.Nack(false, true)
	}
}
