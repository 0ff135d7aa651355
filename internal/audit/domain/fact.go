package domain

import (
	"context"
	"time"
)

type Action string

const (
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionItemAdd        Action = "item_add"
	ActionItemModify     Action = "item_modify"
	ActionItemRemove     Action = "item_remove"
	ActionOrderSend      Action = "order_send"
	ActionOrderModify    Action = "order_modify"
	ActionOrderVoid      Action = "order_void"
	ActionTableAssign    Action = "table_assign"
	ActionPaymentProcess Action = "payment_process"
	ActionPaymentRefund  Action = "payment_refund"
)

const (
	EntityOrder     = "order"
	EntityOrderItem = "order_item"
	EntityPayment   = "payment"
)

// Fact is one audit record. Producers never read it back.
type Fact struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     Action         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Metadata   map[string]any `json:"metadata"`
	Timestamp  time.Time      `json:"timestamp"`
}

// SystemActor is recorded when no actor was attached to the request context.
const SystemActor = "system"

type actorKey struct{}

func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return SystemActor
}
