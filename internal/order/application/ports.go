package application

import (
	"context"

	auditdomain "github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	menudomain "github.com/dmehra2102/restaurant-pos/internal/menu/domain"
	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
)

// MutateFunc edits an order in place. Returning an error discards the edit.
type MutateFunc func(o *domain.Order) error

// OrderStore persists orders. Update must run load, fn and save as one unit
// per order so concurrent edits never interleave.
type OrderStore interface {
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, f ListFilter) ([]domain.Order, error)
	Update(ctx context.Context, id string, fn MutateFunc) (domain.Order, error)
}

type ListFilter struct {
	ActiveOnly bool
	TableID    string
	Limit      int
}

// Sequence hands out order numbers. Next must be atomic across callers.
type Sequence interface {
	Next(ctx context.Context) (int64, error)
}

type MenuCatalog interface {
	Lookup(ctx context.Context, menuItemID string) (menudomain.Item, error)
}

type AuditSink interface {
	Record(ctx context.Context, f auditdomain.Fact) error
}

// TicketPublisher forwards fired items to the kitchen.
type TicketPublisher interface {
	PublishTicket(ctx context.Context, t domain.KitchenTicket) error
}
