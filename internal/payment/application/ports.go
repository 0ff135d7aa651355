package application

import (
	"context"

	"github.com/shopspring/decimal"

	auditdomain "github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	orderdomain "github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/internal/payment/domain"
)

type Repository interface {
	Create(ctx context.Context, p domain.Payment) error
	Get(ctx context.Context, id string) (domain.Payment, error)
	Update(ctx context.Context, p domain.Payment) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error)
}

// Orders is the part of the order ledger a payment touches.
type Orders interface {
	Get(ctx context.Context, id string) (orderdomain.Order, error)
	CompletePayment(ctx context.Context, orderID string, finalTip decimal.Decimal) (orderdomain.Order, error)
}

// Authorizer decides card and gift card attempts. Cash is never sent to it.
type Authorizer interface {
	Authorize(ctx context.Context, p domain.Payment) (approved bool, reference string, err error)
}

type AuditSink interface {
	Record(ctx context.Context, f auditdomain.Fact) error
}
