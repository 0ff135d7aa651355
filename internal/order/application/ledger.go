package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	auditdomain "github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// Ledger owns the order lifecycle: item edits, totals and status transitions.
// It performs no permission checks; callers consult the gate first.
type Ledger struct {
	log     *slog.Logger
	store   OrderStore
	catalog MenuCatalog
	seq     Sequence
	audit   AuditSink
	tickets TicketPublisher
	taxRate decimal.Decimal

	now   func() time.Time
	newID func() string
}

func NewLedger(log *slog.Logger, store OrderStore, catalog MenuCatalog, seq Sequence, audit AuditSink, taxRate decimal.Decimal) *Ledger {
	return &Ledger{
		log:     log,
		store:   store,
		catalog: catalog,
		seq:     seq,
		audit:   audit,
		taxRate: taxRate,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// WithTicketPublisher makes SendToKitchen forward tickets to the kitchen.
func (l *Ledger) WithTicketPublisher(p TicketPublisher) *Ledger {
	l.tickets = p
	return l
}

// TaxRate is the rate snapshotted into newly created orders.
func (l *Ledger) TaxRate() decimal.Decimal { return l.taxRate }

func (l *Ledger) Create(ctx context.Context, typ domain.OrderType, tableID string) (domain.Order, error) {
	if !typ.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown order type %q", apperr.ErrValidation, typ)
	}
	if typ == domain.TypeDineIn && tableID == "" {
		return domain.Order{}, fmt.Errorf("%w: dine-in orders need a table", apperr.ErrValidation)
	}
	if typ != domain.TypeDineIn && tableID != "" {
		return domain.Order{}, fmt.Errorf("%w: only dine-in orders take a table", apperr.ErrValidation)
	}

	number, err := l.seq.Next(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("allocate order number: %w", err)
	}
	o := domain.NewOrder(l.newID(), number, typ, tableID, l.taxRate, l.now())
	if err := l.store.Create(ctx, o); err != nil {
		return domain.Order{}, err
	}

	l.record(ctx, auditdomain.ActionCreate, auditdomain.EntityOrder, o.ID, map[string]any{
		"order_number": o.OrderNumber,
		"type":         o.Type,
		"table_id":     o.TableID,
	})
	return o, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (domain.Order, error) {
	return l.store.Get(ctx, id)
}

func (l *Ledger) List(ctx context.Context, f ListFilter) ([]domain.Order, error) {
	return l.store.List(ctx, f)
}

// AssignTable moves a dine-in order to another table.
func (l *Ledger) AssignTable(ctx context.Context, orderID, tableID string) (domain.Order, error) {
	if tableID == "" {
		return domain.Order{}, fmt.Errorf("%w: table id is required", apperr.ErrValidation)
	}
	o, err := l.store.Update(ctx, orderID, func(o *domain.Order) error {
		if o.Status.Terminal() {
			return fmt.Errorf("%w: order %d is %s", apperr.ErrInvalidState, o.OrderNumber, o.Status)
		}
		if o.Type != domain.TypeDineIn {
			return fmt.Errorf("%w: only dine-in orders take a table", apperr.ErrValidation)
		}
		o.TableID = tableID
		o.UpdatedAt = l.now()
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	l.record(ctx, auditdomain.ActionTableAssign, auditdomain.EntityOrder, o.ID, map[string]any{"table_id": tableID})
	return o, nil
}

func (l *Ledger) AddItem(ctx context.Context, orderID, menuItemID string, quantity int, notes string) (domain.OrderItem, error) {
	if quantity <= 0 {
		return domain.OrderItem{}, fmt.Errorf("%w: quantity must be positive, got %d", apperr.ErrValidation, quantity)
	}
	mi, err := l.catalog.Lookup(ctx, menuItemID)
	if err != nil {
		return domain.OrderItem{}, err
	}
	if !mi.IsAvailable {
		return domain.OrderItem{}, fmt.Errorf("%w: menu item %s is unavailable", apperr.ErrNotFound, menuItemID)
	}

	it := domain.OrderItem{
		ID:          l.newID(),
		MenuItemID:  mi.ID,
		Name:        mi.Name,
		NameChinese: mi.NameChinese,
		Price:       mi.Price,
		Quantity:    quantity,
		Notes:       notes,
	}
	o, err := l.store.Update(ctx, orderID, func(o *domain.Order) error {
		return o.AddItem(it, l.now())
	})
	if err != nil {
		return domain.OrderItem{}, err
	}
	added, _ := o.Item(it.ID)

	l.record(ctx, auditdomain.ActionItemAdd, auditdomain.EntityOrderItem, added.ID, map[string]any{
		"order_id":     o.ID,
		"menu_item_id": mi.ID,
		"name":         mi.Name,
		"quantity":     quantity,
		"price":        mi.Price.String(),
	})
	return added, nil
}

func (l *Ledger) UpdateItemQuantity(ctx context.Context, orderID, itemID string, delta int) (domain.Order, error) {
	return l.EditItem(ctx, orderID, itemID, ItemEdit{Delta: &delta})
}

func (l *Ledger) UpdateItemNotes(ctx context.Context, orderID, itemID, notes string) (domain.Order, error) {
	return l.EditItem(ctx, orderID, itemID, ItemEdit{Notes: &notes})
}

// ItemEdit changes the notes, the quantity or both. Nil fields are left alone.
type ItemEdit struct {
	Delta *int
	Notes *string
}

// EditItem applies e in one store update, so either every change lands or
// none does. A delta that takes the quantity to zero removes the item.
func (l *Ledger) EditItem(ctx context.Context, orderID, itemID string, e ItemEdit) (domain.Order, error) {
	if e.Delta == nil && e.Notes == nil {
		return domain.Order{}, fmt.Errorf("%w: nothing to change on item %s", apperr.ErrValidation, itemID)
	}
	var removed bool
	var before domain.OrderItem
	o, err := l.store.Update(ctx, orderID, func(o *domain.Order) error {
		before, _ = o.Item(itemID)
		now := l.now()
		if e.Notes != nil {
			if err := o.SetItemNotes(itemID, *e.Notes, now); err != nil {
				return err
			}
		}
		if e.Delta != nil {
			var err error
			if removed, err = o.ChangeQuantity(itemID, *e.Delta, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if removed {
		l.record(ctx, auditdomain.ActionItemRemove, auditdomain.EntityOrderItem, itemID, map[string]any{
			"order_id": o.ID,
			"name":     before.Name,
			"quantity": before.Quantity,
		})
		return o, nil
	}
	meta := map[string]any{"order_id": o.ID}
	if e.Delta != nil {
		after, _ := o.Item(itemID)
		meta["delta"] = *e.Delta
		meta["old_quantity"] = before.Quantity
		meta["new_quantity"] = after.Quantity
	}
	if e.Notes != nil {
		meta["notes"] = *e.Notes
	}
	l.record(ctx, auditdomain.ActionItemModify, auditdomain.EntityOrderItem, itemID, meta)
	return o, nil
}

func (l *Ledger) RemoveItem(ctx context.Context, orderID, itemID string) (domain.Order, error) {
	var removed domain.OrderItem
	o, err := l.store.Update(ctx, orderID, func(o *domain.Order) error {
		var err error
		removed, err = o.RemoveItem(itemID, l.now())
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	l.record(ctx, auditdomain.ActionItemRemove, auditdomain.EntityOrderItem, itemID, map[string]any{
		"order_id":    o.ID,
		"name":        removed.Name,
		"quantity":    removed.Quantity,
		"item_status": removed.Status,
	})
	return o, nil
}

// SendToKitchen fires pending items and returns how many were sent.
func (l *Ledger) SendToKitchen(ctx context.Context, orderID string) (int, error) {
	var sent int
	sentAt := l.now()
	o, err := l.store.Update(ctx, orderID, func(o *domain.Order) error {
		var err error
		sent, err = o.SendToKitchen(sentAt)
		return err
	})
	if err != nil {
		return 0, err
	}
	if sent == 0 {
		return 0, nil
	}

	l.record(ctx, auditdomain.ActionOrderSend, auditdomain.EntityOrder, o.ID, map[string]any{
		"item_count": sent,
	})
	if l.tickets != nil {
		if err := l.tickets.PublishTicket(ctx, domain.NewKitchenTicket(o, sentAt)); err != nil {
			l.log.Error("kitchen ticket publish failed", "order_id", o.ID, "err", err)
		}
	}
	return sent, nil
}

func (l *Ledger) ApplyTipAndDiscount(ctx context.Context, orderID string, tip, discount decimal.Decimal) (domain.Order, error) {
	o, err := l.store.Update(ctx, orderID, func(o *domain.Order) error {
		return o.ApplyTipAndDiscount(tip, discount, l.now())
	})
	if err != nil {
		return domain.Order{}, err
	}
	l.record(ctx, auditdomain.ActionOrderModify, auditdomain.EntityOrder, o.ID, map[string]any{
		"tip":      tip.String(),
		"discount": discount.String(),
		"total":    o.Total.String(),
	})
	return o, nil
}

// CompletePayment is called by the payment recorder once an attempt is approved.
func (l *Ledger) CompletePayment(ctx context.Context, orderID string, finalTip decimal.Decimal) (domain.Order, error) {
	o, err := l.store.Update(ctx, orderID, func(o *domain.Order) error {
		return o.CompletePayment(finalTip, l.now())
	})
	if err != nil {
		return domain.Order{}, err
	}
	l.record(ctx, auditdomain.ActionUpdate, auditdomain.EntityOrder, o.ID, map[string]any{
		"status": o.Status,
		"tip":    finalTip.String(),
		"total":  o.Total.String(),
	})
	return o, nil
}

func (l *Ledger) Void(ctx context.Context, orderID, reason string) (domain.Order, error) {
	var prior domain.OrderStatus
	var wasPaid bool
	o, err := l.store.Update(ctx, orderID, func(o *domain.Order) error {
		prior = o.Status
		var err error
		wasPaid, err = o.Void(reason, l.now())
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}

	meta := map[string]any{
		"reason":       o.VoidReason,
		"total":        o.Total.String(),
		"prior_status": prior,
	}
	if wasPaid {
		meta["voided_after_payment"] = true
		meta["refund_required"] = true
		l.log.Warn("paid order voided, refund required", "order_id", o.ID, "order_number", o.OrderNumber)
	}
	l.record(ctx, auditdomain.ActionOrderVoid, auditdomain.EntityOrder, o.ID, meta)
	return o, nil
}

// UpdateKitchenStatus stores progress reported by the kitchen.
func (l *Ledger) UpdateKitchenStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	o, err := l.store.Update(ctx, orderID, func(o *domain.Order) error {
		return o.SetKitchenStatus(status, l.now())
	})
	if err != nil {
		return domain.Order{}, err
	}
	l.record(ctx, auditdomain.ActionUpdate, auditdomain.EntityOrder, o.ID, map[string]any{"status": status})
	return o, nil
}

func (l *Ledger) ResetTaxRate(ctx context.Context, orderID string, rate decimal.Decimal) (domain.Order, error) {
	o, err := l.store.Update(ctx, orderID, func(o *domain.Order) error {
		return o.ResetTaxRate(rate, l.now())
	})
	if err != nil {
		return domain.Order{}, err
	}
	l.record(ctx, auditdomain.ActionOrderModify, auditdomain.EntityOrder, o.ID, map[string]any{
		"tax_rate": rate.String(),
		"total":    o.Total.String(),
	})
	return o, nil
}

// record hands a fact to the sink. A failing sink never undoes the mutation.
func (l *Ledger) record(ctx context.Context, action auditdomain.Action, entityType, entityID string, meta map[string]any) {
	if l.audit == nil {
		return
	}
	f := auditdomain.Fact{
		ID:         l.newID(),
		ActorID:    auditdomain.ActorFrom(ctx),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   meta,
		Timestamp:  l.now(),
	}
	if err := l.audit.Record(ctx, f); err != nil {
		l.log.Warn("audit record failed", "action", action, "entity_id", entityID, "err", err)
	}
}
