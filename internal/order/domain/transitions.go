package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// Every mutation below validates first and only then writes, so a returned
// error always leaves the order exactly as it was.

func (o *Order) requireMutable() error {
	if o.Status.Terminal() {
		return fmt.Errorf("%w: order %d is %s", apperr.ErrInvalidState, o.OrderNumber, o.Status)
	}
	return nil
}

func (o *Order) touch(now time.Time) {
	o.UpdatedAt = now
	o.recompute()
}

func (o *Order) AddItem(it OrderItem, now time.Time) error {
	if err := o.requireMutable(); err != nil {
		return err
	}
	if it.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", apperr.ErrValidation, it.Quantity)
	}
	if it.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", apperr.ErrValidation)
	}
	it.Status = ItemPending
	it.SentAt = nil
	o.Items = append(o.Items, it)
	o.touch(now)
	return nil
}

// ChangeQuantity adds delta to an item's quantity. Reaching zero removes the
// item. Items already sent to the kitchen are locked.
func (o *Order) ChangeQuantity(itemID string, delta int, now time.Time) (removed bool, err error) {
	if err := o.requireMutable(); err != nil {
		return false, err
	}
	i := o.itemIndex(itemID)
	if i < 0 {
		return false, fmt.Errorf("%w: item %s on order %d", apperr.ErrNotFound, itemID, o.OrderNumber)
	}
	if err := o.requirePending(i); err != nil {
		return false, err
	}
	qty := max(0, o.Items[i].Quantity+delta)
	if qty == 0 {
		o.Items = append(o.Items[:i:i], o.Items[i+1:]...)
		o.touch(now)
		return true, nil
	}
	o.Items[i].Quantity = qty
	o.touch(now)
	return false, nil
}

func (o *Order) SetItemNotes(itemID, notes string, now time.Time) error {
	if err := o.requireMutable(); err != nil {
		return err
	}
	i := o.itemIndex(itemID)
	if i < 0 {
		return fmt.Errorf("%w: item %s on order %d", apperr.ErrNotFound, itemID, o.OrderNumber)
	}
	if err := o.requirePending(i); err != nil {
		return err
	}
	o.Items[i].Notes = notes
	o.touch(now)
	return nil
}

func (o *Order) requirePending(i int) error {
	if st := o.Items[i].Status; st != ItemPending {
		return fmt.Errorf("%w: item %s is already %s", apperr.ErrInvalidState, o.Items[i].ID, st)
	}
	return nil
}

func (o *Order) RemoveItem(itemID string, now time.Time) (OrderItem, error) {
	if err := o.requireMutable(); err != nil {
		return OrderItem{}, err
	}
	i := o.itemIndex(itemID)
	if i < 0 {
		return OrderItem{}, fmt.Errorf("%w: item %s on order %d", apperr.ErrNotFound, itemID, o.OrderNumber)
	}
	removed := o.Items[i]
	o.Items = append(o.Items[:i:i], o.Items[i+1:]...)
	o.touch(now)
	return removed, nil
}

// SendToKitchen fires every pending item and reports how many went out.
func (o *Order) SendToKitchen(now time.Time) (int, error) {
	if err := o.requireMutable(); err != nil {
		return 0, err
	}
	sent := 0
	for i := range o.Items {
		if o.Items[i].Status != ItemPending {
			continue
		}
		t := now
		o.Items[i].Status = ItemSent
		o.Items[i].SentAt = &t
		sent++
	}
	if sent == 0 {
		return 0, nil
	}
	if o.Status == StatusOpen {
		o.Status = StatusSent
	}
	o.touch(now)
	return sent, nil
}

func (o *Order) ApplyTipAndDiscount(tip, discount decimal.Decimal, now time.Time) error {
	if err := o.requireMutable(); err != nil {
		return err
	}
	if tip.IsNegative() || discount.IsNegative() {
		return fmt.Errorf("%w: tip and discount must not be negative", apperr.ErrValidation)
	}
	o.Tip = tip
	o.Discount = discount
	o.touch(now)
	return nil
}

func (o *Order) CompletePayment(finalTip decimal.Decimal, now time.Time) error {
	if err := o.requireMutable(); err != nil {
		return err
	}
	if finalTip.IsNegative() {
		return fmt.Errorf("%w: tip must not be negative", apperr.ErrValidation)
	}
	o.Tip = finalTip
	o.Status = StatusPaid
	t := now
	o.PaidAt = &t
	o.touch(now)
	return nil
}

// Void cancels the order and keeps its items for the record. A paid order can
// still be voided; wasPaid tells the caller a refund is owed.
func (o *Order) Void(reason string, now time.Time) (wasPaid bool, err error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return false, fmt.Errorf("%w: void reason is required", apperr.ErrValidation)
	}
	if o.Status == StatusVoided {
		return false, fmt.Errorf("%w: order %d is already voided", apperr.ErrInvalidState, o.OrderNumber)
	}
	wasPaid = o.Status == StatusPaid
	o.Status = StatusVoided
	o.VoidReason = reason
	o.touch(now)
	return wasPaid, nil
}

// SetKitchenStatus stores progress reported by the kitchen. Items already
// fired move forward with the order; pending items are left alone. The order
// never moves back; repeating the current status advances newly fired items.
func (o *Order) SetKitchenStatus(status OrderStatus, now time.Time) error {
	if err := o.requireMutable(); err != nil {
		return err
	}
	var target ItemStatus
	switch status {
	case StatusPreparing:
		target = ItemPreparing
	case StatusReady:
		target = ItemReady
	case StatusServed:
		target = ItemServed
	default:
		return fmt.Errorf("%w: kitchen cannot set status %q", apperr.ErrValidation, status)
	}
	if o.Status == StatusOpen {
		return fmt.Errorf("%w: order %d has not been sent to the kitchen", apperr.ErrInvalidState, o.OrderNumber)
	}
	if kitchenRank[status] < kitchenRank[o.Status] {
		return fmt.Errorf("%w: order %d cannot go back from %s to %s", apperr.ErrInvalidState, o.OrderNumber, o.Status, status)
	}
	for i := range o.Items {
		r := itemRank[o.Items[i].Status]
		if r >= itemRank[ItemSent] && r < itemRank[target] {
			o.Items[i].Status = target
		}
	}
	o.Status = status
	o.touch(now)
	return nil
}

// ResetTaxRate replaces the rate snapshotted at creation.
func (o *Order) ResetTaxRate(rate decimal.Decimal, now time.Time) error {
	if err := o.requireMutable(); err != nil {
		return err
	}
	if rate.IsNegative() {
		return fmt.Errorf("%w: tax rate must not be negative", apperr.ErrValidation)
	}
	o.TaxRate = rate
	o.touch(now)
	return nil
}
