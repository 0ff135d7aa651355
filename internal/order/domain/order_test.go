package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

var t0 = time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestOrder() Order {
	return NewOrder("o-1", 1001, TypeDineIn, "T12", dec("0.0825"), t0)
}

func item(id, price string, qty int) OrderItem {
	return OrderItem{ID: id, MenuItemID: "m-" + id, Name: "Item " + id, Price: dec(price), Quantity: qty}
}

func assertTotals(t *testing.T, o Order) {
	t.Helper()
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if !o.Subtotal.Equal(sum) {
		t.Fatalf("subtotal %s, want %s", o.Subtotal, sum)
	}
	if tax := sum.Mul(o.TaxRate); !o.Tax.Equal(tax) {
		t.Fatalf("tax %s, want %s", o.Tax, tax)
	}
	if total := o.Subtotal.Add(o.Tax).Add(o.Tip).Sub(o.Discount); !o.Total.Equal(total) {
		t.Fatalf("total %s, want %s", o.Total, total)
	}
}

func TestTotals_Scenario(t *testing.T) {
	o := newTestOrder()
	if err := o.AddItem(item("a", "10.00", 2), t0); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := o.AddItem(item("b", "5.00", 1), t0); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if !o.Subtotal.Equal(dec("25")) || !o.Tax.Equal(dec("2.0625")) || !o.Total.Equal(dec("27.0625")) {
		t.Fatalf("unexpected totals: %s %s %s", o.Subtotal, o.Tax, o.Total)
	}
	if !o.Tip.IsZero() || !o.Discount.IsZero() {
		t.Fatalf("tip/discount should be zero")
	}
	if got := o.Ticket().Total; got != "27.06" {
		t.Fatalf("display total %s", got)
	}
	if got := o.Ticket().Tax; got != "2.06" {
		t.Fatalf("display tax %s", got)
	}
}

func TestTotals_InvariantAcrossMutations(t *testing.T) {
	o := newTestOrder()
	steps := []func() error{
		func() error { return o.AddItem(item("a", "3.33", 3), t0) },
		func() error { return o.AddItem(item("b", "0.01", 7), t0) },
		func() error { _, err := o.ChangeQuantity("a", 2, t0); return err },
		func() error { return o.ApplyTipAndDiscount(dec("1.10"), dec("0.45"), t0) },
		func() error { _, err := o.ChangeQuantity("b", -3, t0); return err },
		func() error { _, err := o.RemoveItem("a", t0); return err },
		func() error { return o.AddItem(item("c", "12.345", 1), t0) },
		func() error { return o.ResetTaxRate(dec("0.1"), t0) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertTotals(t, o)
	}
}

func TestChangeQuantity_ToZeroRemoves(t *testing.T) {
	o := newTestOrder()
	_ = o.AddItem(item("a", "10.00", 2), t0)
	_ = o.AddItem(item("b", "5.00", 1), t0)

	removed, err := o.ChangeQuantity("a", -5, t0)
	if err != nil {
		t.Fatalf("change: %v", err)
	}
	if !removed {
		t.Fatalf("expected removal")
	}
	if _, ok := o.Item("a"); ok {
		t.Fatalf("item a still present")
	}
	if !o.Total.Equal(dec("5.4125")) {
		t.Fatalf("total %s", o.Total)
	}
	assertTotals(t, o)
}

func TestChangeQuantity_NotFound(t *testing.T) {
	o := newTestOrder()
	if _, err := o.ChangeQuantity("nope", 1, t0); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestChangeQuantity_LockedOnceSent(t *testing.T) {
	o := newTestOrder()
	_ = o.AddItem(item("a", "10.00", 2), t0)
	_, _ = o.SendToKitchen(t0)
	before := o.Clone()

	if _, err := o.ChangeQuantity("a", 1, t0); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := o.SetItemNotes("a", "no onions", t0); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state for notes, got %v", err)
	}
	if !reflect.DeepEqual(before, o) {
		t.Fatalf("order mutated on failed edit")
	}
	if _, err := o.RemoveItem("a", t0); err != nil {
		t.Fatalf("removing a sent item should be allowed: %v", err)
	}
}

func TestAddItem_Validation(t *testing.T) {
	o := newTestOrder()
	if err := o.AddItem(item("a", "1.00", 0), t0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := o.AddItem(item("a", "-1.00", 1), t0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
	if len(o.Items) != 0 {
		t.Fatalf("item appended despite error")
	}
}

func TestSendToKitchen(t *testing.T) {
	o := newTestOrder()
	_ = o.AddItem(item("a", "10.00", 2), t0)
	_ = o.AddItem(item("b", "5.00", 1), t0)

	sentAt := t0.Add(time.Minute)
	n, err := o.SendToKitchen(sentAt)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 sent, got %d", n)
	}
	if o.Status != StatusSent {
		t.Fatalf("status %s", o.Status)
	}
	for _, it := range o.Items {
		if it.Status != ItemSent || it.SentAt == nil || !it.SentAt.Equal(sentAt) {
			t.Fatalf("item not sent: %+v", it)
		}
	}

	ticket := NewKitchenTicket(o, sentAt)
	if len(ticket.Lines) != 2 || ticket.TableID != "T12" {
		t.Fatalf("ticket %+v", ticket)
	}

	n, err = o.SendToKitchen(t0.Add(2 * time.Minute))
	if err != nil || n != 0 {
		t.Fatalf("second send should be a no-op, got %d %v", n, err)
	}
}

func TestSendToKitchen_EmptyLeavesOpen(t *testing.T) {
	o := newTestOrder()
	n, err := o.SendToKitchen(t0)
	if err != nil || n != 0 {
		t.Fatalf("got %d %v", n, err)
	}
	if o.Status != StatusOpen {
		t.Fatalf("status %s", o.Status)
	}
}

func TestApplyTipAndDiscount_Negative(t *testing.T) {
	o := newTestOrder()
	if err := o.ApplyTipAndDiscount(dec("-1"), decimal.Zero, t0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := o.ApplyTipAndDiscount(decimal.Zero, dec("-0.01"), t0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompletePayment_Twice(t *testing.T) {
	o := newTestOrder()
	_ = o.AddItem(item("a", "10.00", 1), t0)
	if err := o.CompletePayment(dec("2"), t0); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if o.Status != StatusPaid || o.PaidAt == nil {
		t.Fatalf("not paid: %+v", o)
	}
	if !o.Total.Equal(dec("12.825")) {
		t.Fatalf("total %s", o.Total)
	}
	if err := o.CompletePayment(dec("2"), t0); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestTerminalStatesRejectMutation(t *testing.T) {
	for _, terminal := range []OrderStatus{StatusPaid, StatusVoided} {
		o := newTestOrder()
		_ = o.AddItem(item("a", "10.00", 1), t0)
		if terminal == StatusPaid {
			_ = o.CompletePayment(decimal.Zero, t0)
		} else {
			_, _ = o.Void("guest left", t0)
		}
		before := o.Clone()

		errs := []error{
			o.AddItem(item("b", "1.00", 1), t0),
			func() error { _, err := o.RemoveItem("a", t0); return err }(),
			func() error { _, err := o.ChangeQuantity("a", 1, t0); return err }(),
			o.ApplyTipAndDiscount(dec("1"), decimal.Zero, t0),
			o.CompletePayment(dec("1"), t0),
			func() error { _, err := o.SendToKitchen(t0); return err }(),
			o.SetKitchenStatus(StatusReady, t0),
		}
		for i, err := range errs {
			if !errors.Is(err, apperr.ErrInvalidState) {
				t.Fatalf("%s: call %d expected invalid state, got %v", terminal, i, err)
			}
		}
		if !reflect.DeepEqual(before, o) {
			t.Fatalf("%s: order changed", terminal)
		}
	}
}

func TestVoid(t *testing.T) {
	o := newTestOrder()
	_ = o.AddItem(item("a", "10.00", 1), t0)
	_, _ = o.SendToKitchen(t0)

	if _, err := o.Void("", t0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := o.Void("   ", t0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for blank reason, got %v", err)
	}
	wasPaid, err := o.Void("guest left", t0)
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if wasPaid || o.Status != StatusVoided || o.VoidReason != "guest left" {
		t.Fatalf("unexpected void result: %v %+v", wasPaid, o)
	}
	if len(o.Items) != 1 {
		t.Fatalf("items should be kept")
	}
	if _, err := o.Void("again", t0); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state on second void, got %v", err)
	}
}

func TestVoid_AfterPayment(t *testing.T) {
	o := newTestOrder()
	_ = o.AddItem(item("a", "10.00", 1), t0)
	_ = o.CompletePayment(decimal.Zero, t0)
	wasPaid, err := o.Void("charged wrong table", t0)
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if !wasPaid || o.Status != StatusVoided {
		t.Fatalf("expected voided after payment")
	}
}

func TestSetKitchenStatus(t *testing.T) {
	o := newTestOrder()
	_ = o.AddItem(item("a", "10.00", 1), t0)
	if err := o.SetKitchenStatus(StatusPreparing, t0); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("open order: expected invalid state, got %v", err)
	}
	_, _ = o.SendToKitchen(t0)
	_ = o.AddItem(item("b", "1.00", 1), t0)

	if err := o.SetKitchenStatus(StatusReady, t0); err != nil {
		t.Fatalf("ready: %v", err)
	}
	a, _ := o.Item("a")
	b, _ := o.Item("b")
	if o.Status != StatusReady || a.Status != ItemReady || b.Status != ItemPending {
		t.Fatalf("unexpected statuses: %s %s %s", o.Status, a.Status, b.Status)
	}
	if err := o.SetKitchenStatus(StatusPaid, t0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	before := o.Clone()
	if err := o.SetKitchenStatus(StatusPreparing, t0); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("ready to preparing: expected invalid state, got %v", err)
	}
	if !reflect.DeepEqual(before, o) {
		t.Fatalf("rejected regression changed the order")
	}
}

func TestClone_NoAliasing(t *testing.T) {
	o := newTestOrder()
	_ = o.AddItem(item("a", "10.00", 1), t0)
	_, _ = o.SendToKitchen(t0)
	cp := o.Clone()
	cp.Items[0].Quantity = 9
	*cp.Items[0].SentAt = t0.Add(time.Hour)
	if o.Items[0].Quantity != 1 || !o.Items[0].SentAt.Equal(t0) {
		t.Fatalf("clone aliased original")
	}
}
