package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	TypeDineIn   OrderType = "dine-in"
	TypeTakeout  OrderType = "takeout"
	TypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case TypeDineIn, TypeTakeout, TypeDelivery:
		return true
	}
	return false
}

type OrderStatus string

const (
	StatusOpen      OrderStatus = "open"
	StatusSent      OrderStatus = "sent"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusPaid      OrderStatus = "paid"
	StatusVoided    OrderStatus = "voided"
)

// Terminal reports whether the order accepts no further mutation.
func (s OrderStatus) Terminal() bool {
	return s == StatusPaid || s == StatusVoided
}

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemSent      ItemStatus = "sent"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
)

// kitchen progress, in the order the kitchen reports it
var itemRank = map[ItemStatus]int{
	ItemPending:   0,
	ItemSent:      1,
	ItemPreparing: 2,
	ItemReady:     3,
	ItemServed:    4,
}

// kitchenRank orders the statuses the kitchen moves an order through.
var kitchenRank = map[OrderStatus]int{
	StatusSent:      1,
	StatusPreparing: 2,
	StatusReady:     3,
	StatusServed:    4,
}

type Order struct {
	ID          string          `json:"id"`
	OrderNumber int64           `json:"order_number"`
	Type        OrderType       `json:"type"`
	Status      OrderStatus     `json:"status"`
	TableID     string          `json:"table_id,omitempty"`
	Items       []OrderItem     `json:"items"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Tip         decimal.Decimal `json:"tip"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	VoidReason  string          `json:"void_reason,omitempty"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
}

type OrderItem struct {
	ID          string          `json:"id"`
	MenuItemID  string          `json:"menu_item_id"`
	Name        string          `json:"name"`
	NameChinese string          `json:"name_chinese,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Status      ItemStatus      `json:"status"`
	Notes       string          `json:"notes,omitempty"`
	SentAt      *time.Time      `json:"sent_at,omitempty"`
}

// LineTotal is price times quantity, unrounded.
func (it OrderItem) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func NewOrder(id string, number int64, typ OrderType, tableID string, taxRate decimal.Decimal, now time.Time) Order {
	return Order{
		ID:          id,
		OrderNumber: number,
		Type:        typ,
		Status:      StatusOpen,
		TableID:     tableID,
		Items:       []OrderItem{},
		TaxRate:     taxRate,
		Subtotal:    decimal.Zero,
		Tax:         decimal.Zero,
		Tip:         decimal.Zero,
		Discount:    decimal.Zero,
		Total:       decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy so a store can hand out orders without aliasing.
func (o Order) Clone() Order {
	cp := o
	cp.Items = make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		if it.SentAt != nil {
			t := *it.SentAt
			it.SentAt = &t
		}
		cp.Items[i] = it
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		cp.PaidAt = &t
	}
	return cp
}

func (o *Order) Item(itemID string) (OrderItem, bool) {
	if i := o.itemIndex(itemID); i >= 0 {
		return o.Items[i], true
	}
	return OrderItem{}, false
}

func (o *Order) itemIndex(itemID string) int {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// Active reports whether the order is still on the floor.
func (o Order) Active() bool { return !o.Status.Terminal() }
