package http

import (
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
)

type createOrderReq struct {
	Type    domain.OrderType `json:"type" validate:"required,oneof=dine-in takeout delivery"`
	TableID string           `json:"table_id"`
}

// addItemReq defaults a missing quantity to one.
type addItemReq struct {
	MenuItemID string `json:"menu_item_id" validate:"required"`
	Quantity   *int   `json:"quantity" validate:"omitempty,min=1"`
	Notes      string `json:"notes" validate:"max=500"`
}

// updateItemReq carries a quantity delta, new notes or both.
type updateItemReq struct {
	Delta *int    `json:"delta" validate:"required_without=Notes"`
	Notes *string `json:"notes" validate:"required_without=Delta,omitempty,max=500"`
}

type adjustmentsReq struct {
	Tip      decimal.Decimal `json:"tip"`
	Discount decimal.Decimal `json:"discount"`
}

type kitchenStatusReq struct {
	Status domain.OrderStatus `json:"status" validate:"required,oneof=preparing ready served"`
}

type taxRateReq struct {
	TaxRate decimal.Decimal `json:"tax_rate"`
}

type tableReq struct {
	TableID string `json:"table_id" validate:"required"`
}

type voidReq struct {
	Reason string `json:"reason" validate:"required"`
}

type paymentReq struct {
	Method       string           `json:"method" validate:"required,oneof=cash credit debit gift_card"`
	Amount       decimal.Decimal  `json:"amount"`
	Tip          decimal.Decimal  `json:"tip"`
	CashTendered *decimal.Decimal `json:"cash_tendered"`
	CardLast4    string           `json:"card_last4" validate:"omitempty,len=4,numeric"`
}

type refundReq struct {
	Reason string `json:"reason" validate:"required"`
}

// orderView adds the rounded display totals to an order.
type orderView struct {
	domain.Order
	Display domain.Ticket `json:"display"`
}

func viewOf(o domain.Order) orderView {
	return orderView{Order: o, Display: o.Ticket()}
}

func viewsOf(orders []domain.Order) []orderView {
	out := make([]orderView, len(orders))
	for i, o := range orders {
		out[i] = viewOf(o)
	}
	return out
}
