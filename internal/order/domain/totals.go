package domain

import "github.com/shopspring/decimal"

// DisplayPlaces is the precision money is rounded to for tickets and receipts.
// Stored amounts are never rounded.
const DisplayPlaces = 2

// recompute derives subtotal, tax and total from the items, tax rate, tip and
// discount. It is the only place those three fields are written.
func (o *Order) recompute() {
	subtotal := decimal.Zero
	for _, it := range o.Items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	o.Subtotal = subtotal
	o.Tax = subtotal.Mul(o.TaxRate)
	o.Total = o.Subtotal.Add(o.Tax).Add(o.Tip).Sub(o.Discount)
}

// Ticket is the rounded view of an order's money.
type Ticket struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Tip      string `json:"tip"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

func (o Order) Ticket() Ticket {
	return Ticket{
		Subtotal: Money(o.Subtotal),
		Tax:      Money(o.Tax),
		Tip:      Money(o.Tip),
		Discount: Money(o.Discount),
		Total:    Money(o.Total),
	}
}

// Money formats an amount for display, half away from zero.
func Money(d decimal.Decimal) string {
	return d.StringFixed(DisplayPlaces)
}
