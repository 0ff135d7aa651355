package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodCash     Method = "cash"
	MethodCredit   Method = "credit"
	MethodDebit    Method = "debit"
	MethodGiftCard Method = "gift_card"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCredit, MethodDebit, MethodGiftCard:
		return true
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
	StatusRefunded Status = "refunded"
	// StatusFailed marks an approved attempt the order refused to close on.
	StatusFailed Status = "failed"
)

type Payment struct {
	ID           string           `json:"id"`
	OrderID      string           `json:"order_id"`
	Method       Method           `json:"method"`
	Amount       decimal.Decimal  `json:"amount"`
	Tip          decimal.Decimal  `json:"tip"`
	Status       Status           `json:"status"`
	Reference    string           `json:"reference,omitempty"`
	CardLast4    string           `json:"card_last4,omitempty"`
	CashTendered *decimal.Decimal `json:"cash_tendered,omitempty"`
	ChangeDue    *decimal.Decimal `json:"change_due,omitempty"`
	ProcessedBy  string           `json:"processed_by"`
	RefundReason string           `json:"refund_reason,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
