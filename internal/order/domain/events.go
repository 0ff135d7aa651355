package domain

import "time"

// KitchenTicket lists the items fired by one send-to-kitchen.
type KitchenTicket struct {
	OrderID     string       `json:"order_id"`
	OrderNumber int64        `json:"order_number"`
	Type        OrderType    `json:"type"`
	TableID     string       `json:"table_id,omitempty"`
	Lines       []TicketLine `json:"lines"`
	SentAt      time.Time    `json:"sent_at"`
}

type TicketLine struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	NameChinese string `json:"name_chinese,omitempty"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes,omitempty"`
}

// NewKitchenTicket collects the items stamped with sentAt.
func NewKitchenTicket(o Order, sentAt time.Time) KitchenTicket {
	t := KitchenTicket{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Type:        o.Type,
		TableID:     o.TableID,
		SentAt:      sentAt,
	}
	for _, it := range o.Items {
		if it.SentAt == nil || !it.SentAt.Equal(sentAt) {
			continue
		}
		t.Lines = append(t.Lines, TicketLine{
			ItemID:      it.ID,
			Name:        it.Name,
			NameChinese: it.NameChinese,
			Quantity:    it.Quantity,
			Notes:       it.Notes,
		})
	}
	return t
}

// KitchenStatusUpdate is what the kitchen reports back for an order.
type KitchenStatusUpdate struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
}
