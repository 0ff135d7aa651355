package domain

import "github.com/shopspring/decimal"

type Category string

const (
	CategoryDimSum   Category = "dimsum"
	CategoryLunch    Category = "lunch"
	CategoryDinner   Category = "dinner"
	CategoryDrinks   Category = "drinks"
	CategoryDesserts Category = "desserts"
)

type Item struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	NameChinese string          `json:"name_chinese,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Tags        []string        `json:"tags"`
	IsAvailable bool            `json:"is_available"`
}

// Filter narrows a menu listing. Zero values match everything.
type Filter struct {
	Category      Category
	Tags          []string
	Search        string
	AvailableOnly bool
}
