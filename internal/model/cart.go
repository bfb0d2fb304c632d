package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	BarID     string          `json:"bar_id"`
	TableID   *string         `json:"table_id"`
	Items     []CartItem      `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CartItem carries the live menu values; prices are only captured
// permanently when the cart converts into an order.
type CartItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Qty        int             `json:"qty"`
	Available  bool            `json:"available"`
}
