package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Closing is the archival record a bar's terminal orders are swept into
// when the bar's daily closing time passes.
type Closing struct {
	ID          string          `json:"id"`
	BarID       string          `json:"bar_id"`
	BusinessDay time.Time       `json:"business_day"`
	ClosedAt    time.Time       `json:"closed_at"`
	OrdersCount int             `json:"orders_count"`
	GrossTotal  decimal.Decimal `json:"gross_total"`
}
