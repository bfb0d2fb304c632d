package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Bar struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	ClosingTime string          `json:"closing_time"` // HH:MM, daily close
	CreatedAt   time.Time       `json:"created_at"`
}

type Table struct {
	ID    string `json:"id"`
	BarID string `json:"bar_id"`
	Name  string `json:"name"`
}

type MenuItem struct {
	ID        string          `json:"id"`
	BarID     string          `json:"bar_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
	CreatedAt time.Time       `json:"created_at"`
}
