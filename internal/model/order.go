package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusAccepted  Status = "ACCEPTED"
	StatusReady     Status = "READY"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
	StatusRejected  Status = "REJECTED"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("actor may not perform this transition")
)

var transitions = map[Status][]Status{
	StatusPlaced:   {StatusAccepted, StatusRejected, StatusCanceled},
	StatusAccepted: {StatusReady, StatusCanceled},
	StatusReady:    {StatusCompleted},
}

// CanTransition reports whether the edge from -> to is in the allowed graph.
// It is the single authority on transition legality.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPlaced, StatusAccepted, StatusReady, StatusCompleted, StatusCanceled, StatusRejected:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusRejected
}

// AuthorizeTransition checks both edge legality and the actor's capability
// for it. PLACED -> CANCELED is the customer self-cancel edge and is
// reserved for the order's owner; every other edge requires staff of the
// order's bar or a super admin.
func AuthorizeTransition(o *Order, to Status, actor Actor) error {
	if !CanTransition(o.Status, to) {
		return ErrInvalidTransition
	}
	if o.Status == StatusPlaced && to == StatusCanceled {
		if actor.UserID != o.UserID {
			return ErrForbidden
		}
		return nil
	}
	if actor.Role == RoleSuperAdmin {
		return nil
	}
	if actor.Staff() && actor.BarID == o.BarID {
		return nil
	}
	return ErrForbidden
}

type PaymentMethod string

const (
	PayCard   PaymentMethod = "card"
	PayWallet PaymentMethod = "wallet"
	PayAtBar  PaymentMethod = "pay_at_bar"
)

func (m PaymentMethod) Valid() bool {
	return m == PayCard || m == PayWallet || m == PayAtBar
}

// Refundable reports whether a cancellation returns money to the wallet.
// Pay-at-bar orders never charged anything up front.
func (m PaymentMethod) Refundable() bool {
	return m == PayCard || m == PayWallet
}

type Order struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	UserID        string          `json:"user_id"`
	BarID         string          `json:"bar_id"`
	TableID       *string         `json:"table_id"`
	Status        Status          `json:"status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Items         []OrderItem     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VATTotal      decimal.Decimal `json:"vat_total"`
	Total         decimal.Decimal `json:"total"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	AcceptedAt    *time.Time      `json:"accepted_at"`
	ReadyAt       *time.Time      `json:"ready_at"`
	ClosingID     *string         `json:"-"`
}

type OrderItem struct {
	ID         int64           `json:"-"`
	OrderID    int64           `json:"-"`
	MenuItemID *string         `json:"-"`
	Name       string          `json:"menu_item_name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Qty        int             `json:"qty"`
}
