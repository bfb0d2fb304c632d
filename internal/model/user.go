package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleBartender  Role = "bartender"
	RoleBarAdmin   Role = "bar_admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleBartender, RoleBarAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

type User struct {
	ID            string          `json:"id"`
	Login         string          `json:"login"`
	PasswordHash  []byte          `json:"-"`
	Role          Role            `json:"role"`
	BarID         *string         `json:"bar_id,omitempty"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Actor is the authenticated identity behind a request, as carried in the
// token claims. BarID is empty for everyone but bar staff.
type Actor struct {
	UserID string
	Role   Role
	BarID  string
}

func (a Actor) Staff() bool {
	return a.Role == RoleBartender || a.Role == RoleBarAdmin
}

// CanManageBar reports whether the actor may act on the given bar's orders.
func (a Actor) CanManageBar(barID string) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	return a.Staff() && a.BarID == barID
}
