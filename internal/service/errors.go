package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrStaleCartItem      = errors.New("cart references a menu item that is gone or unavailable")
	ErrInvalidTable       = errors.New("table does not belong to the cart's bar")
	ErrCartConflict       = errors.New("cart already holds items from another bar")
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrOrderNotFound      = errors.New("order not found")
	ErrBarNotFound        = errors.New("bar not found")
	ErrTableNotFound      = errors.New("table not found")
	ErrMenuItemNotFound   = errors.New("menu item not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrLoginTaken         = errors.New("login already exists")
	ErrInvalidCredentials = errors.New("invalid login or password")
)
