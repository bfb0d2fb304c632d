package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type WalletService struct {
	db *sql.DB
}

func NewWalletService(db *sql.DB) *WalletService {
	return &WalletService{db: db}
}

func (s *WalletService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1`,
		userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("get wallet balance: %w", err)
	}
	return balance, nil
}

// debitWallet takes amount from the user's balance inside the caller's
// transaction, holding the row lock across the check.
func debitWallet(ctx context.Context, tx *sql.Tx, userID string, amount decimal.Decimal) error {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&balance)
	if err != nil {
		return fmt.Errorf("get wallet balance: %w", err)
	}

	if balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET wallet_balance = wallet_balance - $1 WHERE id = $2`,
		amount, userID,
	)
	if err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}
	return nil
}

func creditWallet(ctx context.Context, tx *sql.Tx, userID string, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET wallet_balance = wallet_balance + $1 WHERE id = $2`,
		amount, userID,
	)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	return nil
}
