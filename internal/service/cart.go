package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bartab/internal/model"
)

type CartService struct {
	db *sql.DB
}

func NewCartService(db *sql.DB) *CartService {
	return &CartService{db: db}
}

// Get returns the user's cart with live menu names and prices joined in.
// A user without a cart gets an empty one (not persisted).
func (s *CartService) Get(ctx context.Context, userID string) (*model.Cart, error) {
	cart := &model.Cart{UserID: userID, Subtotal: decimal.Zero}

	err := s.db.QueryRowContext(ctx,
		`SELECT id, bar_id, table_id, updated_at FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&cart.ID, &cart.BarID, &cart.TableID, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cart, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.menu_item_id, ci.quantity,
		       COALESCE(mi.name, ''), COALESCE(mi.price, 0),
		       COALESCE(mi.available, FALSE)
		FROM cart_items ci
		LEFT JOIN menu_items mi ON mi.id = ci.menu_item_id
		WHERE ci.cart_id = $1
		ORDER BY mi.name
	`, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.MenuItemID, &it.Qty, &it.Name, &it.UnitPrice, &it.Available); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, it)
		if it.Available {
			cart.Subtotal = cart.Subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return cart, nil
}

// AddItem puts qty of a menu item into the user's cart, creating the cart
// if needed. A cart holds items from one bar at a time: adding from another
// bar fails with ErrCartConflict unless replace is set, which starts a
// fresh cart for the new bar.
func (s *CartService) AddItem(ctx context.Context, userID, menuItemID string, qty int, replace bool) (*model.Cart, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var itemBarID string
	var available bool
	err = tx.QueryRowContext(ctx,
		`SELECT bar_id, available FROM menu_items WHERE id = $1`,
		menuItemID,
	).Scan(&itemBarID, &available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	if !available {
		return nil, ErrMenuItemNotFound
	}

	var cartID, cartBarID string
	err = tx.QueryRowContext(ctx,
		`SELECT id, bar_id FROM carts WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&cartID, &cartBarID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cartID, cartBarID = uuid.NewString(), itemBarID
		_, err = tx.ExecContext(ctx,
			`INSERT INTO carts (id, user_id, bar_id) VALUES ($1, $2, $3)`,
			cartID, userID, cartBarID,
		)
		if err != nil {
			return nil, fmt.Errorf("insert cart: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("get cart: %w", err)
	case cartBarID != itemBarID:
		if !replace {
			return nil, ErrCartConflict
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
			return nil, fmt.Errorf("replace cart: %w", err)
		}
		cartID, cartBarID = uuid.NewString(), itemBarID
		_, err = tx.ExecContext(ctx,
			`INSERT INTO carts (id, user_id, bar_id) VALUES ($1, $2, $3)`,
			cartID, userID, cartBarID,
		)
		if err != nil {
			return nil, fmt.Errorf("insert cart: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, menu_item_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, menu_item_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, uuid.NewString(), cartID, menuItemID, qty)
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return nil, fmt.Errorf("touch cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.Get(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, menuItemID string) (*model.Cart, error) {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE menu_item_id = $2
		  AND cart_id = (SELECT id FROM carts WHERE user_id = $1)
	`, userID, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("delete cart item: %w", err)
	}
	return s.Get(ctx, userID)
}

// SetTable records the customer's table choice; the table must belong to
// the cart's bar.
func (s *CartService) SetTable(ctx context.Context, userID, tableID string) (*model.Cart, error) {
	var cartID, cartBarID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, bar_id FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&cartID, &cartBarID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var tableBarID string
	err = s.db.QueryRowContext(ctx,
		`SELECT bar_id FROM bar_tables WHERE id = $1`,
		tableID,
	).Scan(&tableBarID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	if tableBarID != cartBarID {
		return nil, ErrInvalidTable
	}

	if _, err = s.db.ExecContext(ctx,
		`UPDATE carts SET table_id = $2, updated_at = NOW() WHERE id = $1`,
		cartID, tableID,
	); err != nil {
		return nil, fmt.Errorf("set table: %w", err)
	}

	return s.Get(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
