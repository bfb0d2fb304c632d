package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bartab/internal/model"
)

// OrderNotifier receives every committed order mutation. The hub's
// broadcaster implements it; the service never touches a transport.
type OrderNotifier interface {
	OrderUpdated(order *model.Order)
}

type OrderService struct {
	db       *sql.DB
	notifier OrderNotifier
}

func NewOrderService(db *sql.DB, notifier OrderNotifier) *OrderService {
	return &OrderService{db: db, notifier: notifier}
}

type CheckoutInput struct {
	TableID       string
	PaymentMethod model.PaymentMethod
	Notes         string
}

// Checkout drains the user's cart into a new PLACED order. The order, its
// items, the wallet debit for wallet payments and the cart clear all commit
// as one transaction; any failure leaves the cart untouched.
func (s *OrderService) Checkout(ctx context.Context, userID string, in CheckoutInput) (*model.Order, error) {
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, in.PaymentMethod)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		cartID, barID string
		cartTableID   *string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, bar_id, table_id FROM carts WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&cartID, &barID, &cartTableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	lines, err := cartLines(ctx, tx, cartID, barID)
	if err != nil {
		return nil, err
	}

	tableID := cartTableID
	if in.TableID != "" {
		tableID = &in.TableID
	}
	if tableID != nil {
		var tableBarID string
		err = tx.QueryRowContext(ctx, `SELECT bar_id FROM bar_tables WHERE id = $1`, *tableID).Scan(&tableBarID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrInvalidTable
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
		if tableBarID != barID {
			return nil, ErrInvalidTable
		}
	}

	var vatRate decimal.Decimal
	if err = tx.QueryRowContext(ctx, `SELECT vat_rate FROM bars WHERE id = $1`, barID).Scan(&vatRate); err != nil {
		return nil, fmt.Errorf("get vat rate: %w", err)
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	vatTotal := subtotal.Mul(vatRate).Div(decimal.NewFromInt(100)).Round(2)

	code, err := nextOrderCode(ctx, tx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		Code:          code,
		UserID:        userID,
		BarID:         barID,
		TableID:       tableID,
		Status:        model.StatusPlaced,
		PaymentMethod: in.PaymentMethod,
		Subtotal:      subtotal,
		VATTotal:      vatTotal,
		Total:         subtotal.Add(vatTotal),
		Notes:         in.Notes,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (code, user_id, bar_id, table_id, status, payment_method, subtotal, vat_total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, order.Code, order.UserID, order.BarID, order.TableID, order.Status, order.PaymentMethod,
		order.Subtotal, order.VATTotal, order.Notes,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for i := range lines {
		lines[i].OrderID = order.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, order.ID, lines[i].MenuItemID, lines[i].Name, lines[i].UnitPrice, lines[i].Qty).Scan(&lines[i].ID)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}
	order.Items = lines

	if in.PaymentMethod == model.PayWallet {
		if err = debitWallet(ctx, tx, userID, order.Total); err != nil {
			return nil, err
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if s.notifier != nil {
		s.notifier.OrderUpdated(order)
	}

	return order, nil
}

// cartLines captures the cart's lines with current menu names and prices.
// Any line whose menu item is gone, unavailable or from another bar fails
// the whole checkout.
func cartLines(ctx context.Context, tx *sql.Tx, cartID, barID string) ([]model.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT ci.menu_item_id, ci.quantity, mi.id, mi.bar_id, mi.name, mi.price, mi.available
		FROM cart_items ci
		LEFT JOIN menu_items mi ON mi.id = ci.menu_item_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var lines []model.OrderItem
	for rows.Next() {
		var (
			menuItemID string
			qty        int
			miID       sql.NullString
			miBarID    sql.NullString
			miName     sql.NullString
			miPrice    decimal.NullDecimal
			miAvail    sql.NullBool
		)
		if err := rows.Scan(&menuItemID, &qty, &miID, &miBarID, &miName, &miPrice, &miAvail); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if !miID.Valid || !miAvail.Bool || miBarID.String != barID {
			return nil, ErrStaleCartItem
		}
		id := menuItemID
		lines = append(lines, model.OrderItem{
			MenuItemID: &id,
			Name:       miName.String,
			UnitPrice:  miPrice.Decimal,
			Qty:        qty,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	return lines, nil
}

// nextOrderCode allocates the next number in the day's sequence. The upsert
// serializes concurrent checkouts on the sequence row.
func nextOrderCode(ctx context.Context, tx *sql.Tx, now time.Time) (string, error) {
	var n int
	err := tx.QueryRowContext(ctx, `
		INSERT INTO order_sequences (day, next_number) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET next_number = order_sequences.next_number + 1
		RETURNING next_number
	`, now.Format("2006-01-02")).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("allocate order number: %w", err)
	}
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), n), nil
}

// UpdateStatus applies one state machine transition. The status write is a
// compare-and-set against the status the actor was authorized for, so of
// two concurrent attempts on the same order exactly one commits; the loser
// sees ErrInvalidTransition. A cancellation of a card- or wallet-paid order
// credits the refund inside the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, to model.Status, actor model.Actor) (*model.Order, error) {
	if !to.Valid() {
		return nil, model.ErrInvalidTransition
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	orders, err := queryOrders(ctx, tx, `WHERE o.id = $1 ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	order := &orders[0]

	if err = model.AuthorizeTransition(order, to, actor); err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE orders SET status = $2,
			accepted_at = CASE WHEN $2 = 'ACCEPTED' THEN NOW() ELSE accepted_at END,
			ready_at    = CASE WHEN $2 = 'READY' THEN NOW() ELSE ready_at END
		WHERE id = $1 AND status = $3
		RETURNING status, accepted_at, ready_at
	`, orderID, to, order.Status).Scan(&order.Status, &order.AcceptedAt, &order.ReadyAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race: the row moved on (or was purged) since we read it.
			var current model.Status
			probe := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&current)
			if errors.Is(probe, sql.ErrNoRows) {
				return nil, ErrOrderNotFound
			}
			return nil, model.ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	if to == model.StatusCanceled && order.PaymentMethod.Refundable() {
		if err = creditWallet(ctx, tx, order.UserID, order.Total); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if s.notifier != nil {
		s.notifier.OrderUpdated(order)
	}

	return order, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	orders, err := queryOrders(ctx, s.db, `WHERE o.id = $1 ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

// ListOpenByBar is the bar dashboard read: every not-yet-terminal order,
// oldest first. It also backs the full sync a bar channel performs on
// connect.
func (s *OrderService) ListOpenByBar(ctx context.Context, barID string) ([]model.Order, error) {
	return queryOrders(ctx, s.db, `
		WHERE o.bar_id = $1 AND o.status IN ('PLACED', 'ACCEPTED', 'READY')
		ORDER BY o.created_at, o.id, oi.id`, barID)
}

// ListOpenByUser backs the full sync on a customer channel.
func (s *OrderService) ListOpenByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return queryOrders(ctx, s.db, `
		WHERE o.user_id = $1 AND o.status IN ('PLACED', 'ACCEPTED', 'READY')
		ORDER BY o.created_at, o.id, oi.id`, userID)
}

func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return queryOrders(ctx, s.db, `
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC, oi.id`, userID)
}

// Purge bulk-deletes orders, optionally scoped to one bar. Ops tooling only.
func (s *OrderService) Purge(ctx context.Context, barID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if barID == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM orders`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM orders WHERE bar_id = $1`, barID)
	}
	if err != nil {
		return 0, fmt.Errorf("purge orders: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryOrders loads orders with their items in one pass, folding the
// LEFT JOIN rows back into per-order item slices. tail is the WHERE and
// ORDER BY portion; result order follows the first row seen per order.
func queryOrders(ctx context.Context, q querier, tail string, args ...any) ([]model.Order, error) {
	query := `
		SELECT o.id, o.code, o.user_id, o.bar_id, o.table_id, o.status, o.payment_method,
		       o.subtotal, o.vat_total, o.notes, o.created_at, o.accepted_at, o.ready_at, o.closing_id,
		       oi.id, oi.menu_item_id, oi.name, oi.unit_price, oi.quantity
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		` + tail

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	index := make(map[int64]int)
	for rows.Next() {
		var (
			o          model.Order
			itemID     sql.NullInt64
			menuItemID *string
			name       sql.NullString
			unitPrice  decimal.NullDecimal
			qty        sql.NullInt64
		)
		err := rows.Scan(
			&o.ID, &o.Code, &o.UserID, &o.BarID, &o.TableID, &o.Status, &o.PaymentMethod,
			&o.Subtotal, &o.VATTotal, &o.Notes, &o.CreatedAt, &o.AcceptedAt, &o.ReadyAt, &o.ClosingID,
			&itemID, &menuItemID, &name, &unitPrice, &qty,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		i, ok := index[o.ID]
		if !ok {
			o.Total = o.Subtotal.Add(o.VATTotal)
			orders = append(orders, o)
			i = len(orders) - 1
			index[o.ID] = i
		}
		if itemID.Valid {
			orders[i].Items = append(orders[i].Items, model.OrderItem{
				ID:         itemID.Int64,
				OrderID:    o.ID,
				MenuItemID: menuItemID,
				Name:       name.String,
				UnitPrice:  unitPrice.Decimal,
				Qty:        int(qty.Int64),
			})
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return orders, nil
}
