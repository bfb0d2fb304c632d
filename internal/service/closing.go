package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bartab/internal/model"
)

type ClosingService struct {
	db *sql.DB
}

func NewClosingService(db *sql.DB) *ClosingService {
	return &ClosingService{db: db}
}

// SweepDueBars archives terminal orders for every bar whose daily closing
// time has passed and which has no closing record for the day yet. Open
// orders are left alone. Returns how many closings were created.
func (s *ClosingService) SweepDueBars(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, closing_time FROM bars`)
	if err != nil {
		return 0, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var due []string
	for rows.Next() {
		var id, closingTime string
		if err := rows.Scan(&id, &closingTime); err != nil {
			return 0, fmt.Errorf("scan bar: %w", err)
		}
		t, err := time.Parse("15:04", closingTime)
		if err != nil {
			continue
		}
		closesAt := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		if !now.Before(closesAt) {
			due = append(due, id)
		}
	}
	if err = rows.Err(); err != nil {
		return 0, fmt.Errorf("rows iteration failed: %w", err)
	}

	closed := 0
	for _, barID := range due {
		created, err := s.closeBar(ctx, barID, now)
		if err != nil {
			return closed, fmt.Errorf("close bar %s: %w", barID, err)
		}
		if created {
			closed++
		}
	}
	return closed, nil
}

// closeBar writes the closing record and stamps the bar's unarchived
// terminal orders in one transaction. The UNIQUE (bar_id, business_day)
// constraint makes the sweep idempotent across ticks and processes.
func (s *ClosingService) closeBar(ctx context.Context, barID string, now time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	closingID := uuid.NewString()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO closings (id, bar_id, business_day)
		VALUES ($1, $2, $3)
		ON CONFLICT (bar_id, business_day) DO NOTHING
		RETURNING id
	`, closingID, barID, now.Format("2006-01-02")).Scan(&closingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert closing: %w", err)
	}

	count, gross, err := archiveOrders(ctx, tx, closingID, barID)
	if err != nil {
		return false, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE closings SET orders_count = $2, gross_total = $3 WHERE id = $1`,
		closingID, count, gross,
	); err != nil {
		return false, fmt.Errorf("update closing totals: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}

// archiveOrders stamps the bar's unarchived terminal orders with the
// closing id. The gross total counts completed orders only; canceled and
// rejected orders are archived but carry no revenue.
func archiveOrders(ctx context.Context, tx *sql.Tx, closingID, barID string) (int, decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, `
		UPDATE orders SET closing_id = $1
		WHERE bar_id = $2
		  AND closing_id IS NULL
		  AND status IN ('COMPLETED', 'CANCELED', 'REJECTED')
		RETURNING status, subtotal + vat_total
	`, closingID, barID)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("archive orders: %w", err)
	}
	defer rows.Close()

	count := 0
	gross := decimal.Zero
	for rows.Next() {
		var (
			status model.Status
			total  decimal.Decimal
		)
		if err := rows.Scan(&status, &total); err != nil {
			return 0, decimal.Zero, fmt.Errorf("scan archived order: %w", err)
		}
		count++
		if status == model.StatusCompleted {
			gross = gross.Add(total)
		}
	}
	if err = rows.Err(); err != nil {
		return 0, decimal.Zero, fmt.Errorf("rows iteration failed: %w", err)
	}

	return count, gross, nil
}

func (s *ClosingService) ListByBar(ctx context.Context, barID string) ([]model.Closing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bar_id, business_day, closed_at, orders_count, gross_total
		FROM closings
		WHERE bar_id = $1
		ORDER BY business_day DESC
	`, barID)
	if err != nil {
		return nil, fmt.Errorf("query closings: %w", err)
	}
	defer rows.Close()

	var closings []model.Closing
	for rows.Next() {
		var c model.Closing
		if err := rows.Scan(&c.ID, &c.BarID, &c.BusinessDay, &c.ClosedAt, &c.OrdersCount, &c.GrossTotal); err != nil {
			return nil, fmt.Errorf("scan closing: %w", err)
		}
		closings = append(closings, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return closings, nil
}
