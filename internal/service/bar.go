package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bartab/internal/model"
)

type BarService struct {
	db *sql.DB
}

func NewBarService(db *sql.DB) *BarService {
	return &BarService{db: db}
}

type BarInput struct {
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	ClosingTime string          `json:"closing_time"`
}

func (in BarInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: bar name required", ErrInvalidInput)
	}
	if in.VATRate.IsNegative() || in.VATRate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: vat rate must be between 0 and 100", ErrInvalidInput)
	}
	if in.ClosingTime != "" {
		if _, err := time.Parse("15:04", in.ClosingTime); err != nil {
			return fmt.Errorf("%w: closing time must be HH:MM", ErrInvalidInput)
		}
	}
	return nil
}

func (s *BarService) Create(ctx context.Context, in BarInput) (*model.Bar, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ClosingTime == "" {
		in.ClosingTime = "23:00"
	}

	bar := model.Bar{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Address:     in.Address,
		VATRate:     in.VATRate,
		ClosingTime: in.ClosingTime,
	}
	query := `INSERT INTO bars (id, name, address, vat_rate, closing_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	if err := s.db.QueryRowContext(ctx, query, bar.ID, bar.Name, bar.Address, bar.VATRate, bar.ClosingTime).Scan(&bar.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert bar: %w", err)
	}

	return &bar, nil
}

func (s *BarService) List(ctx context.Context) ([]model.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, vat_rate, closing_time, created_at
		FROM bars
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.VATRate, &b.ClosingTime, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return bars, nil
}

func (s *BarService) Get(ctx context.Context, id string) (*model.Bar, error) {
	var b model.Bar
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, vat_rate, closing_time, created_at
		FROM bars WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.Address, &b.VATRate, &b.ClosingTime, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBarNotFound
		}
		return nil, fmt.Errorf("get bar: %w", err)
	}
	return &b, nil
}

func (s *BarService) CreateTable(ctx context.Context, barID, name string) (*model.Table, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: table name required", ErrInvalidInput)
	}

	table := model.Table{ID: uuid.NewString(), BarID: barID, Name: name}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bar_tables (id, bar_id, name) VALUES ($1, $2, $3)`,
		table.ID, table.BarID, table.Name,
	)
	if err != nil {
		if strings.Contains(err.Error(), "violates foreign key") {
			return nil, ErrBarNotFound
		}
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, fmt.Errorf("%w: table %q already exists at this bar", ErrInvalidInput, name)
		}
		return nil, fmt.Errorf("insert table: %w", err)
	}

	return &table, nil
}

func (s *BarService) Tables(ctx context.Context, barID string) ([]model.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bar_id, name FROM bar_tables WHERE bar_id = $1 ORDER BY name`,
		barID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []model.Table
	for rows.Next() {
		var t model.Table
		if err := rows.Scan(&t.ID, &t.BarID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return tables, nil
}

type MenuItemInput struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func (s *BarService) CreateMenuItem(ctx context.Context, barID string, in MenuItemInput) (*model.MenuItem, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: menu item name required", ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}

	item := model.MenuItem{
		ID:        uuid.NewString(),
		BarID:     barID,
		Name:      in.Name,
		Price:     in.Price,
		Available: true,
	}
	query := `INSERT INTO menu_items (id, bar_id, name, price)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	if err := s.db.QueryRowContext(ctx, query, item.ID, item.BarID, item.Name, item.Price).Scan(&item.CreatedAt); err != nil {
		if strings.Contains(err.Error(), "violates foreign key") {
			return nil, ErrBarNotFound
		}
		return nil, fmt.Errorf("insert menu item: %w", err)
	}

	return &item, nil
}

type MenuItemUpdate struct {
	Name      *string          `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	Available *bool            `json:"available"`
}

func (s *BarService) UpdateMenuItem(ctx context.Context, itemID string, in MenuItemUpdate) (*model.MenuItem, error) {
	if in.Price != nil && in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}

	query := `UPDATE menu_items
		SET name = COALESCE($2, name),
		    price = COALESCE($3, price),
		    available = COALESCE($4, available)
		WHERE id = $1
		RETURNING id, bar_id, name, price, available, created_at`
	row := s.db.QueryRowContext(ctx, query, itemID, in.Name, in.Price, in.Available)

	var item model.MenuItem
	if err := row.Scan(&item.ID, &item.BarID, &item.Name, &item.Price, &item.Available, &item.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("update menu item: %w", err)
	}

	return &item, nil
}

// Menu returns the items customers can currently order.
func (s *BarService) Menu(ctx context.Context, barID string) ([]model.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bar_id, name, price, available, created_at
		FROM menu_items
		WHERE bar_id = $1 AND available
		ORDER BY name
	`, barID)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	defer rows.Close()

	var items []model.MenuItem
	for rows.Next() {
		var m model.MenuItem
		if err := rows.Scan(&m.ID, &m.BarID, &m.Name, &m.Price, &m.Available, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return items, nil
}
