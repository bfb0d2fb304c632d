package database

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

CREATE TABLE IF NOT EXISTS bars (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    name TEXT NOT NULL,
    address TEXT NOT NULL DEFAULT '',
    vat_rate NUMERIC(5,2) NOT NULL DEFAULT 0,
    closing_time TEXT NOT NULL DEFAULT '23:00',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    login TEXT UNIQUE NOT NULL,
    password_hash BYTEA NOT NULL,
    role TEXT NOT NULL DEFAULT 'customer',
    bar_id UUID REFERENCES bars(id) ON DELETE SET NULL,
    wallet_balance NUMERIC(10,2) NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bar_tables (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    bar_id UUID NOT NULL REFERENCES bars(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    UNIQUE (bar_id, name)
);

CREATE TABLE IF NOT EXISTS menu_items (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    bar_id UUID NOT NULL REFERENCES bars(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    price NUMERIC(10,2) NOT NULL,
    available BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS carts (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    bar_id UUID NOT NULL REFERENCES bars(id) ON DELETE CASCADE,
    table_id UUID REFERENCES bar_tables(id) ON DELETE SET NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- cart_items.menu_item_id carries no FK: a menu item deleted while carted
-- must surface as a stale line at checkout, not vanish from the cart.
CREATE TABLE IF NOT EXISTS cart_items (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    cart_id UUID NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
    menu_item_id UUID NOT NULL,
    quantity INT NOT NULL CHECK (quantity > 0),
    UNIQUE (cart_id, menu_item_id)
);

CREATE TABLE IF NOT EXISTS closings (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    bar_id UUID NOT NULL REFERENCES bars(id) ON DELETE CASCADE,
    business_day DATE NOT NULL,
    closed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    orders_count INT NOT NULL DEFAULT 0,
    gross_total NUMERIC(12,2) NOT NULL DEFAULT 0,
    UNIQUE (bar_id, business_day)
);

CREATE TABLE IF NOT EXISTS orders (
    id BIGSERIAL PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    bar_id UUID NOT NULL REFERENCES bars(id) ON DELETE CASCADE,
    table_id UUID REFERENCES bar_tables(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'PLACED',
    payment_method TEXT NOT NULL,
    subtotal NUMERIC(10,2) NOT NULL,
    vat_total NUMERIC(10,2) NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    accepted_at TIMESTAMPTZ,
    ready_at TIMESTAMPTZ,
    closing_id UUID REFERENCES closings(id) ON DELETE SET NULL
);

-- menu_item_id is nullable and unconstrained for the same reason as in
-- cart_items; name and unit_price are captured at order time.
CREATE TABLE IF NOT EXISTS order_items (
    id BIGSERIAL PRIMARY KEY,
    order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    menu_item_id UUID,
    name TEXT NOT NULL,
    unit_price NUMERIC(10,2) NOT NULL,
    quantity INT NOT NULL CHECK (quantity > 0)
);

CREATE TABLE IF NOT EXISTS order_sequences (
    day DATE PRIMARY KEY,
    next_number INT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_bar_status ON orders(bar_id, status);
CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_closing_id ON orders(closing_id);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_cart_items_cart_id ON cart_items(cart_id);
CREATE INDEX IF NOT EXISTS idx_menu_items_bar_id ON menu_items(bar_id);
CREATE INDEX IF NOT EXISTS idx_closings_bar_id ON closings(bar_id);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
