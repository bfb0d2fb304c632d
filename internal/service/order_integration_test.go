package service_test

import (
	"context"
	"database/sql"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartab/internal/database"
	"bartab/internal/model"
	"bartab/internal/service"
)

// These tests need a real postgres; point TEST_DATABASE_URI at one to run
// them. Every test starts from a truncated schema.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	uri := os.Getenv("TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("TEST_DATABASE_URI not set")
	}

	db, err := database.NewDB(uri)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.InitSchema(db))
	_, err = db.Exec(`TRUNCATE bars, users, bar_tables, menu_items, carts, cart_items,
		closings, orders, order_items, order_sequences CASCADE`)
	require.NoError(t, err)

	return db
}

type fixture struct {
	barID     string
	tableID   string
	negroniID string
	spritzID  string
	userID    string
}

// seedBar creates one bar (10% VAT) with a table, two menu items and a
// customer holding 20.00 in the wallet.
func seedBar(t *testing.T, db *sql.DB) fixture {
	t.Helper()

	fix := fixture{
		barID:     uuid.NewString(),
		tableID:   uuid.NewString(),
		negroniID: uuid.NewString(),
		spritzID:  uuid.NewString(),
		userID:    uuid.NewString(),
	}

	_, err := db.Exec(`INSERT INTO bars (id, name, vat_rate, closing_time) VALUES ($1, 'U Kocoura', 10, '00:00')`, fix.barID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO bar_tables (id, bar_id, name) VALUES ($1, $2, 'T1')`, fix.tableID, fix.barID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO menu_items (id, bar_id, name, price) VALUES ($1, $2, 'Negroni', 9.50)`, fix.negroniID, fix.barID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO menu_items (id, bar_id, name, price) VALUES ($1, $2, 'Spritz', 3.50)`, fix.spritzID, fix.barID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id, login, password_hash, wallet_balance) VALUES ($1, $2, 'x', 20.00)`, fix.userID, "guest-"+fix.userID[:8])
	require.NoError(t, err)

	return fix
}

// recordingNotifier collects the orders handed to the broadcaster.
type recordingNotifier struct {
	mu     sync.Mutex
	orders []*model.Order
}

func (n *recordingNotifier) OrderUpdated(order *model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
}

func (n *recordingNotifier) statuses() []model.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.Status, len(n.orders))
	for i, o := range n.orders {
		out[i] = o.Status
	}
	return out
}

func fillCart(t *testing.T, cartSvc *service.CartService, fix fixture) {
	t.Helper()
	_, err := cartSvc.AddItem(context.Background(), fix.userID, fix.negroniID, 1, false)
	require.NoError(t, err)
	_, err = cartSvc.AddItem(context.Background(), fix.userID, fix.spritzID, 1, false)
	require.NoError(t, err)
}

func TestCheckoutHappyPath(t *testing.T) {
	db := setupDB(t)
	fix := seedBar(t, db)
	ctx := context.Background()

	notifier := &recordingNotifier{}
	cartSvc := service.NewCartService(db)
	orderSvc := service.NewOrderService(db, notifier)
	walletSvc := service.NewWalletService(db)

	fillCart(t, cartSvc, fix)

	order, err := orderSvc.Checkout(ctx, fix.userID, service.CheckoutInput{
		TableID:       fix.tableID,
		PaymentMethod: model.PayWallet,
		Notes:         "no ice",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-\d{4}$`), order.Code)
	assert.Equal(t, model.StatusPlaced, order.Status)
	require.NotNil(t, order.TableID)
	assert.Equal(t, fix.tableID, *order.TableID)
	assert.True(t, order.Subtotal.Equal(decimal.RequireFromString("13.00")), "subtotal %s", order.Subtotal)
	assert.True(t, order.VATTotal.Equal(decimal.RequireFromString("1.30")), "vat %s", order.VATTotal)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("14.30")), "total %s", order.Total)
	require.Len(t, order.Items, 2)

	// Wallet debited inside the same transaction.
	balance, err := walletSvc.Balance(ctx, fix.userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("5.70")), "balance %s", balance)

	// Cart is consumed by the conversion.
	cart, err := cartSvc.Get(ctx, fix.userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	assert.Equal(t, []model.Status{model.StatusPlaced}, notifier.statuses())
}

func TestCheckoutStaleItemLeavesEverythingIntact(t *testing.T) {
	db := setupDB(t)
	fix := seedBar(t, db)
	ctx := context.Background()

	cartSvc := service.NewCartService(db)
	orderSvc := service.NewOrderService(db, nil)

	fillCart(t, cartSvc, fix)

	_, err := db.Exec(`UPDATE menu_items SET available = FALSE WHERE id = $1`, fix.negroniID)
	require.NoError(t, err)

	_, err = orderSvc.Checkout(ctx, fix.userID, service.CheckoutInput{PaymentMethod: model.PayCard})
	require.ErrorIs(t, err, service.ErrStaleCartItem)

	var orders int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&orders))
	assert.Zero(t, orders, "a failed checkout must not leave an order behind")

	cart, err := cartSvc.Get(ctx, fix.userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2, "the cart survives a failed checkout")
}

func TestCheckoutInsufficientFunds(t *testing.T) {
	db := setupDB(t)
	fix := seedBar(t, db)
	ctx := context.Background()

	cartSvc := service.NewCartService(db)
	orderSvc := service.NewOrderService(db, nil)
	walletSvc := service.NewWalletService(db)

	_, err := db.Exec(`UPDATE users SET wallet_balance = 1.00 WHERE id = $1`, fix.userID)
	require.NoError(t, err)

	fillCart(t, cartSvc, fix)

	_, err = orderSvc.Checkout(ctx, fix.userID, service.CheckoutInput{PaymentMethod: model.PayWallet})
	require.ErrorIs(t, err, service.ErrInsufficientFunds)

	balance, err := walletSvc.Balance(ctx, fix.userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("1.00")), "balance %s", balance)

	var orders int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&orders))
	assert.Zero(t, orders)
}

func TestConcurrentSameEdgeTransition(t *testing.T) {
	db := setupDB(t)
	fix := seedBar(t, db)
	ctx := context.Background()

	cartSvc := service.NewCartService(db)
	orderSvc := service.NewOrderService(db, nil)

	fillCart(t, cartSvc, fix)
	order, err := orderSvc.Checkout(ctx, fix.userID, service.CheckoutInput{PaymentMethod: model.PayAtBar})
	require.NoError(t, err)

	staff := model.Actor{UserID: uuid.NewString(), Role: model.RoleBartender, BarID: fix.barID}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orderSvc.UpdateStatus(ctx, order.ID, model.StatusAccepted, staff)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, model.ErrInvalidTransition)
			lost++
		}
	}
	assert.Equal(t, 1, won, "exactly one request may win the edge")
	assert.Equal(t, 1, lost)

	got, err := orderSvc.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, got.Status)
	assert.NotNil(t, got.AcceptedAt)
}

func TestCancelRefundsWallet(t *testing.T) {
	db := setupDB(t)
	fix := seedBar(t, db)
	ctx := context.Background()

	notifier := &recordingNotifier{}
	cartSvc := service.NewCartService(db)
	orderSvc := service.NewOrderService(db, notifier)
	walletSvc := service.NewWalletService(db)

	fillCart(t, cartSvc, fix)
	order, err := orderSvc.Checkout(ctx, fix.userID, service.CheckoutInput{PaymentMethod: model.PayWallet})
	require.NoError(t, err)

	owner := model.Actor{UserID: fix.userID, Role: model.RoleCustomer}
	canceled, err := orderSvc.UpdateStatus(ctx, order.ID, model.StatusCanceled, owner)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, canceled.Status)

	balance, err := walletSvc.Balance(ctx, fix.userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("20.00")), "balance %s", balance)

	assert.Equal(t, []model.Status{model.StatusPlaced, model.StatusCanceled}, notifier.statuses())
}

func TestRejectionDoesNotRefund(t *testing.T) {
	db := setupDB(t)
	fix := seedBar(t, db)
	ctx := context.Background()

	cartSvc := service.NewCartService(db)
	orderSvc := service.NewOrderService(db, nil)
	walletSvc := service.NewWalletService(db)

	fillCart(t, cartSvc, fix)
	order, err := orderSvc.Checkout(ctx, fix.userID, service.CheckoutInput{PaymentMethod: model.PayWallet})
	require.NoError(t, err)

	staff := model.Actor{UserID: uuid.NewString(), Role: model.RoleBartender, BarID: fix.barID}
	_, err = orderSvc.UpdateStatus(ctx, order.ID, model.StatusRejected, staff)
	require.NoError(t, err)

	balance, err := walletSvc.Balance(ctx, fix.userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("5.70")), "a rejection settles elsewhere, not via the wallet")
}

func TestClosingSweepArchivesTerminalOrders(t *testing.T) {
	db := setupDB(t)
	fix := seedBar(t, db)
	ctx := context.Background()

	cartSvc := service.NewCartService(db)
	orderSvc := service.NewOrderService(db, nil)
	closingSvc := service.NewClosingService(db)

	staff := model.Actor{UserID: uuid.NewString(), Role: model.RoleBartender, BarID: fix.barID}
	owner := model.Actor{UserID: fix.userID, Role: model.RoleCustomer}

	// One completed order worth 14.30 …
	fillCart(t, cartSvc, fix)
	completed, err := orderSvc.Checkout(ctx, fix.userID, service.CheckoutInput{PaymentMethod: model.PayCard})
	require.NoError(t, err)
	for _, next := range []model.Status{model.StatusAccepted, model.StatusReady, model.StatusCompleted} {
		_, err = orderSvc.UpdateStatus(ctx, completed.ID, next, staff)
		require.NoError(t, err)
	}

	// … one canceled, and one still open.
	fillCart(t, cartSvc, fix)
	canceled, err := orderSvc.Checkout(ctx, fix.userID, service.CheckoutInput{PaymentMethod: model.PayAtBar})
	require.NoError(t, err)
	_, err = orderSvc.UpdateStatus(ctx, canceled.ID, model.StatusCanceled, owner)
	require.NoError(t, err)

	fillCart(t, cartSvc, fix)
	open, err := orderSvc.Checkout(ctx, fix.userID, service.CheckoutInput{PaymentMethod: model.PayAtBar})
	require.NoError(t, err)

	// The fixture bar closes at 00:00, so it is always due.
	created, err := closingSvc.SweepDueBars(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	closings, err := closingSvc.ListByBar(ctx, fix.barID)
	require.NoError(t, err)
	require.Len(t, closings, 1)
	assert.Equal(t, 2, closings[0].OrdersCount)
	assert.True(t, closings[0].GrossTotal.Equal(decimal.RequireFromString("14.30")),
		"gross %s must count the completed order only", closings[0].GrossTotal)

	var archived int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM orders WHERE closing_id = $1`, closings[0].ID).Scan(&archived))
	assert.Equal(t, 2, archived)

	stillOpen, err := orderSvc.GetByID(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPlaced, stillOpen.Status)

	// Same day again: nothing new to close.
	created, err = closingSvc.SweepDueBars(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, created)
}
