package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bartab/internal/config"
	"bartab/internal/database"
	"bartab/internal/handler"
	"bartab/internal/hub"
	"bartab/internal/model"
	"bartab/internal/mw"
	"bartab/internal/service"
	"bartab/internal/worker"
	"bartab/internal/ws"
)

func main() {
	cfg := config.New()

	db, err := database.NewDB(cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(db)

	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}

	// Live order channel plumbing
	orderHub := hub.New()
	broadcaster := hub.NewBroadcaster(orderHub)

	// Services
	authSvc := service.NewAuthService(db)
	barSvc := service.NewBarService(db)
	cartSvc := service.NewCartService(db)
	walletSvc := service.NewWalletService(db)
	closingSvc := service.NewClosingService(db)
	orderSvc := service.NewOrderService(db, broadcaster)

	// Worker
	closingWorker := worker.NewClosingWorker(closingSvc, cfg.ClosingSweepInterval)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Post("/api/user/register", handler.RegisterHandler(authSvc, cfg.JWTSecret))
	r.Post("/api/user/login", handler.LoginHandler(authSvc, cfg.JWTSecret))

	r.Get("/api/bars", handler.ListBarsHandler(barSvc))
	r.Get("/api/bars/{barID}", handler.GetBarHandler(barSvc))
	r.Get("/api/bars/{barID}/menu", handler.GetMenuHandler(barSvc))
	r.Get("/api/bars/{barID}/tables", handler.GetTablesHandler(barSvc))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/api/user/cart", handler.GetCartHandler(cartSvc))
		r.Post("/api/user/cart/items", handler.AddCartItemHandler(cartSvc))
		r.Delete("/api/user/cart/items/{menuItemID}", handler.RemoveCartItemHandler(cartSvc))
		r.Put("/api/user/cart/table", handler.SetCartTableHandler(cartSvc))
		r.Delete("/api/user/cart", handler.ClearCartHandler(cartSvc))

		r.Post("/api/user/orders", handler.CheckoutHandler(orderSvc))
		r.Get("/api/user/orders", handler.ListMyOrdersHandler(orderSvc))
		r.Get("/api/user/wallet", handler.GetWalletHandler(walletSvc))

		r.Get("/api/orders/{orderID}", handler.GetOrderHandler(orderSvc))
		r.Post("/api/orders/{orderID}/status", handler.UpdateStatusHandler(orderSvc))

		r.Get("/api/bars/{barID}/orders", handler.ListBarOrdersHandler(orderSvc))
		r.Get("/api/bars/{barID}/closings", handler.ListClosingsHandler(closingSvc))

		r.Get("/ws/bars/{barID}/orders", ws.BarOrders(orderHub, orderSvc))
		r.Get("/ws/user/orders", ws.UserOrders(orderHub, orderSvc))
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret))
		r.Use(mw.RequireRole(model.RoleSuperAdmin))

		r.Post("/api/admin/bars", handler.CreateBarHandler(barSvc))
		r.Post("/api/admin/bars/{barID}/tables", handler.CreateTableHandler(barSvc))
		r.Post("/api/admin/bars/{barID}/menu", handler.CreateMenuItemHandler(barSvc))
		r.Put("/api/admin/menu/{itemID}", handler.UpdateMenuItemHandler(barSvc))
		r.Post("/api/admin/staff", handler.CreateStaffHandler(authSvc))
		r.Delete("/api/admin/orders", handler.PurgeOrdersHandler(orderSvc))
	})

	srv := &http.Server{
		Addr:        cfg.RunAddress,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: it would cut long-lived websocket connections.
	}

	ctx, cancel := context.WithCancel(context.Background())
	go closingWorker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop worker
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	orderHub.Shutdown()

	slog.Info("server stopped")
}
