package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bartab/internal/model"
	"bartab/internal/mw"
	"bartab/internal/service"
)

// OrderService is what the order endpoints need from the service layer.
type OrderService interface {
	Checkout(ctx context.Context, userID string, in service.CheckoutInput) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, to model.Status, actor model.Actor) (*model.Order, error)
	GetByID(ctx context.Context, orderID int64) (*model.Order, error)
	ListOpenByBar(ctx context.Context, barID string) ([]model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	Purge(ctx context.Context, barID string) (int64, error)
}

type checkoutRequest struct {
	TableID       string `json:"table_id"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes"`
}

// CheckoutHandler converts the caller's cart into a PLACED order.
func CheckoutHandler(orderSvc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		var req checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}

		method := model.PaymentMethod(req.PaymentMethod)
		if !method.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_payment_method", "payment method must be card, wallet or pay_at_bar")
			return
		}
		if req.TableID != "" {
			if _, err := uuid.Parse(req.TableID); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_table", "table id must be a uuid")
				return
			}
		}

		order, err := orderSvc.Checkout(r.Context(), actor.UserID, service.CheckoutInput{
			TableID:       req.TableID,
			PaymentMethod: method,
			Notes:         req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatusHandler applies one state machine transition on behalf of
// the authenticated actor.
func UpdateStatusHandler(orderSvc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_order_id", "order id must be numeric")
			return
		}

		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}

		to := model.Status(req.Status)
		if !to.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown status "+req.Status)
			return
		}

		order, err := orderSvc.UpdateStatus(r.Context(), orderID, to, actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

// GetOrderHandler returns one order to its owner or to staff of its bar.
func GetOrderHandler(orderSvc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_order_id", "order id must be numeric")
			return
		}

		order, err := orderSvc.GetByID(r.Context(), orderID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if order.UserID != actor.UserID && !actor.CanManageBar(order.BarID) {
			writeError(w, http.StatusForbidden, "forbidden", "not your order")
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

// ListMyOrdersHandler is the customer's order history, newest first.
func ListMyOrdersHandler(orderSvc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		orders, err := orderSvc.ListByUser(r.Context(), actor.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

// ListBarOrdersHandler is the staff dashboard read of a bar's open orders;
// the same query backs the live channel's full sync.
func ListBarOrdersHandler(orderSvc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		barID := chi.URLParam(r, "barID")
		if _, err := uuid.Parse(barID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_bar_id", "bar id must be a uuid")
			return
		}
		if !actor.CanManageBar(barID) {
			writeError(w, http.StatusForbidden, "forbidden", "not staff of this bar")
			return
		}

		orders, err := orderSvc.ListOpenByBar(r.Context(), barID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}
