package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bartab/internal/model"
	"bartab/internal/mw"
)

// CartService is what the cart endpoints need from the service layer.
type CartService interface {
	Get(ctx context.Context, userID string) (*model.Cart, error)
	AddItem(ctx context.Context, userID, menuItemID string, qty int, replace bool) (*model.Cart, error)
	RemoveItem(ctx context.Context, userID, menuItemID string) (*model.Cart, error)
	SetTable(ctx context.Context, userID, tableID string) (*model.Cart, error)
	Clear(ctx context.Context, userID string) error
}

func GetCartHandler(cartSvc CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		cart, err := cartSvc.Get(r.Context(), actor.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, cart)
	}
}

type addItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Qty        int    `json:"quantity"`
	Replace    bool   `json:"replace"`
}

// AddCartItemHandler adds qty of one menu item. Items from a second bar
// are rejected with cart_conflict unless replace is set.
func AddCartItemHandler(cartSvc CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		var req addItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}
		if req.Qty == 0 {
			req.Qty = 1
		}
		if req.Qty < 1 {
			writeError(w, http.StatusBadRequest, "invalid_qty", "qty must be at least 1")
			return
		}
		if _, err := uuid.Parse(req.MenuItemID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu_item_id must be a uuid")
			return
		}

		cart, err := cartSvc.AddItem(r.Context(), actor.UserID, req.MenuItemID, req.Qty, req.Replace)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, cart)
	}
}

func RemoveCartItemHandler(cartSvc CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		menuItemID := chi.URLParam(r, "menuItemID")
		if _, err := uuid.Parse(menuItemID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu item id must be a uuid")
			return
		}

		cart, err := cartSvc.RemoveItem(r.Context(), actor.UserID, menuItemID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, cart)
	}
}

type setTableRequest struct {
	TableID string `json:"table_id"`
}

func SetCartTableHandler(cartSvc CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		var req setTableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}
		if _, err := uuid.Parse(req.TableID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_table", "table_id must be a uuid")
			return
		}

		cart, err := cartSvc.SetTable(r.Context(), actor.UserID, req.TableID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, cart)
	}
}

func ClearCartHandler(cartSvc CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		if err := cartSvc.Clear(r.Context(), actor.UserID); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
