package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bartab/internal/model"
	"bartab/internal/mw"
	"bartab/internal/service"
)

type ClosingService interface {
	ListByBar(ctx context.Context, barID string) ([]model.Closing, error)
}

func CreateBarHandler(barSvc BarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.BarInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}

		bar, err := barSvc.Create(r.Context(), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, bar)
	}
}

type createTableRequest struct {
	Name string `json:"name"`
}

func CreateTableHandler(barSvc BarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barID := chi.URLParam(r, "barID")
		if _, err := uuid.Parse(barID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_bar_id", "bar id must be a uuid")
			return
		}

		var req createTableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}

		table, err := barSvc.CreateTable(r.Context(), barID, req.Name)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, table)
	}
}

func CreateMenuItemHandler(barSvc BarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barID := chi.URLParam(r, "barID")
		if _, err := uuid.Parse(barID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_bar_id", "bar id must be a uuid")
			return
		}

		var in service.MenuItemInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}

		item, err := barSvc.CreateMenuItem(r.Context(), barID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, item)
	}
}

func UpdateMenuItemHandler(barSvc BarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemID")
		if _, err := uuid.Parse(itemID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu item id must be a uuid")
			return
		}

		var in service.MenuItemUpdate
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}

		item, err := barSvc.UpdateMenuItem(r.Context(), itemID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, item)
	}
}

type createStaffRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Role     string `json:"role"`
	BarID    string `json:"bar_id"`
}

func CreateStaffHandler(authSvc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createStaffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}
		if req.Login == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_credentials", "login and password required")
			return
		}
		role := model.Role(req.Role)
		if role != model.RoleBartender && role != model.RoleBarAdmin {
			writeError(w, http.StatusBadRequest, "invalid_role", "role must be bartender or bar_admin")
			return
		}
		if _, err := uuid.Parse(req.BarID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_bar_id", "bar_id must be a uuid")
			return
		}

		user, err := authSvc.CreateStaff(r.Context(), req.Login, req.Password, role, req.BarID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}

// PurgeOrdersHandler bulk-deletes orders, optionally scoped to one bar.
// Meant for wiping seeded demo data between events.
func PurgeOrdersHandler(orderSvc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barID := r.URL.Query().Get("bar_id")
		if barID != "" {
			if _, err := uuid.Parse(barID); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_bar_id", "bar_id must be a uuid")
				return
			}
		}

		n, err := orderSvc.Purge(r.Context(), barID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]int64{"purged": n})
	}
}

func ListClosingsHandler(closingSvc ClosingService) http.HandlerFunc {
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
		if actor.Role != model.RoleBarAdmin && actor.Role != model.RoleSuperAdmin {
			writeError(w, http.StatusForbidden, "forbidden", "closings are visible to bar admins only")
			return
		}
		if !actor.CanManageBar(barID) {
			writeError(w, http.StatusForbidden, "forbidden", "not your bar")
			return
		}

		closings, err := closingSvc.ListByBar(r.Context(), barID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, closings)
	}
}
