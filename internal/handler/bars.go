package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bartab/internal/model"
	"bartab/internal/service"
)

// BarService is what the catalog and admin endpoints need from the
// service layer.
type BarService interface {
	Create(ctx context.Context, in service.BarInput) (*model.Bar, error)
	List(ctx context.Context) ([]model.Bar, error)
	Get(ctx context.Context, id string) (*model.Bar, error)
	CreateTable(ctx context.Context, barID, name string) (*model.Table, error)
	Tables(ctx context.Context, barID string) ([]model.Table, error)
	CreateMenuItem(ctx context.Context, barID string, in service.MenuItemInput) (*model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, itemID string, in service.MenuItemUpdate) (*model.MenuItem, error)
	Menu(ctx context.Context, barID string) ([]model.MenuItem, error)
}

func ListBarsHandler(barSvc BarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bars, err := barSvc.List(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bars)
	}
}

func GetBarHandler(barSvc BarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barID := chi.URLParam(r, "barID")
		if _, err := uuid.Parse(barID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_bar_id", "bar id must be a uuid")
			return
		}

		bar, err := barSvc.Get(r.Context(), barID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bar)
	}
}

func GetMenuHandler(barSvc BarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barID := chi.URLParam(r, "barID")
		if _, err := uuid.Parse(barID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_bar_id", "bar id must be a uuid")
			return
		}

		items, err := barSvc.Menu(r.Context(), barID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func GetTablesHandler(barSvc BarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barID := chi.URLParam(r, "barID")
		if _, err := uuid.Parse(barID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_bar_id", "bar id must be a uuid")
			return
		}

		tables, err := barSvc.Tables(r.Context(), barID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tables)
	}
}
