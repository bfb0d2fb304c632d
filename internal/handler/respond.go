package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bartab/internal/model"
	"bartab/internal/service"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeServiceError maps the service and state machine sentinels onto HTTP
// statuses. Anything unrecognized is a persistence-level failure and stays
// opaque to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, service.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, service.ErrStaleCartItem):
		writeError(w, http.StatusConflict, "stale_cart_item", err.Error())
	case errors.Is(err, service.ErrInvalidTable):
		writeError(w, http.StatusUnprocessableEntity, "invalid_table", err.Error())
	case errors.Is(err, service.ErrCartConflict):
		writeError(w, http.StatusConflict, "cart_conflict", err.Error())
	case errors.Is(err, service.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "insufficient_funds", err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, service.ErrBarNotFound):
		writeError(w, http.StatusNotFound, "bar_not_found", err.Error())
	case errors.Is(err, service.ErrTableNotFound):
		writeError(w, http.StatusNotFound, "table_not_found", err.Error())
	case errors.Is(err, service.ErrMenuItemNotFound):
		writeError(w, http.StatusNotFound, "menu_item_not_found", err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, service.ErrLoginTaken):
		writeError(w, http.StatusConflict, "login_taken", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
