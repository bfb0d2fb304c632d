package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"bartab/internal/mw"
)

type WalletService interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}

func GetWalletHandler(walletSvc WalletService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		balance, err := walletSvc.Balance(r.Context(), actor.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
	}
}
