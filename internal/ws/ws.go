package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bartab/internal/hub"
	"bartab/internal/model"
	"bartab/internal/mw"
)

const (
	// Clients send a keep-alive every 30s; allow two missed beats before
	// the read deadline kills the connection.
	readWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// OrderSource provides the full sync a channel performs before it starts
// receiving incremental pushes.
type OrderSource interface {
	ListOpenByBar(ctx context.Context, barID string) ([]model.Order, error)
	ListOpenByUser(ctx context.Context, userID string) ([]model.Order, error)
}

// BarOrders is the staff dashboard channel for one bar.
func BarOrders(h *hub.Hub, src OrderSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		barID := chi.URLParam(r, "barID")
		if _, err := uuid.Parse(barID); err != nil {
			http.Error(w, "invalid bar id", http.StatusBadRequest)
			return
		}
		if !actor.CanManageBar(barID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		orders, err := src.ListOpenByBar(r.Context(), barID)
		if err != nil {
			slog.Error("bar channel sync failed", "bar", barID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		serve(w, r, h, hub.BarKey(barID), orders)
	}
}

// UserOrders is the customer's own order view channel.
func UserOrders(h *hub.Hub, src OrderSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.ActorFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := src.ListOpenByUser(r.Context(), actor.UserID)
		if err != nil {
			slog.Error("user channel sync failed", "user", actor.UserID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		serve(w, r, h, hub.UserKey(actor.UserID), orders)
	}
}

// serve upgrades the connection, replays the current open orders, then
// registers the client and pumps until either side closes.
func serve(w http.ResponseWriter, r *http.Request, h *hub.Hub, key hub.Key, backlog []model.Order) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	for i := range backlog {
		msg, err := hub.EncodeOrder(&backlog[i])
		if err != nil {
			slog.Error("sync frame skipped", "order", backlog[i].ID, "error", err)
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			return
		}
	}

	client := hub.NewClient(key)
	h.Register(client)

	go writePump(conn, client)
	readPump(conn, client, h)
}

// readPump owns deregistration: any read error, including a clean close,
// releases the registry entry at once.
func readPump(conn *websocket.Conn, client *hub.Client, h *hub.Hub) {
	defer func() {
		h.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		// Any inbound frame counts as a keep-alive.
		conn.SetReadDeadline(time.Now().Add(readWait))
	}
}

func writePump(conn *websocket.Conn, client *hub.Client) {
	defer conn.Close()

	for msg := range client.Send() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	// Send channel closed: the hub evicted us or is shutting down.
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}
