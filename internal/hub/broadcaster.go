package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"bartab/internal/model"
)

type orderEnvelope struct {
	Type  string       `json:"type"`
	Order *model.Order `json:"order"`
}

// EncodeOrder wraps an order in the wire envelope pushed over live
// channels. The same shape serves the full sync on connect and every
// incremental update.
func EncodeOrder(order *model.Order) ([]byte, error) {
	msg, err := json.Marshal(orderEnvelope{Type: "order", Order: order})
	if err != nil {
		return nil, fmt.Errorf("encode order %d: %w", order.ID, err)
	}
	return msg, nil
}

// Broadcaster fans committed order updates out to the order's bar audience
// and, separately, to its owning customer's audience.
type Broadcaster struct {
	hub *Hub
}

func NewBroadcaster(h *Hub) *Broadcaster {
	return &Broadcaster{hub: h}
}

// OrderUpdated serializes the order once and delivers it to both audiences.
// Delivery is fire-and-forget: a dead channel is evicted by the hub and
// never fails the caller.
func (b *Broadcaster) OrderUpdated(order *model.Order) {
	msg, err := EncodeOrder(order)
	if err != nil {
		slog.Error("order broadcast skipped", "order", order.ID, "error", err)
		return
	}
	b.hub.Publish(BarKey(order.BarID), msg)
	b.hub.Publish(UserKey(order.UserID), msg)
}
