package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartab/internal/model"
)

func sampleOrder() *model.Order {
	name := "item-1"
	return &model.Order{
		ID:            42,
		Code:          "ORD-20260821-0007",
		UserID:        "user-1",
		BarID:         "bar-1",
		Status:        model.StatusAccepted,
		PaymentMethod: model.PayCard,
		Items: []model.OrderItem{
			{MenuItemID: &name, Name: "Negroni", UnitPrice: decimal.RequireFromString("9.50"), Qty: 2},
		},
		Subtotal:  decimal.RequireFromString("19.00"),
		VATTotal:  decimal.RequireFromString("1.90"),
		Total:     decimal.RequireFromString("20.90"),
		CreatedAt: time.Date(2026, 8, 21, 18, 0, 0, 0, time.UTC),
	}
}

func TestOrderUpdatedFansOutToBothAudiences(t *testing.T) {
	h := New()
	staff1 := NewClient(BarKey("bar-1"))
	staff2 := NewClient(BarKey("bar-1"))
	customer := NewClient(UserKey("user-1"))
	bystander := NewClient(BarKey("bar-2"))
	h.Register(staff1)
	h.Register(staff2)
	h.Register(customer)
	h.Register(bystander)

	NewBroadcaster(h).OrderUpdated(sampleOrder())

	var payloads [][]byte
	for _, c := range []*Client{staff1, staff2, customer} {
		select {
		case msg := <-c.Send():
			payloads = append(payloads, msg)
		default:
			t.Fatal("client did not receive the update")
		}
	}
	require.Len(t, payloads, 3)
	assert.Equal(t, payloads[0], payloads[1], "one serialization for every recipient")
	assert.Equal(t, payloads[0], payloads[2])

	select {
	case msg := <-bystander.Send():
		t.Fatalf("unrelated bar received %q", msg)
	default:
	}
}

func TestEncodeOrderWireShape(t *testing.T) {
	msg, err := EncodeOrder(sampleOrder())
	require.NoError(t, err)

	var frame struct {
		Type  string `json:"type"`
		Order struct {
			ID     int64        `json:"id"`
			Status model.Status `json:"status"`
			Items  []struct {
				Qty          int    `json:"qty"`
				MenuItemName string `json:"menu_item_name"`
			} `json:"items"`
			Total         string `json:"total"`
			PaymentMethod string `json:"payment_method"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(msg, &frame))

	assert.Equal(t, "order", frame.Type)
	assert.Equal(t, int64(42), frame.Order.ID)
	assert.Equal(t, model.StatusAccepted, frame.Order.Status)
	require.Len(t, frame.Order.Items, 1)
	assert.Equal(t, 2, frame.Order.Items[0].Qty)
	assert.Equal(t, "Negroni", frame.Order.Items[0].MenuItemName)
	assert.Equal(t, "20.9", frame.Order.Total)
	assert.Equal(t, "card", frame.Order.PaymentMethod)
}

func TestDeadChannelGetsNoFurtherBroadcasts(t *testing.T) {
	h := New()
	key := BarKey("bar-1")
	dead := NewClient(key)
	live := NewClient(key)
	h.Register(dead)
	h.Register(live)

	b := NewBroadcaster(h)
	order := sampleOrder()
	for i := 0; i <= sendBuffer; i++ {
		b.OrderUpdated(order)
		<-live.Send()
	}

	require.Equal(t, 1, h.Count(key), "dead client removed from registry")

	b.OrderUpdated(order)
	n := 0
	for range dead.Send() {
		n++
	}
	assert.Equal(t, sendBuffer, n, "dead client saw only its queued backlog")
}
