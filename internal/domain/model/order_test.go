package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderFromCheckout(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := newTestCheckout()
	c.ID = 5
	_, err := c.ConfirmPayment(PaymentStatusPaid, json.RawMessage(`{"id":"PAY"}`), now)
	require.NoError(t, err)

	o := NewOrderFromCheckout(c, now)

	assert.Equal(t, int64(5), o.CheckoutID)
	assert.Equal(t, c.UserID, o.UserID)
	assert.Equal(t, OrderStatusProcessing, o.Status)
	assert.True(t, o.IsPaid)
	assert.Equal(t, c.TotalPrice, o.TotalPrice)
	assert.Equal(t, now, o.CreatedAt)

	// 明細はコピー
	c.Items[0].Quantity = 100
	assert.Equal(t, int64(2), o.Items[0].Quantity)
}

func TestOrder_ApplyStatus(t *testing.T) {
	now := time.Now()
	o := &Order{Status: OrderStatusProcessing}

	o.ApplyStatus(OrderStatusDelivered, now)
	assert.True(t, o.IsDelivered())
	require.NotNil(t, o.DeliveredAt)
	first := *o.DeliveredAt

	// 同じdeliveredでは日時を変えない
	o.ApplyStatus(OrderStatusDelivered, now.Add(time.Hour))
	assert.Equal(t, first, *o.DeliveredAt)

	o.ApplyStatus(OrderStatusShipped, now)
	assert.False(t, o.IsDelivered())
	assert.Nil(t, o.DeliveredAt)
}

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderStatus("PAID").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestOrder_MarshalJSON_IncludesIsDelivered(t *testing.T) {
	o := Order{ID: 1, Status: OrderStatusDelivered, Items: LineItems{}}
	b, err := json.Marshal(o)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, true, got["is_delivered"])
	assert.Equal(t, "delivered", got["status"])
	assert.NotContains(t, got, "IsDelivered")
}
