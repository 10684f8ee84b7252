package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckout() *Checkout {
	items := LineItems{item(1, "M", "Red", 1500, 2)}
	return NewCheckout(1, items, ShippingAddress{
		Address: "1-2-3", City: "Tokyo", PostalCode: "100-0001", Country: "JP", Phone: "090",
	}, "paypal")
}

func TestNewCheckout_SnapshotsItems(t *testing.T) {
	items := LineItems{item(1, "M", "Red", 1500, 2)}
	c := NewCheckout(1, items, ShippingAddress{}, "paypal")

	items[0].Quantity = 10
	assert.Equal(t, int64(2), c.Items[0].Quantity)
	assert.Equal(t, int64(3000), c.TotalPrice)
	assert.Equal(t, PaymentStatusPending, c.PaymentStatus)
}

func TestCheckout_ConfirmPayment(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("paid以外は拒否", func(t *testing.T) {
		c := newTestCheckout()
		changed, err := c.ConfirmPayment("failed", nil, now)
		assert.ErrorIs(t, err, ErrInvalidPaymentStatus)
		assert.False(t, changed)
		assert.False(t, c.IsPaid)
		assert.Nil(t, c.PaidAt)
	})

	t.Run("paidで支払い済み", func(t *testing.T) {
		c := newTestCheckout()
		details := json.RawMessage(`{"id":"PAY-1"}`)
		changed, err := c.ConfirmPayment(PaymentStatusPaid, details, now)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, c.IsPaid)
		assert.Equal(t, PaymentStatusPaid, c.PaymentStatus)
		assert.JSONEq(t, `{"id":"PAY-1"}`, string(c.PaymentDetails))
		assert.Equal(t, now, *c.PaidAt)
	})

	t.Run("2回目は最初のPaidAtを保持", func(t *testing.T) {
		c := newTestCheckout()
		_, err := c.ConfirmPayment(PaymentStatusPaid, nil, now)
		require.NoError(t, err)

		changed, err := c.ConfirmPayment(PaymentStatusPaid, json.RawMessage(`{"x":1}`), now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, now, *c.PaidAt)
	})

	t.Run("確定後は変更不可", func(t *testing.T) {
		c := newTestCheckout()
		_, _ = c.ConfirmPayment(PaymentStatusPaid, nil, now)
		require.NoError(t, c.MarkFinalized(now))

		_, err := c.ConfirmPayment(PaymentStatusPaid, nil, now)
		assert.ErrorIs(t, err, ErrCheckoutFinalized)
	})
}

func TestCheckout_MarkFinalized(t *testing.T) {
	now := time.Now()

	c := newTestCheckout()
	assert.ErrorIs(t, c.MarkFinalized(now), ErrCheckoutNotPaid)
	assert.False(t, c.IsFinalized)

	_, _ = c.ConfirmPayment(PaymentStatusPaid, nil, now)
	require.NoError(t, c.MarkFinalized(now))
	assert.True(t, c.IsFinalized)
	assert.NotNil(t, c.FinalizedAt)

	assert.ErrorIs(t, c.MarkFinalized(now), ErrCheckoutFinalized)
}

func TestCheckout_CaptureSourceCart(t *testing.T) {
	c := newTestCheckout()
	c.CaptureSourceCart(nil)
	assert.Nil(t, c.SourceCartID)

	cart := &Cart{ID: 42, Version: 3}
	c.CaptureSourceCart(cart)
	require.NotNil(t, c.SourceCartID)
	assert.Equal(t, int64(42), *c.SourceCartID)
	assert.Equal(t, int64(3), c.SourceCartVersion)
}
