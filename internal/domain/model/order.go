package model

import (
	"encoding/json"
	"time"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 確定済みの注文。チェックアウト1件につき最大1件（checkout_idはユニーク）。
type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64           `gorm:"not null;index" json:"user_id"`
	CheckoutID      int64           `gorm:"not null;uniqueIndex" json:"checkout_id"`
	Items           LineItems       `gorm:"type:jsonb;serializer:json;not null" json:"order_items"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod   string          `gorm:"type:varchar(50)" json:"payment_method"`
	TotalPrice      int64           `gorm:"not null" json:"total_price"`

	IsPaid         bool            `gorm:"not null;default:false" json:"is_paid"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	PaymentStatus  PaymentStatus   `gorm:"type:varchar(20);not null" json:"payment_status"`
	PaymentDetails json.RawMessage `gorm:"type:jsonb;serializer:json" json:"payment_details,omitempty"`

	Status      OrderStatus `gorm:"type:varchar(20);not null;index;default:'processing'" json:"status"`
	DeliveredAt *time.Time  `json:"delivered_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// チェックアウトから注文を組み立てる（保存はしない）
func NewOrderFromCheckout(c *Checkout, now time.Time) *Order {
	return &Order{
		UserID:          c.UserID,
		CheckoutID:      c.ID,
		Items:           c.Items.Clone(),
		ShippingAddress: c.ShippingAddress,
		PaymentMethod:   c.PaymentMethod,
		TotalPrice:      c.TotalPrice,
		IsPaid:          c.IsPaid,
		PaidAt:          c.PaidAt,
		PaymentStatus:   c.PaymentStatus,
		PaymentDetails:  c.PaymentDetails,
		Status:          OrderStatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// 配送済みかどうかはstatusから決める
func (o *Order) IsDelivered() bool {
	return o.Status == OrderStatusDelivered
}

// deliveredにしたときだけDeliveredAtを入れる。それ以外はクリア。
func (o *Order) ApplyStatus(status OrderStatus, now time.Time) {
	if status == OrderStatusDelivered {
		if o.Status != OrderStatusDelivered || o.DeliveredAt == nil {
			at := now
			o.DeliveredAt = &at
		}
	} else {
		o.DeliveredAt = nil
	}
	o.Status = status
}

func (o Order) MarshalJSON() ([]byte, error) {
	type alias Order
	return json.Marshal(struct {
		alias
		IsDelivered bool `json:"is_delivered"`
	}{
		alias:       alias(o),
		IsDelivered: o.IsDelivered(),
	})
}
