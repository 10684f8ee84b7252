package events

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// 注文確定イベント（配送・メール等の下流向け）
type OrderCreated struct {
	OrderID    int64             `json:"order_id"`
	CheckoutID int64             `json:"checkout_id"`
	UserID     int64             `json:"user_id"`
	Items      model.LineItems   `json:"items"`
	TotalPrice int64             `json:"total_price"`
	Status     model.OrderStatus `json:"status"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func NewOrderCreated(o *model.Order, now time.Time) OrderCreated {
	return OrderCreated{
		OrderID:    o.ID,
		CheckoutID: o.CheckoutID,
		UserID:     o.UserID,
		Items:      o.Items.Clone(),
		TotalPrice: o.TotalPrice,
		Status:     o.Status,
		OccurredAt: now.UTC(),
	}
}

type OrderPublisher interface {
	PublishOrderCreated(ctx context.Context, evt OrderCreated) error
}

// ブローカー未設定のとき
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCreated(context.Context, OrderCreated) error { return nil }
