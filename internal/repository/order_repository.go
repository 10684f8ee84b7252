package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID int64) (*model.Order, error)
	FindByCheckoutID(ctx context.Context, checkoutID int64) (*model.Order, error)
	// 新しい順
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, order *model.Order) error
	Delete(ctx context.Context, orderID int64) error
}
