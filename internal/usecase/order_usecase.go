package usecase

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// OrderUsecase は購入者向けの注文参照です。
type OrderUsecase struct {
	orders repo.OrderRepository
}

func NewOrderUsecase(orders repo.OrderRepository) *OrderUsecase {
	return &OrderUsecase{orders: orders}
}

// 自分の注文一覧（新しい順）
func (u *OrderUsecase) ListMine(ctx context.Context, userID int64) ([]model.Order, error) {
	if userID <= 0 {
		return []model.Order{}, NewError(KindUnidentified, "login required")
	}
	orders, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		return []model.Order{}, internalError("list orders", err)
	}
	return orders, nil
}

// 本人か管理者だけ見られる。それ以外は存在を隠してNotFound。
func (u *OrderUsecase) GetByID(ctx context.Context, userID int64, isAdmin bool, orderID int64) (*model.Order, error) {
	if userID <= 0 {
		return nil, NewError(KindUnidentified, "login required")
	}
	if orderID <= 0 {
		return nil, NewError(KindValidation, "invalid order id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewError(KindNotFound, "order not found")
	}
	if err != nil {
		return nil, internalError("find order", err)
	}
	if o.UserID != userID && !isAdmin {
		return nil, NewError(KindNotFound, "order not found")
	}
	return o, nil
}
