package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CheckoutRepository interface {
	Create(ctx context.Context, c *model.Checkout) error
	FindByID(ctx context.Context, checkoutID int64) (*model.Checkout, error)
	FindByIDForUpdate(ctx context.Context, checkoutID int64) (*model.Checkout, error)
	// c.Versionが一致したときだけ保存してVersionを+1する
	Update(ctx context.Context, c *model.Checkout) error
}
