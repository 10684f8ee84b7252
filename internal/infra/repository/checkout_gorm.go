package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckoutGormRepository struct {
	db *gorm.DB
}

func NewCheckoutGormRepository(db *gorm.DB) *CheckoutGormRepository {
	return &CheckoutGormRepository{db: db}
}

func (r *CheckoutGormRepository) Create(ctx context.Context, c *model.Checkout) error {
	c.Version = 1
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *CheckoutGormRepository) FindByID(ctx context.Context, checkoutID int64) (*model.Checkout, error) {
	var c model.Checkout
	if err := r.db.WithContext(ctx).Where("id = ?", checkoutID).First(&c).Error; err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

func (r *CheckoutGormRepository) FindByIDForUpdate(ctx context.Context, checkoutID int64) (*model.Checkout, error) {
	var c model.Checkout
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", checkoutID).
		First(&c).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// 明細・配送先は作成後に変えないので、状態のカラムだけ更新する
func (r *CheckoutGormRepository) Update(ctx context.Context, c *model.Checkout) error {
	oldVersion := c.Version
	c.Version = oldVersion + 1
	c.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).
		Model(c).
		Where("version = ?", oldVersion).
		Select("is_paid", "paid_at", "payment_status", "payment_details", "is_finalized", "finalized_at", "version", "updated_at").
		Updates(c)

	if res.Error != nil {
		c.Version = oldVersion
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		c.Version = oldVersion
		return repo.ErrVersionConflict
	}
	return nil
}
