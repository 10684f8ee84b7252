package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (*model.Cart, error) {
	return r.findOne(r.db.WithContext(ctx), "user_id = ?", userID)
}

func (r *CartGormRepository) FindByGuestID(ctx context.Context, guestID string) (*model.Cart, error) {
	return r.findOne(r.db.WithContext(ctx), "guest_id = ?", guestID)
}

func (r *CartGormRepository) FindByUserIDForUpdate(ctx context.Context, userID int64) (*model.Cart, error) {
	return r.findOne(r.locked(ctx), "user_id = ?", userID)
}

func (r *CartGormRepository) FindByGuestIDForUpdate(ctx context.Context, guestID string) (*model.Cart, error) {
	return r.findOne(r.locked(ctx), "guest_id = ?", guestID)
}

func (r *CartGormRepository) FindByIDForUpdate(ctx context.Context, cartID int64) (*model.Cart, error) {
	return r.findOne(r.locked(ctx), "id = ?", cartID)
}

// 行ロック（SELECT ... FOR UPDATE）。トランザクション内でのみ意味がある。
func (r *CartGormRepository) locked(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *CartGormRepository) findOne(q *gorm.DB, where string, arg interface{}) (*model.Cart, error) {
	var cart model.Cart
	if err := q.Where(where, arg).First(&cart).Error; err != nil {
		return nil, translateError(err)
	}
	if cart.Items == nil {
		cart.Items = model.LineItems{}
	}
	return &cart, nil
}

func (r *CartGormRepository) Create(ctx context.Context, cart *model.Cart) error {
	if cart.Items == nil {
		cart.Items = model.LineItems{}
	}
	cart.Version = 1
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// 楽観ロック：WHERE version = 読んだ時のversion
func (r *CartGormRepository) Update(ctx context.Context, cart *model.Cart) error {
	oldVersion := cart.Version
	cart.Version = oldVersion + 1
	cart.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).
		Model(cart).
		Where("version = ?", oldVersion).
		Select("user_id", "guest_id", "items", "total_price", "version", "updated_at").
		Updates(cart)

	if res.Error != nil {
		cart.Version = oldVersion
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		cart.Version = oldVersion
		return repo.ErrVersionConflict
	}
	return nil
}

func (r *CartGormRepository) Delete(ctx context.Context, cartID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Cart{}, cartID)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CartGormRepository) DeleteIfVersion(ctx context.Context, cartID int64, version int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND version = ?", cartID, version).
		Delete(&model.Cart{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrVersionConflict
	}
	return nil
}
