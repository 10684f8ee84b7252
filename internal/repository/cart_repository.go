package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// カート（1identityにつき1件）の保存・取得の約束。
type CartRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*model.Cart, error)
	FindByGuestID(ctx context.Context, guestID string) (*model.Cart, error)
	// merge/finalizeのトランザクション内で使う（行ロック付き）
	FindByUserIDForUpdate(ctx context.Context, userID int64) (*model.Cart, error)
	FindByGuestIDForUpdate(ctx context.Context, guestID string) (*model.Cart, error)
	FindByIDForUpdate(ctx context.Context, cartID int64) (*model.Cart, error)

	Create(ctx context.Context, cart *model.Cart) error
	// cart.Versionが一致したときだけ保存してVersionを+1する
	Update(ctx context.Context, cart *model.Cart) error
	Delete(ctx context.Context, cartID int64) error
	// versionが一致したときだけ削除（一致しなければErrVersionConflict）
	DeleteIfVersion(ctx context.Context, cartID int64, version int64) error
}

// identityの種類で引き分ける
func FindCartByIdentity(ctx context.Context, r CartRepository, id model.Identity) (*model.Cart, error) {
	switch id.Kind {
	case model.IdentityUser:
		return r.FindByUserID(ctx, id.UserID)
	case model.IdentityGuest:
		return r.FindByGuestID(ctx, id.GuestID)
	default:
		return nil, ErrNotFound
	}
}
