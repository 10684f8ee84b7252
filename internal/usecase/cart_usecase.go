package usecase

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain/model"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/metrics"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// 同時更新でversionがずれたときの再試行回数
const maxCartWriteAttempts = 3

// CartUsecase はカート（ユーザー/ゲスト）の業務ロジックです。
type CartUsecase struct {
	tx       repo.TransactionManager
	carts    repo.CartRepository
	products repo.ProductRepository
	cache    cache.CartCache
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewCartUsecase(
	tx repo.TransactionManager,
	carts repo.CartRepository,
	products repo.ProductRepository,
	cartCache cache.CartCache,
	m *metrics.Metrics,
	log *zap.Logger,
) *CartUsecase {
	if cartCache == nil {
		cartCache = cache.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CartUsecase{
		tx:       tx,
		carts:    carts,
		products: products,
		cache:    cartCache,
		metrics:  m,
		log:      log,
	}
}

type AddItemInput struct {
	ProductID int64
	Quantity  int64
	Size      string
	Color     string
}

type SetItemQuantityInput struct {
	ProductID int64
	Size      string
	Color     string
	Quantity  int64
}

type RemoveItemInput struct {
	ProductID int64
	Size      string
	Color     string
}

// GetCart はidentityのカートを返す（無ければNotFound、作らない）。
func (u *CartUsecase) GetCart(ctx context.Context, id model.Identity) (*model.Cart, error) {
	if id.IsNone() {
		return nil, NewError(KindUnidentified, "user id or guest id is required")
	}

	if cached, err := u.cache.Get(ctx, id); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		u.log.Warn("cart cache get failed", zap.String("identity", id.String()), zap.Error(err))
	}

	cart, err := repo.FindCartByIdentity(ctx, u.carts, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewError(KindNotFound, "cart not found")
	}
	if err != nil {
		return nil, internalError("find cart", err)
	}

	if err := u.cache.Set(ctx, id, cart); err != nil {
		u.log.Warn("cart cache set failed", zap.String("identity", id.String()), zap.Error(err))
	}
	return cart, nil
}

// AddItem は商品をカートへ入れる（同じ商品/サイズ/色は数量加算、カートが無ければ作る）。
func (u *CartUsecase) AddItem(ctx context.Context, id model.Identity, in AddItemInput) (*model.Cart, error) {
	if id.IsNone() {
		return nil, NewError(KindUnidentified, "user id or guest id is required")
	}
	if in.ProductID <= 0 {
		return nil, NewError(KindValidation, "invalid product_id")
	}
	if in.Quantity < 1 {
		return nil, NewError(KindValidation, "quantity must be at least 1")
	}
	if in.Quantity > model.MaxLineQuantity {
		return nil, quantityLimitError()
	}

	// 公開中の商品のみ
	p, err := u.products.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewError(KindNotFound, "product not found")
	}
	if err != nil {
		return nil, internalError("find product", err)
	}
	if !p.IsActive {
		return nil, NewError(KindNotFound, "product not found")
	}
	item := p.LineItem(in.Quantity, in.Size, in.Color)

	for attempt := 0; attempt < maxCartWriteAttempts; attempt++ {
		cart, err := repo.FindCartByIdentity(ctx, u.carts, id)
		if errors.Is(err, repo.ErrNotFound) {
			cart = model.NewCart(id)
			if err := cart.AddItem(item); err != nil {
				return nil, lineItemError("add item", err)
			}
			err = u.carts.Create(ctx, cart)
			if errors.Is(err, repo.ErrDuplicate) {
				// 別リクエストが先に作った
				u.metrics.VersionConflict("cart")
				continue
			}
			if err != nil {
				return nil, internalError("create cart", err)
			}
			return u.afterWrite(ctx, id, "add", cart, cart.Version), nil
		}
		if err != nil {
			return nil, internalError("find cart", err)
		}

		if err := cart.AddItem(item); err != nil {
			return nil, lineItemError("add item", err)
		}
		err = u.carts.Update(ctx, cart)
		if errors.Is(err, repo.ErrVersionConflict) {
			u.metrics.VersionConflict("cart")
			continue
		}
		if err != nil {
			return nil, internalError("update cart", err)
		}
		return u.afterWrite(ctx, id, "add", cart, cart.Version), nil
	}
	return nil, NewError(KindConflict, "cart was modified concurrently, please retry")
}

// SetItemQuantity は明細の数量を上書きする（0以下は削除）。
func (u *CartUsecase) SetItemQuantity(ctx context.Context, id model.Identity, in SetItemQuantityInput) (*model.Cart, error) {
	if id.IsNone() {
		return nil, NewError(KindUnidentified, "user id or guest id is required")
	}
	if in.ProductID <= 0 {
		return nil, NewError(KindValidation, "invalid product_id")
	}
	if in.Quantity > model.MaxLineQuantity {
		return nil, quantityLimitError()
	}
	key := model.LineItemKey{ProductID: in.ProductID, Size: in.Size, Color: in.Color}
	return u.mutate(ctx, id, "set_quantity", func(c *model.Cart) error {
		return c.SetQuantity(key, in.Quantity)
	})
}

// RemoveItem は明細を削除する。
func (u *CartUsecase) RemoveItem(ctx context.Context, id model.Identity, in RemoveItemInput) (*model.Cart, error) {
	if id.IsNone() {
		return nil, NewError(KindUnidentified, "user id or guest id is required")
	}
	if in.ProductID <= 0 {
		return nil, NewError(KindValidation, "invalid product_id")
	}
	key := model.LineItemKey{ProductID: in.ProductID, Size: in.Size, Color: in.Color}
	return u.mutate(ctx, id, "remove", func(c *model.Cart) error {
		return c.RemoveItem(key)
	})
}

// 既存カートを読み直して変更→保存。version衝突なら最初からやり直す。
func (u *CartUsecase) mutate(ctx context.Context, id model.Identity, op string, fn func(c *model.Cart) error) (*model.Cart, error) {
	if id.IsNone() {
		return nil, NewError(KindUnidentified, "user id or guest id is required")
	}

	for attempt := 0; attempt < maxCartWriteAttempts; attempt++ {
		cart, err := repo.FindCartByIdentity(ctx, u.carts, id)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewError(KindNotFound, "cart not found")
		}
		if err != nil {
			return nil, internalError("find cart", err)
		}

		if err := fn(cart); err != nil {
			return nil, lineItemError(op, err)
		}

		// 空になったゲストカートは残さない
		deleted := cart.IsEmpty() && cart.GuestID != nil
		if deleted {
			err = u.carts.DeleteIfVersion(ctx, cart.ID, cart.Version)
		} else {
			err = u.carts.Update(ctx, cart)
		}
		if errors.Is(err, repo.ErrVersionConflict) {
			u.metrics.VersionConflict("cart")
			continue
		}
		if err != nil {
			return nil, internalError("save cart", err)
		}
		version := cart.Version
		if deleted {
			// 削除は次のversionとして扱う
			version++
		}
		return u.afterWrite(ctx, id, op, cart, version), nil
	}
	return nil, NewError(KindConflict, "cart was modified concurrently, please retry")
}

// versionは書き込み後のカートのversion。これより古いキャッシュは書かせない。
func (u *CartUsecase) afterWrite(ctx context.Context, id model.Identity, op string, cart *model.Cart, version int64) *model.Cart {
	u.invalidate(ctx, version, id)
	u.metrics.CartMutation(op)
	u.log.Debug("cart updated",
		zap.String("identity", id.String()),
		zap.String("op", op),
		zap.Int64("cart_id", cart.ID),
		zap.Int64("total_price", cart.TotalPrice),
	)
	return cart
}

func (u *CartUsecase) invalidate(ctx context.Context, version int64, ids ...model.Identity) {
	if err := u.cache.Invalidate(ctx, version, ids...); err != nil {
		u.log.Warn("cart cache invalidate failed", zap.Error(err))
	}
}

func quantityLimitError() error {
	return NewError(KindValidation, fmt.Sprintf("quantity must be between 1 and %d", model.MaxLineQuantity))
}

// 明細操作のmodelエラーをAppErrorにする
func lineItemError(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrLineItemNotFound):
		return NewError(KindNotFound, "item not found in cart")
	case errors.Is(err, model.ErrQuantityLimit):
		return quantityLimitError()
	case errors.Is(err, model.ErrPriceLimit):
		return NewError(KindValidation, "price out of range")
	case errors.Is(err, model.ErrTooManyLineItems):
		return NewError(KindValidation, fmt.Sprintf("at most %d line items allowed", model.MaxLineItems))
	default:
		return internalError(op, err)
	}
}
