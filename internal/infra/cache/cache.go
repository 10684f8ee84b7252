package cache

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

// カートの読み取りキャッシュ。
// 書き込み側はInvalidateで「このversionより古いカートは無効」と記録し、
// Setはそれより古いversionのカートを書かない（読み取りと書き込みが競合しても古いカートが残らない）。
type CartCache interface {
	Get(ctx context.Context, id model.Identity) (*model.Cart, error)
	Set(ctx context.Context, id model.Identity, cart *model.Cart) error
	Invalidate(ctx context.Context, version int64, ids ...model.Identity) error
}

var ErrCacheMiss = errors.New("cache miss")

// Redisを使わないとき用
type Noop struct{}

func (Noop) Get(context.Context, model.Identity) (*model.Cart, error)   { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, model.Identity, *model.Cart) error     { return nil }
func (Noop) Invalidate(context.Context, int64, ...model.Identity) error { return nil }
