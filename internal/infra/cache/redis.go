package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"storefront/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

func NewRedisCartCache(client *redis.Client, baseTTL time.Duration) *RedisCartCache {
	if baseTTL <= 0 {
		baseTTL = 15 * time.Minute
	}
	return &RedisCartCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCartCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

// Versionはjsonに出ないので、キャッシュ用の形に包む
type cachedCart struct {
	Cart    *model.Cart `json:"cart"`
	Version int64       `json:"version"`
}

// 1キー = hash{version, cart}。cartが無いものは無効化の印。
// 保存済みのversionの方が新しければ何もしない。
//
// KEYS[1] key / ARGV[1] version / ARGV[2] cart json（空なら無効化の印）/ ARGV[3] TTL(ms)
var storeIfNewer = redis.NewScript(`
local cur = tonumber(redis.pcall('HGET', KEYS[1], 'version'))
if cur and cur > tonumber(ARGV[1]) then
	return 0
end
redis.call('DEL', KEYS[1])
if ARGV[2] == '' then
	redis.call('HSET', KEYS[1], 'version', ARGV[1])
else
	redis.call('HSET', KEYS[1], 'version', ARGV[1], 'cart', ARGV[2])
end
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

func (r *RedisCartCache) Get(ctx context.Context, id model.Identity) (*model.Cart, error) {
	data, err := r.client.HGet(ctx, cacheKey(id), "cart").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var v cachedCart
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if v.Cart == nil {
		return nil, ErrCacheMiss
	}
	v.Cart.Version = v.Version
	return v.Cart, nil
}

func (r *RedisCartCache) Set(ctx context.Context, id model.Identity, cart *model.Cart) error {
	data, err := json.Marshal(cachedCart{Cart: cart, Version: cart.Version})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// 同時に切れないようにTTLを少しずらす
	jitter := time.Duration(rand.Intn(60)) * time.Second
	if err := r.store(ctx, cacheKey(id), cart.Version, string(data), r.baseTTL+jitter); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate はversion未満のカートをキャッシュさせない印を残す。
func (r *RedisCartCache) Invalidate(ctx context.Context, version int64, ids ...model.Identity) error {
	for _, id := range ids {
		if err := r.store(ctx, cacheKey(id), version, "", r.baseTTL); err != nil {
			return fmt.Errorf("redis invalidate failed: %w", err)
		}
	}
	return nil
}

func (r *RedisCartCache) store(ctx context.Context, key string, version int64, payload string, ttl time.Duration) error {
	return storeIfNewer.Run(ctx, r.client, []string{key}, version, payload, ttl.Milliseconds()).Err()
}

func cacheKey(id model.Identity) string {
	return "cart:" + id.String()
}
