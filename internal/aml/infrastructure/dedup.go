package infrastructure

import (
	"context"
	"time"

	"github.com/wyfcoding/riskmonitor/pkg/cache"
)

// RedisDedupStore 基于 Redis SETNX 的告警去重
// 键在窗口期后自动过期；抢占失败说明窗口内已触发过同类告警
type RedisDedupStore struct {
	cache *cache.RedisCache
}

func NewRedisDedupStore(c *cache.RedisCache) *RedisDedupStore {
	return &RedisDedupStore{cache: c}
}

func (s *RedisDedupStore) TryAcquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	return s.cache.SetNX(ctx, key, time.Now().Unix(), window)
}

func (s *RedisDedupStore) Release(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}
