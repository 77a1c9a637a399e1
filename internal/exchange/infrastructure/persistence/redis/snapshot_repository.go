// Package redis 基于 Redis 的快照存储
package redis

import (
	"context"
	"fmt"

	"github.com/wyfcoding/spotexchange/internal/exchange/domain"
	"github.com/wyfcoding/spotexchange/pkg/cache"
)

const snapshotKey = "exchange:snapshot"

// SnapshotRepository 将快照以 JSON 存入单一 Redis key，SET 本身即原子替换
type SnapshotRepository struct {
	cache *cache.RedisCache
}

// NewSnapshotRepository 创建 Redis 快照存储
func NewSnapshotRepository(c *cache.RedisCache) *SnapshotRepository {
	return &SnapshotRepository{cache: c}
}

// Save 覆盖写入快照，不设过期
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *domain.EngineSnapshot) error {
	if err := r.cache.SetJSON(ctx, snapshotKey, snapshot, 0); err != nil {
		return fmt.Errorf("set snapshot key: %w", err)
	}
	return nil
}

// Load 读取最近一次快照，key 不存在时 found 为 false
func (r *SnapshotRepository) Load(ctx context.Context) (*domain.EngineSnapshot, bool, error) {
	var snap domain.EngineSnapshot
	found, err := r.cache.GetJSON(ctx, snapshotKey, &snap)
	if err != nil {
		return nil, false, fmt.Errorf("get snapshot key: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &snap, true, nil
}
