// Package redis 行情频道到 WebSocket 扇出的转发
package redis

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/spotexchange/pkg/cache"
)

// Broadcaster 行情扇出目标
type Broadcaster interface {
	Broadcast(topic string, payload []byte) int
}

// MarketFeed 以模式订阅接收引擎发布的全部行情频道并转发给订阅者。
// Redis 频道名与客户端订阅主题同名，无需翻译
type MarketFeed struct {
	cache    *cache.RedisCache
	target   Broadcaster
	patterns []string
	logger   *slog.Logger
}

// NewMarketFeed 创建行情转发
func NewMarketFeed(c *cache.RedisCache, target Broadcaster, logger *slog.Logger) *MarketFeed {
	return &MarketFeed{
		cache:    c,
		target:   target,
		patterns: []string{"depth@*", "trade@*"},
		logger:   logger.With("module", "market_feed"),
	}
}

// Run 转发循环，随 ctx 取消退出
func (f *MarketFeed) Run(ctx context.Context) error {
	sub := f.cache.PSubscribe(ctx, f.patterns...)
	defer sub.Close()

	f.logger.Info("market feed started", "patterns", f.patterns)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("market feed stopped")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				f.logger.Warn("market feed channel closed")
				return nil
			}
			f.target.Broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}
