package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wyfcoding/spotexchange/internal/protocol"
	"github.com/wyfcoding/spotexchange/pkg/cache"
)

// Publisher 引擎的出站通道：requestID 回复频道、持久化事件队列与行情频道
type Publisher struct {
	cache *cache.RedisCache
}

// NewPublisher 创建发布器
func NewPublisher(c *cache.RedisCache) *Publisher {
	return &Publisher{cache: c}
}

// SendReply 在以 requestID 命名的频道上发布回复。
// 调用方先订阅后入队命令，因此不存在错过回复的窗口
func (p *Publisher) SendReply(ctx context.Context, requestID string, reply protocol.Reply) error {
	raw, err := reply.Encode()
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	if err := p.cache.Publish(ctx, requestID, raw); err != nil {
		return fmt.Errorf("publish reply to %s: %w", requestID, err)
	}
	return nil
}

// PushEvent 将持久化事件入队给 dbwriter
func (p *Publisher) PushEvent(ctx context.Context, event protocol.DBEvent) error {
	raw, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode db event: %w", err)
	}
	if err := p.cache.LPush(ctx, protocol.EventQueue, raw); err != nil {
		return fmt.Errorf("lpush %s: %w", protocol.EventQueue, err)
	}
	return nil
}

// PublishDepth 发布深度增量
func (p *Publisher) PublishDepth(ctx context.Context, market string, update protocol.DepthUpdate) error {
	return p.publishJSON(ctx, protocol.DepthTopic(market), update)
}

// PublishTrade 发布成交
func (p *Publisher) PublishTrade(ctx context.Context, market string, update protocol.TradeUpdate) error {
	return p.publishJSON(ctx, protocol.TradeTopic(market), update)
}

func (p *Publisher) publishJSON(ctx context.Context, channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", channel, err)
	}
	if err := p.cache.Publish(ctx, channel, raw); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}
