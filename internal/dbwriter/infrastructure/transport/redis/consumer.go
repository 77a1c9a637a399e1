// Package redis dbwriter 的事件队列消费
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/spotexchange/internal/protocol"
	"github.com/wyfcoding/spotexchange/pkg/cache"
)

// EventConsumer 以 BRPOP 消费持久化事件队列
type EventConsumer struct {
	cache   *cache.RedisCache
	queue   string
	timeout time.Duration
}

// NewEventConsumer 创建事件消费者
func NewEventConsumer(c *cache.RedisCache) *EventConsumer {
	return &EventConsumer{
		cache:   c,
		queue:   protocol.EventQueue,
		timeout: time.Second,
	}
}

// Next 阻塞等待下一条事件。队列在超时窗口内为空时 ok 为 false
func (c *EventConsumer) Next(ctx context.Context) (protocol.DBEvent, bool, error) {
	raw, err := c.cache.BRPop(ctx, c.timeout, c.queue)
	if err != nil {
		return protocol.DBEvent{}, false, fmt.Errorf("brpop %s: %w", c.queue, err)
	}
	if raw == "" {
		return protocol.DBEvent{}, false, nil
	}

	event, err := protocol.DecodeDBEvent([]byte(raw))
	if err != nil {
		return protocol.DBEvent{}, false, fmt.Errorf("decode db event: %w", err)
	}
	return event, true, nil
}
