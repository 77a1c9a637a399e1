// Package redis 实现引擎的 Redis 传输：命令消费与回复/事件/行情发布
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/spotexchange/internal/protocol"
	"github.com/wyfcoding/spotexchange/pkg/cache"
)

// CommandConsumer 以 BRPOP 消费命令队列。引擎是队列的唯一消费者，
// 短超时让调度循环有机会回去检查快照定时器
type CommandConsumer struct {
	cache   *cache.RedisCache
	queue   string
	timeout time.Duration
}

// NewCommandConsumer 创建命令消费者
func NewCommandConsumer(c *cache.RedisCache) *CommandConsumer {
	return &CommandConsumer{
		cache:   c,
		queue:   protocol.CommandQueue,
		timeout: time.Second,
	}
}

// Next 阻塞等待下一条命令。队列在超时窗口内为空时 ok 为 false
func (c *CommandConsumer) Next(ctx context.Context) (protocol.Envelope, bool, error) {
	raw, err := c.cache.BRPop(ctx, c.timeout, c.queue)
	if err != nil {
		return protocol.Envelope{}, false, fmt.Errorf("brpop %s: %w", c.queue, err)
	}
	if raw == "" {
		return protocol.Envelope{}, false, nil
	}

	env, err := protocol.DecodeEnvelope([]byte(raw))
	if err != nil {
		return protocol.Envelope{}, false, fmt.Errorf("decode command: %w", err)
	}
	return env, true, nil
}
