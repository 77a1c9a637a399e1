// Package redis 网关到撮合引擎的请求/回复客户端
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/spotexchange/internal/protocol"
	"github.com/wyfcoding/spotexchange/pkg/cache"
	"github.com/wyfcoding/spotexchange/pkg/utils"
)

// EngineClient 将命令入队给引擎并等待回复。
// 每个请求生成独立的 requestID，先订阅同名频道再入队，
// 保证引擎的回复不会在订阅建立前丢失
type EngineClient struct {
	cache   *cache.RedisCache
	timeout time.Duration
}

// NewEngineClient 创建引擎客户端
func NewEngineClient(c *cache.RedisCache, timeout time.Duration) *EngineClient {
	return &EngineClient{cache: c, timeout: timeout}
}

// Send 发送命令并等待回复。引擎在超时内未回复时返回错误
func (c *EngineClient) Send(ctx context.Context, cmdType protocol.CommandType, data protocol.CommandData) (protocol.Reply, error) {
	requestID := utils.NewRequestID()

	sub := c.cache.Subscribe(ctx, requestID)
	defer sub.Close()

	// 确认订阅已建立再入队命令
	if _, err := sub.Receive(ctx); err != nil {
		return protocol.Reply{}, fmt.Errorf("subscribe reply channel: %w", err)
	}

	env := protocol.Envelope{RequestID: requestID, Type: cmdType, Data: data}
	raw, err := env.Encode()
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("encode command: %w", err)
	}
	if err := c.cache.LPush(ctx, protocol.CommandQueue, raw); err != nil {
		return protocol.Reply{}, fmt.Errorf("enqueue command: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := sub.ReceiveMessage(waitCtx)
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("await reply for %s: %w", cmdType, err)
	}

	reply, err := protocol.DecodeReply([]byte(msg.Payload))
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}
