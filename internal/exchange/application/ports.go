// Package application 实现撮合引擎的应用服务：命令调度循环与各命令处理器
package application

import (
	"context"

	"github.com/wyfcoding/spotexchange/internal/protocol"
)

// CommandSource 命令来源。引擎是队列的唯一消费者。
// Next 阻塞等待下一条命令；队列暂时为空时 ok 为 false 且无错误，
// 以便调度循环回到 select 检查快照定时器与取消信号
type CommandSource interface {
	Next(ctx context.Context) (env protocol.Envelope, ok bool, err error)
}

// ReplySender 按 requestID 向调用方回复
type ReplySender interface {
	SendReply(ctx context.Context, requestID string, reply protocol.Reply) error
}

// EventPusher 推送持久化事件给 dbwriter
type EventPusher interface {
	PushEvent(ctx context.Context, event protocol.DBEvent) error
}

// MarketPublisher 发布市场行情增量
type MarketPublisher interface {
	PublishDepth(ctx context.Context, market string, update protocol.DepthUpdate) error
	PublishTrade(ctx context.Context, market string, update protocol.TradeUpdate) error
}

// TradeStream 成交事件流（Kafka），供下游风控/分析消费，可选
type TradeStream interface {
	SendTrade(ctx context.Context, trade protocol.TradeAddedData) error
}
