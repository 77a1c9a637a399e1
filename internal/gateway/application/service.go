// Package application 网关应用服务：把 HTTP 请求翻译为引擎命令并解码回复
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/spotexchange/internal/gateway/domain"
	"github.com/wyfcoding/spotexchange/internal/protocol"
)

// EngineCommander 引擎命令通道
type EngineCommander interface {
	Send(ctx context.Context, cmdType protocol.CommandType, data protocol.CommandData) (protocol.Reply, error)
}

// GatewayService 网关应用服务
type GatewayService struct {
	engine  EngineCommander
	queries domain.MarketQueryRepository
	logger  *slog.Logger
}

// NewGatewayService 创建网关应用服务。queries 可为 nil（未配置数据库时，
// 成交与 K 线查询不可用）
func NewGatewayService(engine EngineCommander, queries domain.MarketQueryRepository, logger *slog.Logger) *GatewayService {
	return &GatewayService{
		engine:  engine,
		queries: queries,
		logger:  logger.With("module", "gateway_service"),
	}
}

// PlaceOrderResult 下单结果。引擎拒单时 Accepted 为 false 且 Rejected 有效
type PlaceOrderResult struct {
	Accepted bool
	Placed   protocol.OrderPlacedPayload
	Rejected protocol.OrderCancelledPayload
}

// PlaceOrder 下单
func (s *GatewayService) PlaceOrder(ctx context.Context, market, price, quantity, side, userID string) (PlaceOrderResult, error) {
	reply, err := s.engine.Send(ctx, protocol.CreateOrder, protocol.CommandData{
		Market:   market,
		Price:    price,
		Quantity: quantity,
		Side:     side,
		UserID:   userID,
	})
	if err != nil {
		return PlaceOrderResult{}, err
	}

	switch reply.Type {
	case protocol.ReplyOrderPlaced:
		var placed protocol.OrderPlacedPayload
		if err := json.Unmarshal(reply.Payload, &placed); err != nil {
			return PlaceOrderResult{}, fmt.Errorf("decode order placed payload: %w", err)
		}
		return PlaceOrderResult{Accepted: true, Placed: placed}, nil
	case protocol.ReplyOrderCancelled:
		var rejected protocol.OrderCancelledPayload
		if err := json.Unmarshal(reply.Payload, &rejected); err != nil {
			return PlaceOrderResult{}, fmt.Errorf("decode order rejection payload: %w", err)
		}
		return PlaceOrderResult{Accepted: false, Rejected: rejected}, nil
	default:
		return PlaceOrderResult{}, fmt.Errorf("unexpected reply type %s", reply.Type)
	}
}

// CancelOrder 撤单
func (s *GatewayService) CancelOrder(ctx context.Context, market, orderID string) (protocol.OrderCancelledPayload, error) {
	var payload protocol.OrderCancelledPayload
	err := s.command(ctx, protocol.CancelOrder, protocol.CommandData{
		Market:  market,
		OrderID: orderID,
	}, protocol.ReplyOrderCancelled, &payload)
	return payload, err
}

// Depth 市场深度
func (s *GatewayService) Depth(ctx context.Context, market string) (protocol.DepthPayload, error) {
	var payload protocol.DepthPayload
	err := s.command(ctx, protocol.GetDepth, protocol.CommandData{Market: market},
		protocol.ReplyDepth, &payload)
	return payload, err
}

// OpenOrders 用户挂单
func (s *GatewayService) OpenOrders(ctx context.Context, market, userID string) (protocol.OpenOrdersPayload, error) {
	var payload protocol.OpenOrdersPayload
	err := s.command(ctx, protocol.GetOpenOrders, protocol.CommandData{
		Market: market,
		UserID: userID,
	}, protocol.ReplyOpenOrders, &payload)
	return payload, err
}

// Balance 用户余额
func (s *GatewayService) Balance(ctx context.Context, userID string) (protocol.BalancePayload, error) {
	var payload protocol.BalancePayload
	err := s.command(ctx, protocol.GetBalance, protocol.CommandData{UserID: userID},
		protocol.ReplyBalance, &payload)
	return payload, err
}

// OnRamp 入金
func (s *GatewayService) OnRamp(ctx context.Context, userID, asset, amount, txnID string) (protocol.OnRampPayload, error) {
	var payload protocol.OnRampPayload
	err := s.command(ctx, protocol.OnRamp, protocol.CommandData{
		UserID: userID,
		Asset:  asset,
		Amount: amount,
		TxnID:  txnID,
	}, protocol.ReplyOnRamp, &payload)
	return payload, err
}

// RecentTrades 最近成交（读库）
func (s *GatewayService) RecentTrades(ctx context.Context, market string, limit int) ([]domain.TradeRecord, error) {
	if s.queries == nil {
		return nil, fmt.Errorf("market query store not configured")
	}
	return s.queries.RecentTrades(ctx, market, limit)
}

// Klines K 线（读库聚合）
func (s *GatewayService) Klines(ctx context.Context, market string, interval time.Duration, limit int) ([]domain.Kline, error) {
	if s.queries == nil {
		return nil, fmt.Errorf("market query store not configured")
	}
	return s.queries.Klines(ctx, market, interval, limit)
}

func (s *GatewayService) command(ctx context.Context, cmdType protocol.CommandType, data protocol.CommandData, want protocol.ReplyType, dest any) error {
	reply, err := s.engine.Send(ctx, cmdType, data)
	if err != nil {
		return err
	}
	if reply.Type != want {
		return fmt.Errorf("unexpected reply type %s for %s", reply.Type, cmdType)
	}
	if err := json.Unmarshal(reply.Payload, dest); err != nil {
		return fmt.Errorf("decode %s payload: %w", want, err)
	}
	return nil
}
