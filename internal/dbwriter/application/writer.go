// Package application dbwriter 应用服务：消费持久化事件并落库
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/spotexchange/internal/dbwriter/domain"
	"github.com/wyfcoding/spotexchange/internal/protocol"
	"github.com/wyfcoding/spotexchange/pkg/metrics"
)

// EventSource 持久化事件来源
type EventSource interface {
	Next(ctx context.Context) (event protocol.DBEvent, ok bool, err error)
}

// Writer 事件落库服务。单条事件失败只记录日志，
// 传输本身是 at-most-once，落库依赖 upsert 幂等而非重试保证
type Writer struct {
	source  EventSource
	trades  domain.TradeRepository
	orders  domain.OrderRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewWriter 创建落库服务
func NewWriter(source EventSource, trades domain.TradeRepository, orders domain.OrderRepository, m *metrics.Metrics, logger *slog.Logger) *Writer {
	return &Writer{
		source:  source,
		trades:  trades,
		orders:  orders,
		metrics: m,
		logger:  logger.With("module", "db_writer"),
	}
}

// Run 消费循环
func (w *Writer) Run(ctx context.Context) error {
	w.logger.Info("db writer started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("db writer stopped")
			return ctx.Err()
		default:
		}

		event, ok, err := w.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to fetch db event", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if !ok {
			continue
		}

		if err := w.Handle(ctx, event); err != nil {
			w.logger.Error("failed to apply db event", "type", event.Type, "error", err)
			continue
		}
		w.metrics.DBEventsTotal.WithLabelValues(string(event.Type)).Inc()
	}
}

// Handle 应用单条事件
func (w *Writer) Handle(ctx context.Context, event protocol.DBEvent) error {
	switch event.Type {
	case protocol.EventTradeAdded:
		return w.applyTrade(ctx, event.Data)
	case protocol.EventOrderUpdate:
		return w.applyOrderUpdate(ctx, event.Data)
	default:
		w.logger.Warn("unknown db event type", "type", event.Type)
		return nil
	}
}

func (w *Writer) applyTrade(ctx context.Context, raw json.RawMessage) error {
	var data protocol.TradeAddedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode trade event: %w", err)
	}

	price, err := decimal.NewFromString(data.Price)
	if err != nil {
		return fmt.Errorf("trade %d price %q: %w", data.ID, data.Price, err)
	}
	quantity, err := decimal.NewFromString(data.Quantity)
	if err != nil {
		return fmt.Errorf("trade %d quantity %q: %w", data.ID, data.Quantity, err)
	}
	quoteQty, err := decimal.NewFromString(data.QuoteQuantity)
	if err != nil {
		return fmt.Errorf("trade %d quote quantity %q: %w", data.ID, data.QuoteQuantity, err)
	}

	return w.trades.Upsert(ctx, &domain.Trade{
		Market:        data.Market,
		TradeID:       data.ID,
		Price:         price,
		Quantity:      quantity,
		QuoteQuantity: quoteQty,
		IsBuyerMaker:  data.IsBuyerMaker,
		Timestamp:     time.UnixMilli(data.Timestamp),
	})
}

func (w *Writer) applyOrderUpdate(ctx context.Context, raw json.RawMessage) error {
	var data protocol.OrderUpdateData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode order event: %w", err)
	}

	executed, err := decimal.NewFromString(data.ExecutedQty)
	if err != nil {
		return fmt.Errorf("order %s executed qty %q: %w", data.OrderID, data.ExecutedQty, err)
	}

	order := &domain.Order{
		OrderID:     data.OrderID,
		ExecutedQty: executed,
		Status:      data.Status,
	}

	// maker 事件不携带订单静态字段
	partial := data.Market == ""
	if !partial {
		order.Market = data.Market
		order.Side = data.Side
		if order.Price, err = decimal.NewFromString(data.Price); err != nil {
			return fmt.Errorf("order %s price %q: %w", data.OrderID, data.Price, err)
		}
		if order.Quantity, err = decimal.NewFromString(data.Quantity); err != nil {
			return fmt.Errorf("order %s quantity %q: %w", data.OrderID, data.Quantity, err)
		}
	}

	return w.orders.Upsert(ctx, order, partial)
}
