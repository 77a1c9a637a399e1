// Package mysql dbwriter 的 MySQL 写入实现
package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/spotexchange/internal/dbwriter/domain"
)

// TradeRepository 成交表写入
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository 创建成交仓储
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Upsert 按 (market, trade_id) 幂等写入，重复事件覆盖为相同内容
func (r *TradeRepository) Upsert(ctx context.Context, trade *domain.Trade) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "market"}, {Name: "trade_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price", "quantity", "quote_quantity", "is_buyer_maker", "timestamp",
		}),
	}).Create(trade).Error
	if err != nil {
		return fmt.Errorf("upsert trade %s/%d: %w", trade.Market, trade.TradeID, err)
	}
	return nil
}

// OrderRepository 订单表写入
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Upsert 按 order_id 幂等写入。partial 事件不携带订单静态字段，
// 冲突时只覆盖 executed_qty 与 status，避免把已有字段清空
func (r *OrderRepository) Upsert(ctx context.Context, order *domain.Order, partial bool) error {
	columns := []string{"executed_qty", "updated_at"}
	if !partial {
		columns = append(columns, "market", "price", "quantity", "side")
	}
	if order.Status != "" {
		columns = append(columns, "status")
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(order).Error
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", order.OrderID, err)
	}
	return nil
}
