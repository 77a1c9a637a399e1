// Package domain dbwriter 的持久化模型。事件传输是 at-most-once，
// 所有写入都必须是幂等的 upsert
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Trade 成交表。成交 ID 按市场单调递增，主键为 (market, trade_id)
type Trade struct {
	Market        string          `gorm:"column:market;type:varchar(32);primaryKey"`
	TradeID       int64           `gorm:"column:trade_id;primaryKey;autoIncrement:false"`
	Price         decimal.Decimal `gorm:"column:price;type:decimal(32,16);not null"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:decimal(32,16);not null"`
	QuoteQuantity decimal.Decimal `gorm:"column:quote_quantity;type:decimal(32,16);not null"`
	IsBuyerMaker  bool            `gorm:"column:is_buyer_maker;not null"`
	Timestamp     time.Time       `gorm:"column:timestamp;index;not null"`
}

// TableName 表名
func (Trade) TableName() string { return "trades" }

// Order 订单表。taker 事件携带全量字段，maker 事件只更新累计成交量
type Order struct {
	OrderID     string          `gorm:"column:order_id;type:varchar(64);primaryKey"`
	Market      string          `gorm:"column:market;type:varchar(32);index"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(32,16)"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:decimal(32,16)"`
	ExecutedQty decimal.Decimal `gorm:"column:executed_qty;type:decimal(32,16)"`
	Side        string          `gorm:"column:side;type:varchar(8)"`
	Status      string          `gorm:"column:status;type:varchar(16)"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at"`
}

// TableName 表名
func (Order) TableName() string { return "orders" }

// TradeRepository 成交写入接口
type TradeRepository interface {
	Upsert(ctx context.Context, trade *Trade) error
}

// OrderRepository 订单写入接口。partial 为 true 时只覆盖成交量与状态
type OrderRepository interface {
	Upsert(ctx context.Context, order *Order, partial bool) error
}
