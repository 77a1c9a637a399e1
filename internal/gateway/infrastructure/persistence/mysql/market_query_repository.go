// Package mysql 网关的市场数据查询实现，读取 dbwriter 维护的成交表
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/spotexchange/internal/gateway/domain"
)

type tradeRow struct {
	TradeID       int64           `gorm:"column:trade_id"`
	Market        string          `gorm:"column:market"`
	Price         decimal.Decimal `gorm:"column:price"`
	Quantity      decimal.Decimal `gorm:"column:quantity"`
	QuoteQuantity decimal.Decimal `gorm:"column:quote_quantity"`
	IsBuyerMaker  bool            `gorm:"column:is_buyer_maker"`
	Timestamp     time.Time       `gorm:"column:timestamp"`
}

func (tradeRow) TableName() string { return "trades" }

// MarketQueryRepository 基于 MySQL 的市场数据查询
type MarketQueryRepository struct {
	db *gorm.DB
}

// NewMarketQueryRepository 创建查询仓储
func NewMarketQueryRepository(db *gorm.DB) *MarketQueryRepository {
	return &MarketQueryRepository{db: db}
}

// RecentTrades 最近成交，按成交 ID 倒序
func (r *MarketQueryRepository) RecentTrades(ctx context.Context, market string, limit int) ([]domain.TradeRecord, error) {
	var rows []tradeRow
	err := r.db.WithContext(ctx).
		Where("market = ?", market).
		Order("trade_id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}

	trades := make([]domain.TradeRecord, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, domain.TradeRecord{
			TradeID:       row.TradeID,
			Market:        row.Market,
			Price:         row.Price,
			Quantity:      row.Quantity,
			QuoteQuantity: row.QuoteQuantity,
			IsBuyerMaker:  row.IsBuyerMaker,
			Timestamp:     row.Timestamp,
		})
	}
	return trades, nil
}

// Klines 取最近 limit 个窗口内的成交并在内存中聚合。
// 成交量级在单机引擎下很小，无需下推到 SQL
func (r *MarketQueryRepository) Klines(ctx context.Context, market string, interval time.Duration, limit int) ([]domain.Kline, error) {
	since := time.Now().Add(-interval * time.Duration(limit)).Truncate(interval)

	var rows []tradeRow
	err := r.db.WithContext(ctx).
		Where("market = ? AND timestamp >= ?", market, since).
		Order("trade_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query trades for klines: %w", err)
	}

	var klines []domain.Kline
	for _, row := range rows {
		openTime := row.Timestamp.Truncate(interval)
		if n := len(klines); n > 0 && klines[n-1].OpenTime.Equal(openTime) {
			k := &klines[n-1]
			if row.Price.GreaterThan(k.High) {
				k.High = row.Price
			}
			if row.Price.LessThan(k.Low) {
				k.Low = row.Price
			}
			k.Close = row.Price
			k.Volume = k.Volume.Add(row.Quantity)
			k.TradeNum++
			continue
		}
		klines = append(klines, domain.Kline{
			Market:   market,
			OpenTime: openTime,
			Open:     row.Price,
			High:     row.Price,
			Low:      row.Price,
			Close:    row.Price,
			Volume:   row.Quantity,
			TradeNum: 1,
		})
	}
	return klines, nil
}
