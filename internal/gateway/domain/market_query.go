// Package domain 网关的市场数据读模型。写入侧在 dbwriter，这里只做查询
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord 已持久化的成交记录
type TradeRecord struct {
	TradeID       int64           `json:"tradeId"`
	Market        string          `json:"market"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	QuoteQuantity decimal.Decimal `json:"quoteQuantity"`
	IsBuyerMaker  bool            `json:"isBuyerMaker"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Kline 由成交聚合出的 K 线
type Kline struct {
	Market    string          `json:"market"`
	OpenTime  time.Time       `json:"openTime"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	TradeNum  int64           `json:"tradeNum"`
}

// MarketQueryRepository 市场数据查询接口
type MarketQueryRepository interface {
	// RecentTrades 按成交时间倒序返回最近的成交
	RecentTrades(ctx context.Context, market string, limit int) ([]TradeRecord, error)
	// Klines 按指定窗口聚合成交，窗口起点升序返回
	Klines(ctx context.Context, market string, interval time.Duration, limit int) ([]Kline, error)
}
